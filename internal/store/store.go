// Package store provides data access layer interfaces and implementations.
// This package abstracts database operations to improve maintainability
// and decouple business logic from specific database implementations.
package store

import "gorm.io/gorm"

// Store aggregates all data store interfaces.
// It provides a single point of access for all database operations.
type Store interface {
	Game() GameStore
	Review() ReviewStore
	Cursor() CursorStore
	Job() JobStore
	Settings() SettingsStore
	APIKey() APIKeyStore
	Catalog() CatalogStore

	// DB returns the underlying database connection for advanced operations.
	// Use sparingly - prefer using specific store methods.
	DB() *gorm.DB

	// Transaction executes operations within a database transaction.
	Transaction(fn func(Store) error) error
}

// gormStore implements Store interface using GORM.
type gormStore struct {
	db            *gorm.DB
	gameStore     GameStore
	reviewStore   ReviewStore
	cursorStore   CursorStore
	jobStore      JobStore
	settingsStore SettingsStore
	apiKeyStore   APIKeyStore
	catalogStore  CatalogStore
}

// NewStore creates a new Store instance with GORM backend.
func NewStore(db *gorm.DB) Store {
	return &gormStore{
		db:            db,
		gameStore:     newGameStore(db),
		reviewStore:   newReviewStore(db),
		cursorStore:   newCursorStore(db),
		jobStore:      newJobStore(db),
		settingsStore: newSettingsStore(db),
		apiKeyStore:   newAPIKeyStore(db),
		catalogStore:  newCatalogStore(db),
	}
}

func (s *gormStore) Game() GameStore {
	return s.gameStore
}

func (s *gormStore) Review() ReviewStore {
	return s.reviewStore
}

func (s *gormStore) Cursor() CursorStore {
	return s.cursorStore
}

func (s *gormStore) Job() JobStore {
	return s.jobStore
}

func (s *gormStore) Settings() SettingsStore {
	return s.settingsStore
}

func (s *gormStore) APIKey() APIKeyStore {
	return s.apiKeyStore
}

func (s *gormStore) Catalog() CatalogStore {
	return s.catalogStore
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(fn func(Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		txStore := &gormStore{
			db:            tx,
			gameStore:     newGameStore(tx),
			reviewStore:   newReviewStore(tx),
			cursorStore:   newCursorStore(tx),
			jobStore:      newJobStore(tx),
			settingsStore: newSettingsStore(tx),
			apiKeyStore:   newAPIKeyStore(tx),
			catalogStore:  newCatalogStore(tx),
		}
		return fn(txStore)
	})
}
