package store

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamelens/gamelens/internal/model"
)

// GameWithCount pairs a tracked game with its stored review count.
// Used by the games list endpoint.
type GameWithCount struct {
	model.Game
	ReviewCount int64 `json:"review_count"`
}

// GameStore defines operations for Game models.
type GameStore interface {
	// Upsert inserts the game or refreshes its name if it already exists.
	Upsert(game *model.Game) error
	GetByID(appID uint) (*model.Game, error)
	List(limit, offset int) ([]GameWithCount, int64, error)
	Delete(appID uint) error

	UpdateLastScraped(appID uint, at time.Time) error

	CountAll() (int64, error)
}

// gameStore implements GameStore using GORM.
type gameStore struct {
	db *gorm.DB
}

func newGameStore(db *gorm.DB) GameStore {
	return &gameStore{db: db}
}

func (s *gameStore) Upsert(game *model.Game) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(game).Error
}

func (s *gameStore) GetByID(appID uint) (*model.Game, error) {
	var game model.Game
	err := s.db.First(&game, "app_id = ?", appID).Error
	if err != nil {
		return nil, err
	}
	return &game, nil
}

func (s *gameStore) List(limit, offset int) ([]GameWithCount, int64, error) {
	var games []GameWithCount
	var total int64

	if err := s.db.Model(&model.Game{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := s.db.Table("games").
		Select("games.*, COUNT(reviews.review_id) as review_count").
		Joins("LEFT JOIN reviews ON reviews.app_id = games.app_id").
		Group("games.app_id").
		Order("games.added_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&games).Error
	return games, total, err
}

// Delete removes the game; its reviews go with it via FK cascade.
func (s *gameStore) Delete(appID uint) error {
	return s.db.Delete(&model.Game{}, "app_id = ?", appID).Error
}

func (s *gameStore) UpdateLastScraped(appID uint, at time.Time) error {
	return s.db.Model(&model.Game{}).Where("app_id = ?", appID).Update("last_scraped_at", at).Error
}

func (s *gameStore) CountAll() (int64, error) {
	var count int64
	err := s.db.Model(&model.Game{}).Count(&count).Error
	return count, err
}
