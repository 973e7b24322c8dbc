package store

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamelens/gamelens/internal/model"
)

// catalogUpsertChunk bounds single-statement size during applist backfill
const catalogUpsertChunk = 1000

// CatalogStore defines operations for the SteamApp title catalog and its
// full-text search index.
type CatalogStore interface {
	// BulkUpsertApps inserts or refreshes catalog rows in chunks.
	// The FTS index is not touched; call RebuildIndex after a backfill.
	BulkUpsertApps(apps []model.SteamApp) error

	// Search finds titles by name (prefix full-text match, falling back to
	// substring match) or by exact numeric app id.
	Search(query string, limit int) ([]model.SteamApp, error)

	GetByID(appID uint) (*model.SteamApp, error)
	Count() (int64, error)

	// RebuildIndex repopulates the FTS index from the catalog table.
	RebuildIndex() error
}

// catalogStore implements CatalogStore using GORM.
type catalogStore struct {
	db *gorm.DB
}

func newCatalogStore(db *gorm.DB) CatalogStore {
	return &catalogStore{db: db}
}

func (s *catalogStore) BulkUpsertApps(apps []model.SteamApp) error {
	if len(apps) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).CreateInBatches(&apps, catalogUpsertChunk).Error
}

func (s *catalogStore) Search(query string, limit int) ([]model.SteamApp, error) {
	query = strings.TrimSpace(query)
	if query == "" || limit <= 0 {
		return []model.SteamApp{}, nil
	}

	var results []model.SteamApp

	// Exact app id lookup for numeric queries
	if appID, err := strconv.ParseUint(query, 10, 32); err == nil {
		var app model.SteamApp
		if err := s.db.First(&app, "app_id = ?", uint(appID)).Error; err == nil {
			results = append(results, app)
		} else if err != gorm.ErrRecordNotFound {
			return nil, err
		}
	}

	// Prefix full-text match on normalized names
	matched, err := s.searchFTS(query, limit)
	if err != nil {
		return nil, err
	}

	// Substring fallback when the token match finds nothing
	if len(matched) == 0 {
		err = s.db.Where("name LIKE ?", "%"+query+"%").
			Order("app_id ASC").
			Limit(limit).
			Find(&matched).Error
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[uint]bool, len(results))
	for _, app := range results {
		seen[app.AppID] = true
	}
	for _, app := range matched {
		if len(results) >= limit {
			break
		}
		if !seen[app.AppID] {
			seen[app.AppID] = true
			results = append(results, app)
		}
	}

	if results == nil {
		results = []model.SteamApp{}
	}
	return results, nil
}

// searchFTS runs a prefix token match against the FTS index and resolves
// matched rowids back to catalog rows, preserving relevance order.
func (s *catalogStore) searchFTS(query string, limit int) ([]model.SteamApp, error) {
	match := buildMatchExpr(query)
	if match == "" {
		return nil, nil
	}

	var ids []uint
	err := s.db.Raw(
		"SELECT rowid FROM steam_apps_fts WHERE steam_apps_fts MATCH ? ORDER BY rank LIMIT ?",
		match, limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var apps []model.SteamApp
	if err := s.db.Where("app_id IN ?", ids).Find(&apps).Error; err != nil {
		return nil, err
	}

	// Restore FTS relevance ordering
	byID := make(map[uint]model.SteamApp, len(apps))
	for _, app := range apps {
		byID[app.AppID] = app
	}
	ordered := make([]model.SteamApp, 0, len(apps))
	for _, id := range ids {
		if app, ok := byID[id]; ok {
			ordered = append(ordered, app)
		}
	}
	return ordered, nil
}

// buildMatchExpr turns a free-form query into a quoted prefix-match
// expression, e.g. `team fort` -> `"team"* "fort"*`.
func buildMatchExpr(query string) string {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		escaped := strings.ReplaceAll(token, `"`, `""`)
		parts = append(parts, `"`+escaped+`"*`)
	}
	return strings.Join(parts, " ")
}

func (s *catalogStore) GetByID(appID uint) (*model.SteamApp, error) {
	var app model.SteamApp
	err := s.db.First(&app, "app_id = ?", appID).Error
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *catalogStore) Count() (int64, error) {
	var count int64
	err := s.db.Model(&model.SteamApp{}).Count(&count).Error
	return count, err
}

func (s *catalogStore) RebuildIndex() error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("INSERT INTO steam_apps_fts(steam_apps_fts) VALUES('delete-all')").Error; err != nil {
			return err
		}
		return tx.Exec(
			"INSERT INTO steam_apps_fts(rowid, norm_name) SELECT app_id, lower(name) FROM steam_apps",
		).Error
	})
}
