package store

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamelens/gamelens/internal/model"
)

// CursorStore defines operations for ScrapeCursor models.
// Cursors are keyed by (app_id, params_hash) so runs with different filter
// parameters never resume from each other's position.
type CursorStore interface {
	Get(appID uint, paramsHash string) (*model.ScrapeCursor, error)
	Save(cursor *model.ScrapeCursor) error
	Delete(appID uint, paramsHash string) error
	DeleteByApp(appID uint) error
}

// cursorStore implements CursorStore using GORM.
type cursorStore struct {
	db *gorm.DB
}

func newCursorStore(db *gorm.DB) CursorStore {
	return &cursorStore{db: db}
}

func (s *cursorStore) Get(appID uint, paramsHash string) (*model.ScrapeCursor, error) {
	var cursor model.ScrapeCursor
	err := s.db.Where("app_id = ? AND params_hash = ?", appID, paramsHash).First(&cursor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &cursor, nil
}

func (s *cursorStore) Save(cursor *model.ScrapeCursor) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}, {Name: "params_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"cursor", "updated_at"}),
	}).Create(cursor).Error
}

func (s *cursorStore) Delete(appID uint, paramsHash string) error {
	return s.db.Where("app_id = ? AND params_hash = ?", appID, paramsHash).Delete(&model.ScrapeCursor{}).Error
}

func (s *cursorStore) DeleteByApp(appID uint) error {
	return s.db.Where("app_id = ?", appID).Delete(&model.ScrapeCursor{}).Error
}
