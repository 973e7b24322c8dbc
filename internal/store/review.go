package store

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gamelens/gamelens/internal/model"
)

// ReviewFilter narrows review queries. Zero-valued fields are ignored;
// pointer fields distinguish "unset" from "false"/"zero".
type ReviewFilter struct {
	AppID           uint
	ReviewType      model.ReviewType
	Language        string
	EarlyAccess     *bool
	ReceivedForFree *bool
	MinPlaytime     *float64 // hours, inclusive
	MaxPlaytime     *float64 // hours, inclusive
	StartDate       *time.Time
	EndDate         *time.Time
}

// ReviewStore defines operations for Review models.
type ReviewStore interface {
	// InsertBatch inserts reviews, silently skipping review_ids that already
	// exist. Returns the number of rows actually inserted.
	InsertBatch(reviews []model.Review) (int64, error)

	GetByID(reviewID string) (*model.Review, error)
	List(filter ReviewFilter, limit, offset int) ([]model.Review, int64, error)
	ListAll(filter ReviewFilter) ([]model.Review, error)
	Count(filter ReviewFilter) (int64, error)
	DeleteByApp(appID uint) error

	// LatestReviewDate returns the newest stored review date for an app,
	// or nil when no reviews are stored. Used for incremental re-scrapes.
	LatestReviewDate(appID uint) (*time.Time, error)

	CountByApp(appID uint) (int64, error)
	CountAll() (int64, error)
}

// reviewStore implements ReviewStore using GORM.
type reviewStore struct {
	db *gorm.DB
}

func newReviewStore(db *gorm.DB) ReviewStore {
	return &reviewStore{db: db}
}

func (s *reviewStore) InsertBatch(reviews []model.Review) (int64, error) {
	if len(reviews) == 0 {
		return 0, nil
	}
	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "review_id"}},
		DoNothing: true,
	}).Create(&reviews)
	return result.RowsAffected, result.Error
}

func (s *reviewStore) GetByID(reviewID string) (*model.Review, error) {
	var review model.Review
	err := s.db.First(&review, "review_id = ?", reviewID).Error
	if err != nil {
		return nil, err
	}
	return &review, nil
}

// applyFilter translates a ReviewFilter into WHERE clauses.
func applyFilter(query *gorm.DB, filter ReviewFilter) *gorm.DB {
	if filter.AppID != 0 {
		query = query.Where("app_id = ?", filter.AppID)
	}
	if filter.ReviewType != "" {
		query = query.Where("review_type = ?", filter.ReviewType)
	}
	if filter.Language != "" && filter.Language != "all" {
		query = query.Where("language = ?", filter.Language)
	}
	if filter.EarlyAccess != nil {
		query = query.Where("early_access = ?", *filter.EarlyAccess)
	}
	if filter.ReceivedForFree != nil {
		query = query.Where("received_for_free = ?", *filter.ReceivedForFree)
	}
	if filter.MinPlaytime != nil {
		query = query.Where("playtime_hours >= ?", *filter.MinPlaytime)
	}
	if filter.MaxPlaytime != nil {
		query = query.Where("playtime_hours <= ?", *filter.MaxPlaytime)
	}
	if filter.StartDate != nil {
		query = query.Where("review_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("review_date <= ?", *filter.EndDate)
	}
	return query
}

func (s *reviewStore) List(filter ReviewFilter, limit, offset int) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	query := applyFilter(s.db.Model(&model.Review{}), filter)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("review_date DESC").Limit(limit).Offset(offset).Find(&reviews).Error
	return reviews, total, err
}

func (s *reviewStore) ListAll(filter ReviewFilter) ([]model.Review, error) {
	var reviews []model.Review
	err := applyFilter(s.db.Model(&model.Review{}), filter).
		Order("review_date DESC").
		Find(&reviews).Error
	return reviews, err
}

func (s *reviewStore) Count(filter ReviewFilter) (int64, error) {
	var count int64
	err := applyFilter(s.db.Model(&model.Review{}), filter).Count(&count).Error
	return count, err
}

func (s *reviewStore) DeleteByApp(appID uint) error {
	return s.db.Where("app_id = ?", appID).Delete(&model.Review{}).Error
}

func (s *reviewStore) LatestReviewDate(appID uint) (*time.Time, error) {
	var review model.Review
	err := s.db.Where("app_id = ?", appID).
		Order("review_date DESC").
		First(&review).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &review.ReviewDate, nil
}

func (s *reviewStore) CountByApp(appID uint) (int64, error) {
	var count int64
	err := s.db.Model(&model.Review{}).Where("app_id = ?", appID).Count(&count).Error
	return count, err
}

func (s *reviewStore) CountAll() (int64, error) {
	var count int64
	err := s.db.Model(&model.Review{}).Count(&count).Error
	return count, err
}
