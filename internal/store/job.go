package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/gamelens/gamelens/internal/model"
)

// JobStore defines operations for AnalysisJob and AnalysisResult models.
type JobStore interface {
	// Job CRUD
	Create(job *model.AnalysisJob) error
	GetByID(id uint) (*model.AnalysisJob, error)
	List(statusFilter string, limit, offset int) ([]model.AnalysisJob, int64, error)
	Delete(id uint) error

	// Job status updates
	UpdateStatus(id uint, status model.JobStatus) error
	UpdateStatusWithError(id uint, status model.JobStatus, errMsg string) error
	MarkRunningIfPending(id uint, startedAt time.Time) (bool, error)
	MarkCompleted(id uint, completedAt time.Time) error
	SetTotalReviews(id uint, total int) error
	IncrementProcessed(id uint, delta int) error

	// Result operations
	CreateResults(results []model.AnalysisResult) error
	UpdateResult(result *model.AnalysisResult) error
	GetResultByID(id uint) (*model.AnalysisResult, error)
	ListResultsByJob(jobID uint, statusFilter string, limit, offset int) ([]model.AnalysisResult, int64, error)
	ListPendingResultsByJob(jobID uint) ([]model.AnalysisResult, error)
	CountResultsByStatus(jobID uint, status model.ResultStatus) (int64, error)

	// ListUnmappedResults returns results that have raw output but no mapped
	// content yet, across all jobs. Used by the mapping backfill.
	ListUnmappedResults(limit int) ([]model.AnalysisResult, error)

	// Statistics
	CountByStatus(status model.JobStatus) (int64, error)
	SumTokensByJob(jobID uint) (int64, error)
}

// jobStore implements JobStore using GORM.
type jobStore struct {
	db *gorm.DB
}

func newJobStore(db *gorm.DB) JobStore {
	return &jobStore{db: db}
}

// Job CRUD implementations

func (s *jobStore) Create(job *model.AnalysisJob) error {
	return s.db.Create(job).Error
}

func (s *jobStore) GetByID(id uint) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	err := s.db.First(&job, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *jobStore) List(statusFilter string, limit, offset int) ([]model.AnalysisJob, int64, error) {
	var jobs []model.AnalysisJob
	var total int64

	query := s.db.Model(&model.AnalysisJob{})
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error
	return jobs, total, err
}

// Delete removes the job; its results go with it via FK cascade.
func (s *jobStore) Delete(id uint) error {
	return s.db.Delete(&model.AnalysisJob{}, "id = ?", id).Error
}

// Job status updates

func (s *jobStore) UpdateStatus(id uint, status model.JobStatus) error {
	return s.db.Model(&model.AnalysisJob{}).Where("id = ?", id).Update("status", status).Error
}

func (s *jobStore) UpdateStatusWithError(id uint, status model.JobStatus, errMsg string) error {
	return s.db.Model(&model.AnalysisJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       status,
		"error":        errMsg,
		"completed_at": time.Now().UTC(),
	}).Error
}

// MarkRunningIfPending transitions pending -> running atomically.
// Returns false when the job was not in pending state.
func (s *jobStore) MarkRunningIfPending(id uint, startedAt time.Time) (bool, error) {
	result := s.db.Model(&model.AnalysisJob{}).
		Where("id = ?", id).
		Where("status = ?", model.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     model.JobStatusRunning,
			"started_at": startedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *jobStore) MarkCompleted(id uint, completedAt time.Time) error {
	return s.db.Model(&model.AnalysisJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       model.JobStatusCompleted,
		"completed_at": completedAt,
	}).Error
}

func (s *jobStore) SetTotalReviews(id uint, total int) error {
	return s.db.Model(&model.AnalysisJob{}).Where("id = ?", id).Update("total_reviews", total).Error
}

func (s *jobStore) IncrementProcessed(id uint, delta int) error {
	return s.db.Model(&model.AnalysisJob{}).Where("id = ?", id).
		UpdateColumn("processed_count", gorm.Expr("processed_count + ?", delta)).Error
}

// Result operations

func (s *jobStore) CreateResults(results []model.AnalysisResult) error {
	if len(results) == 0 {
		return nil
	}
	return s.db.Create(&results).Error
}

func (s *jobStore) UpdateResult(result *model.AnalysisResult) error {
	return s.db.Save(result).Error
}

func (s *jobStore) GetResultByID(id uint) (*model.AnalysisResult, error) {
	var result model.AnalysisResult
	err := s.db.First(&result, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *jobStore) ListResultsByJob(jobID uint, statusFilter string, limit, offset int) ([]model.AnalysisResult, int64, error) {
	var results []model.AnalysisResult
	var total int64

	query := s.db.Model(&model.AnalysisResult{}).Where("job_id = ?", jobID)
	if statusFilter != "" {
		query = query.Where("status = ?", statusFilter)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&results).Error
	return results, total, err
}

func (s *jobStore) ListPendingResultsByJob(jobID uint) ([]model.AnalysisResult, error) {
	var results []model.AnalysisResult
	err := s.db.Where("job_id = ? AND status = ?", jobID, model.ResultStatusPending).
		Order("id ASC").
		Find(&results).Error
	return results, err
}

func (s *jobStore) CountResultsByStatus(jobID uint, status model.ResultStatus) (int64, error) {
	var count int64
	err := s.db.Model(&model.AnalysisResult{}).
		Where("job_id = ? AND status = ?", jobID, status).
		Count(&count).Error
	return count, err
}

func (s *jobStore) ListUnmappedResults(limit int) ([]model.AnalysisResult, error) {
	var results []model.AnalysisResult
	err := s.db.
		Where("analysis_output <> '' AND analysed_review = ''").
		Order("id ASC").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// Statistics

func (s *jobStore) CountByStatus(status model.JobStatus) (int64, error) {
	var count int64
	err := s.db.Model(&model.AnalysisJob{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

func (s *jobStore) SumTokensByJob(jobID uint) (int64, error) {
	var sum *int64
	err := s.db.Model(&model.AnalysisResult{}).
		Where("job_id = ?", jobID).
		Select("SUM(total_tokens)").
		Row().Scan(&sum)
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
