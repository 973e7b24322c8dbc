package store

import (
	"gorm.io/gorm"

	"github.com/gamelens/gamelens/internal/model"
)

// APIKeyStore defines operations for APIKey models.
// Values are stored encrypted; decryption happens in the vault package.
type APIKeyStore interface {
	Create(key *model.APIKey) error
	GetByID(id uint) (*model.APIKey, error)
	// GetLatestByProvider returns the most recently saved key for a provider,
	// or nil when none is stored.
	GetLatestByProvider(provider string) (*model.APIKey, error)
	List() ([]model.APIKey, error)
	ListByProvider(provider string) ([]model.APIKey, error)
	Update(key *model.APIKey) error
	Delete(id uint) error
	DeleteByProvider(provider string) error
}

// apiKeyStore implements APIKeyStore using GORM.
type apiKeyStore struct {
	db *gorm.DB
}

func newAPIKeyStore(db *gorm.DB) APIKeyStore {
	return &apiKeyStore{db: db}
}

func (s *apiKeyStore) Create(key *model.APIKey) error {
	return s.db.Create(key).Error
}

func (s *apiKeyStore) GetByID(id uint) (*model.APIKey, error) {
	var key model.APIKey
	err := s.db.First(&key, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *apiKeyStore) GetLatestByProvider(provider string) (*model.APIKey, error) {
	var key model.APIKey
	err := s.db.Where("provider = ?", provider).Order("updated_at DESC, id DESC").First(&key).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &key, nil
}

func (s *apiKeyStore) List() ([]model.APIKey, error) {
	var keys []model.APIKey
	err := s.db.Order("provider ASC, updated_at DESC").Find(&keys).Error
	return keys, err
}

func (s *apiKeyStore) ListByProvider(provider string) ([]model.APIKey, error) {
	var keys []model.APIKey
	err := s.db.Where("provider = ?", provider).Order("updated_at DESC").Find(&keys).Error
	return keys, err
}

func (s *apiKeyStore) Update(key *model.APIKey) error {
	return s.db.Save(key).Error
}

func (s *apiKeyStore) Delete(id uint) error {
	return s.db.Delete(&model.APIKey{}, "id = ?", id).Error
}

func (s *apiKeyStore) DeleteByProvider(provider string) error {
	return s.db.Where("provider = ?", provider).Delete(&model.APIKey{}).Error
}
