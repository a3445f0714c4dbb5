package repository

import "yolodemo/internal/models"

// ModelRepository defines the interface for the model cache manifest.
type ModelRepository interface {
	// Create/update operations
	RecordDownload(m *models.CachedModel) error
	RecordLoad(m *models.CachedModel) error

	// Read operations
	GetByName(name string) (*models.CachedModel, error)
	GetAll() ([]models.CachedModel, error)

	// Delete operations
	DeleteByName(name string) error
}
