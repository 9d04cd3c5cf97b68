package repository

import (
	"context"

	"lockproxy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CensorRepository defines data access for the reviewer set
type CensorRepository interface {
	Add(ctx context.Context, censor *models.Censor) error
	Remove(ctx context.Context, address string) error
	Exists(ctx context.Context, address string) (bool, error)
	List(ctx context.Context) ([]*models.Censor, error)
}

type censorRepository struct {
	db *gorm.DB
}

// NewCensorRepository creates a new CensorRepository instance
func NewCensorRepository(db *gorm.DB) CensorRepository {
	return &censorRepository{db: db}
}

// Add inserts a censor, adding an existing one is a no-op
func (r *censorRepository) Add(ctx context.Context, censor *models.Censor) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(censor).Error
}

// Remove deletes a censor, removing an unknown one is a no-op
func (r *censorRepository) Remove(ctx context.Context, address string) error {
	return r.db.WithContext(ctx).Where("address = ?", address).Delete(&models.Censor{}).Error
}

func (r *censorRepository) Exists(ctx context.Context, address string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Censor{}).
		Where("address = ?", address).
		Count(&count).Error
	return count > 0, err
}

func (r *censorRepository) List(ctx context.Context) ([]*models.Censor, error) {
	var censors []*models.Censor
	err := r.db.WithContext(ctx).Order("created_at ASC").Find(&censors).Error
	return censors, err
}
