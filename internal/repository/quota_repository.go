package repository

import (
	"context"
	"errors"

	"lockproxy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotaRepository defines data access for per-asset quota records
type QuotaRepository interface {
	// Get returns a zero record (limit 0, never refreshed) for unknown assets
	Get(ctx context.Context, assetAddress string) (*models.QuotaRecord, error)
	Save(ctx context.Context, record *models.QuotaRecord) error
	List(ctx context.Context) ([]*models.QuotaRecord, error)
}

type quotaRepository struct {
	db *gorm.DB
}

// NewQuotaRepository creates a new QuotaRepository instance
func NewQuotaRepository(db *gorm.DB) QuotaRepository {
	return &quotaRepository{db: db}
}

func (r *quotaRepository) Get(ctx context.Context, assetAddress string) (*models.QuotaRecord, error) {
	var record models.QuotaRecord
	err := r.db.WithContext(ctx).Where("asset_address = ?", assetAddress).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.QuotaRecord{AssetAddress: assetAddress, Limit: "0", Used: "0"}, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Save inserts or overwrites the record
func (r *quotaRepository) Save(ctx context.Context, record *models.QuotaRecord) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(record).Error
}

func (r *quotaRepository) List(ctx context.Context) ([]*models.QuotaRecord, error) {
	var records []*models.QuotaRecord
	err := r.db.WithContext(ctx).Order("asset_address ASC").Find(&records).Error
	return records, err
}
