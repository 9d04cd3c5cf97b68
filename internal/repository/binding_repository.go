package repository

import (
	"context"
	"errors"

	"lockproxy/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BindingRepository defines data access for proxy and asset bindings
type BindingRepository interface {
	UpsertProxy(ctx context.Context, binding *models.ProxyBinding) error
	// GetProxyHash returns "" when the chain was never bound
	GetProxyHash(ctx context.Context, chainID uint64) (string, error)
	ListProxies(ctx context.Context) ([]*models.ProxyBinding, error)

	UpsertAsset(ctx context.Context, binding *models.AssetBinding) error
	// GetAssetHash returns "" when the asset was never bound for chainID
	GetAssetHash(ctx context.Context, assetAddress string, chainID uint64) (string, error)
	ListAssets(ctx context.Context) ([]*models.AssetBinding, error)
}

type bindingRepository struct {
	db *gorm.DB
}

// NewBindingRepository creates a new BindingRepository instance
func NewBindingRepository(db *gorm.DB) BindingRepository {
	return &bindingRepository{db: db}
}

// UpsertProxy overwrites any previous binding for the chain
func (r *bindingRepository) UpsertProxy(ctx context.Context, binding *models.ProxyBinding) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(binding).Error
}

func (r *bindingRepository) GetProxyHash(ctx context.Context, chainID uint64) (string, error) {
	var binding models.ProxyBinding
	err := r.db.WithContext(ctx).Where("chain_id = ?", chainID).First(&binding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return binding.ProxyHash, nil
}

func (r *bindingRepository) ListProxies(ctx context.Context) ([]*models.ProxyBinding, error) {
	var bindings []*models.ProxyBinding
	err := r.db.WithContext(ctx).Order("chain_id ASC").Find(&bindings).Error
	return bindings, err
}

// UpsertAsset overwrites any previous binding for (asset, chain)
func (r *bindingRepository) UpsertAsset(ctx context.Context, binding *models.AssetBinding) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(binding).Error
}

func (r *bindingRepository) GetAssetHash(ctx context.Context, assetAddress string, chainID uint64) (string, error) {
	var binding models.AssetBinding
	err := r.db.WithContext(ctx).
		Where("asset_address = ? AND chain_id = ?", assetAddress, chainID).
		First(&binding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return binding.AssetHash, nil
}

func (r *bindingRepository) ListAssets(ctx context.Context) ([]*models.AssetBinding, error) {
	var bindings []*models.AssetBinding
	err := r.db.WithContext(ctx).Order("asset_address ASC, chain_id ASC").Find(&bindings).Error
	return bindings, err
}
