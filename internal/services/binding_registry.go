package services

import (
	"context"
	"fmt"
	"time"

	"lockproxy/internal/models"
	"lockproxy/internal/repository"
	"lockproxy/internal/utils"

	"github.com/ethereum/go-ethereum/common"
)

// BindingRegistry counterpart gateways and counterpart assets per remote chain.
// Writes are gated by the caller; the registry only stores.
type BindingRegistry struct {
	repo repository.BindingRepository
	now  func() time.Time
}

func NewBindingRegistry(repo repository.BindingRepository, now func() time.Time) *BindingRegistry {
	return &BindingRegistry{repo: repo, now: now}
}

// BindProxyHash overwrites the trusted gateway hash for chainID, empty unbinds
func (r *BindingRegistry) BindProxyHash(ctx context.Context, actor common.Address, chainID uint64, proxyHash []byte) error {
	err := r.repo.UpsertProxy(ctx, &models.ProxyBinding{
		ChainID:   chainID,
		ProxyHash: utils.EncodeHash(proxyHash),
		UpdatedBy: actor.Hex(),
		UpdatedAt: r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to bind proxy hash: %w", err)
	}
	return nil
}

// BindAssetHash overwrites the counterpart of asset on chainID, empty unbinds
func (r *BindingRegistry) BindAssetHash(ctx context.Context, actor, asset common.Address, chainID uint64, assetHash []byte) error {
	err := r.repo.UpsertAsset(ctx, &models.AssetBinding{
		AssetAddress: asset.Hex(),
		ChainID:      chainID,
		AssetHash:    utils.EncodeHash(assetHash),
		UpdatedBy:    actor.Hex(),
		UpdatedAt:    r.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to bind asset hash: %w", err)
	}
	return nil
}

// ProxyHash returns nil when chainID is unbound
func (r *BindingRegistry) ProxyHash(ctx context.Context, chainID uint64) ([]byte, error) {
	stored, err := r.repo.GetProxyHash(ctx, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load proxy hash: %w", err)
	}
	return utils.DecodeHash(stored)
}

// AssetHash returns nil when asset has no counterpart on chainID
func (r *BindingRegistry) AssetHash(ctx context.Context, asset common.Address, chainID uint64) ([]byte, error) {
	stored, err := r.repo.GetAssetHash(ctx, asset.Hex(), chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load asset hash: %w", err)
	}
	return utils.DecodeHash(stored)
}
