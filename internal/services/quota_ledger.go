package services

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"lockproxy/internal/models"
	"lockproxy/internal/repository"

	"github.com/ethereum/go-ethereum/common"
)

// QuotaLedger per-asset release quota over a lazily refreshed time window
type QuotaLedger struct {
	repo repository.QuotaRepository
	now  func() time.Time
}

func NewQuotaLedger(repo repository.QuotaRepository, now func() time.Time) *QuotaLedger {
	return &QuotaLedger{repo: repo, now: now}
}

// CheckAndConsume refreshes the window if the period elapsed and consumes
// amount when it fits. A denial persists nothing, not even the refresh.
func (q *QuotaLedger) CheckAndConsume(ctx context.Context, asset common.Address, amount *big.Int, now int64) (bool, error) {
	record, err := q.repo.Get(ctx, asset.Hex())
	if err != nil {
		return false, fmt.Errorf("failed to load quota: %w", err)
	}
	if !record.TryConsume(amount, now) {
		return false, nil
	}
	record.UpdatedAt = q.now()
	if err := q.repo.Save(ctx, record); err != nil {
		return false, fmt.Errorf("failed to save quota: %w", err)
	}
	return true, nil
}

// SetQuota changes the limit; used and the window are untouched
func (q *QuotaLedger) SetQuota(ctx context.Context, asset common.Address, limit *big.Int) error {
	if limit == nil || limit.Sign() < 0 {
		return ErrNegativeQuota
	}
	record, err := q.repo.Get(ctx, asset.Hex())
	if err != nil {
		return fmt.Errorf("failed to load quota: %w", err)
	}
	record.Limit = limit.String()
	record.UpdatedAt = q.now()
	return q.save(ctx, record)
}

// SetRefreshPeriod changes the window length in seconds, 0 disables the reset
func (q *QuotaLedger) SetRefreshPeriod(ctx context.Context, asset common.Address, period int64) error {
	if period < 0 {
		return ErrNegativePeriod
	}
	record, err := q.repo.Get(ctx, asset.Hex())
	if err != nil {
		return fmt.Errorf("failed to load quota: %w", err)
	}
	record.RefreshPeriod = period
	record.UpdatedAt = q.now()
	return q.save(ctx, record)
}

// RefreshTimestamp unix seconds of the last window reset
func (q *QuotaLedger) RefreshTimestamp(ctx context.Context, asset common.Address) (int64, error) {
	record, err := q.Quota(ctx, asset)
	if err != nil {
		return 0, err
	}
	return record.LastRefresh, nil
}

func (q *QuotaLedger) Quota(ctx context.Context, asset common.Address) (*models.QuotaRecord, error) {
	record, err := q.repo.Get(ctx, asset.Hex())
	if err != nil {
		return nil, fmt.Errorf("failed to load quota: %w", err)
	}
	return record, nil
}

func (q *QuotaLedger) save(ctx context.Context, record *models.QuotaRecord) error {
	if err := q.repo.Save(ctx, record); err != nil {
		return fmt.Errorf("failed to save quota: %w", err)
	}
	return nil
}
