package repository

import (
	"context"
	"errors"
	"fmt"

	"lockproxy/internal/models"

	"gorm.io/gorm"
)

// ErrGatewayNotInitialized the gateway_state row has not been bootstrapped
var ErrGatewayNotInitialized = errors.New("gateway state not initialized")

// GatewayStateRepository defines data access for the single gateway state row
type GatewayStateRepository interface {
	Get(ctx context.Context) (*models.GatewayState, error)
	Save(ctx context.Context, state *models.GatewayState) error
	// Bootstrap creates the row if it does not exist and returns the stored state
	Bootstrap(ctx context.Context, initial *models.GatewayState) (*models.GatewayState, error)
}

type gatewayStateRepository struct {
	db *gorm.DB
}

// NewGatewayStateRepository creates a new GatewayStateRepository instance
func NewGatewayStateRepository(db *gorm.DB) GatewayStateRepository {
	return &gatewayStateRepository{db: db}
}

// Get loads the gateway state
func (r *gatewayStateRepository) Get(ctx context.Context) (*models.GatewayState, error) {
	var state models.GatewayState
	err := r.db.WithContext(ctx).Where("id = ?", models.GatewayStateID).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrGatewayNotInitialized
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// Save writes the gateway state back
func (r *gatewayStateRepository) Save(ctx context.Context, state *models.GatewayState) error {
	state.ID = models.GatewayStateID
	return r.db.WithContext(ctx).Save(state).Error
}

// Bootstrap creates the row on first start; an existing row wins over config
func (r *gatewayStateRepository) Bootstrap(ctx context.Context, initial *models.GatewayState) (*models.GatewayState, error) {
	existing, err := r.Get(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrGatewayNotInitialized) {
		return nil, err
	}

	initial.ID = models.GatewayStateID
	if err := r.db.WithContext(ctx).Create(initial).Error; err != nil {
		return nil, fmt.Errorf("failed to create gateway state: %w", err)
	}
	return initial, nil
}
