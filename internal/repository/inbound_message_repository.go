package repository

import (
	"context"

	"lockproxy/internal/models"

	"gorm.io/gorm"
)

// InboundMessageRepository defines data access for handled inbound messages
type InboundMessageRepository interface {
	Create(ctx context.Context, message *models.InboundMessage) error
	Exists(ctx context.Context, fromChainID uint64, id string) (bool, error)
}

type inboundMessageRepository struct {
	db *gorm.DB
}

// NewInboundMessageRepository creates a new InboundMessageRepository instance
func NewInboundMessageRepository(db *gorm.DB) InboundMessageRepository {
	return &inboundMessageRepository{db: db}
}

// Create records a handled message; a second record for the same
// (from_chain_id, id) fails on the primary key
func (r *inboundMessageRepository) Create(ctx context.Context, message *models.InboundMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *inboundMessageRepository) Exists(ctx context.Context, fromChainID uint64, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InboundMessage{}).
		Where("from_chain_id = ? AND id = ?", fromChainID, id).
		Count(&count).Error
	return count > 0, err
}
