package repository

import (
	"context"
	"time"

	"lockproxy/internal/models"

	"gorm.io/gorm"
)

// OutboundMessageRepository defines data access for lock events
type OutboundMessageRepository interface {
	Create(ctx context.Context, message *models.OutboundMessage) error
	UpdateStatus(ctx context.Context, id string, status models.OutboundStatus, at time.Time) error
	FindBySender(ctx context.Context, sender string, page, pageSize int) ([]*models.OutboundMessage, int64, error)
}

type outboundMessageRepository struct {
	db *gorm.DB
}

// NewOutboundMessageRepository creates a new OutboundMessageRepository instance
func NewOutboundMessageRepository(db *gorm.DB) OutboundMessageRepository {
	return &outboundMessageRepository{db: db}
}

func (r *outboundMessageRepository) Create(ctx context.Context, message *models.OutboundMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *outboundMessageRepository) UpdateStatus(ctx context.Context, id string, status models.OutboundStatus, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OutboundMessage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": at}).Error
}

// FindBySender finds lock events by sender with pagination.
// Reverted locks were refunded and are left out.
func (r *outboundMessageRepository) FindBySender(ctx context.Context, sender string, page, pageSize int) ([]*models.OutboundMessage, int64, error) {
	var messages []*models.OutboundMessage
	var total int64

	query := r.db.WithContext(ctx).Model(&models.OutboundMessage{}).
		Where("sender = ? AND status <> ?", sender, models.OutboundStatusReverted)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&messages).Error

	return messages, total, err
}
