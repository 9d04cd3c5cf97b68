package repository

import (
	"context"
	"errors"

	"lockproxy/internal/models"

	"gorm.io/gorm"
)

// ErrReleaseRequestNotFound no request with the given id
var ErrReleaseRequestNotFound = errors.New("release request not found")

// ReleaseRequestRepository defines data access for deferred release requests
type ReleaseRequestRepository interface {
	Create(ctx context.Context, request *models.ReleaseRequest) error
	GetByID(ctx context.Context, id uint64) (*models.ReleaseRequest, error)
	Update(ctx context.Context, request *models.ReleaseRequest) error

	// FindByStatus lists requests newest first; an empty status lists all
	FindByStatus(ctx context.Context, status models.ReleaseRequestStatus, page, pageSize int) ([]*models.ReleaseRequest, int64, error)
	CountByStatus(ctx context.Context, status models.ReleaseRequestStatus) (int64, error)

	AppendAudit(ctx context.Context, audit *models.ReleaseRequestAudit) error
	ListAudit(ctx context.Context, requestID uint64) ([]*models.ReleaseRequestAudit, error)
}

type releaseRequestRepository struct {
	db *gorm.DB
}

// NewReleaseRequestRepository creates a new ReleaseRequestRepository instance
func NewReleaseRequestRepository(db *gorm.DB) ReleaseRequestRepository {
	return &releaseRequestRepository{db: db}
}

func (r *releaseRequestRepository) Create(ctx context.Context, request *models.ReleaseRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *releaseRequestRepository) GetByID(ctx context.Context, id uint64) (*models.ReleaseRequest, error) {
	var request models.ReleaseRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReleaseRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *releaseRequestRepository) Update(ctx context.Context, request *models.ReleaseRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

func (r *releaseRequestRepository) FindByStatus(ctx context.Context, status models.ReleaseRequestStatus, page, pageSize int) ([]*models.ReleaseRequest, int64, error) {
	var requests []*models.ReleaseRequest
	var total int64

	query := r.db.WithContext(ctx).Model(&models.ReleaseRequest{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize
	err := query.
		Order("id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&requests).Error

	return requests, total, err
}

func (r *releaseRequestRepository) CountByStatus(ctx context.Context, status models.ReleaseRequestStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReleaseRequest{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *releaseRequestRepository) AppendAudit(ctx context.Context, audit *models.ReleaseRequestAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}

func (r *releaseRequestRepository) ListAudit(ctx context.Context, requestID uint64) ([]*models.ReleaseRequestAudit, error) {
	var audits []*models.ReleaseRequestAudit
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id ASC").
		Find(&audits).Error
	return audits, err
}
