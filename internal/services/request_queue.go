package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"lockproxy/internal/models"
	"lockproxy/internal/repository"

	"github.com/ethereum/go-ethereum/common"
)

// ReleaseArgs the release a censor asks for; it must match the stored request exactly
type ReleaseArgs struct {
	ToAsset   common.Address
	ToAddress common.Address
	Amount    *big.Int
}

// releaseFunc moves value out of custody
type releaseFunc func(ctx context.Context, asset, to common.Address, amount *big.Int) error

// RequestQueue deferred releases and their review lifecycle:
// pending -> approved, pending -> banned -> approved (unban) or removed
type RequestQueue struct {
	repo  repository.ReleaseRequestRepository
	state *models.GatewayState
	now   func() time.Time

	events []ReviewEvent
}

func NewRequestQueue(repo repository.ReleaseRequestRepository, state *models.GatewayState, now func() time.Time) *RequestQueue {
	return &RequestQueue{repo: repo, state: state, now: now}
}

// Enqueue stores a pending request under the next id and returns it.
// LatestRequestID is bumped on the loaded state; the gateway saves it.
func (q *RequestQueue) Enqueue(ctx context.Context, actor common.Address, fromChainID uint64, fromProxyHash string, args ReleaseArgs) (*models.ReleaseRequest, error) {
	q.state.LatestRequestID++
	request := &models.ReleaseRequest{
		ID:             q.state.LatestRequestID,
		Status:         models.ReleaseRequestStatusPending,
		FromChainID:    fromChainID,
		FromProxyHash:  fromProxyHash,
		ToAssetAddress: args.ToAsset.Hex(),
		ToAddress:      args.ToAddress.Hex(),
		Amount:         args.Amount.String(),
		CreatedAt:      q.now(),
		UpdatedAt:      q.now(),
	}
	if err := q.repo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create release request: %w", err)
	}
	if err := q.audit(ctx, request, models.ReleaseRequestActionCreate, actor, "", ""); err != nil {
		return nil, err
	}
	return request, nil
}

// Approve releases a pending request
func (q *RequestQueue) Approve(ctx context.Context, actor common.Address, id uint64, args ReleaseArgs, release releaseFunc) (*models.ReleaseRequest, error) {
	request, err := q.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ReleaseRequestStatusPending {
		return nil, ErrNotPendingRequest
	}
	if !matches(request, args) {
		return nil, ErrInvalidTxArgs
	}
	if err := release(ctx, args.ToAsset, args.ToAddress, args.Amount); err != nil {
		return nil, err
	}
	return request, q.transition(ctx, request, models.ReleaseRequestActionApprove, models.ReleaseRequestStatusApproved, actor, "")
}

// Ban freezes a pending request
func (q *RequestQueue) Ban(ctx context.Context, actor common.Address, id uint64, note string) (*models.ReleaseRequest, error) {
	request, err := q.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ReleaseRequestStatusPending {
		return nil, ErrNotPendingRequest
	}
	request.Note = note
	return request, q.transition(ctx, request, models.ReleaseRequestActionBan, models.ReleaseRequestStatusBanned, actor, note)
}

// Unban releases a banned request directly; it does not go back to pending
func (q *RequestQueue) Unban(ctx context.Context, actor common.Address, id uint64, note string, args ReleaseArgs, release releaseFunc) (*models.ReleaseRequest, error) {
	request, err := q.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ReleaseRequestStatusBanned {
		return nil, ErrNotBannedRequest
	}
	if !matches(request, args) {
		return nil, ErrInvalidTxArgs
	}
	if err := release(ctx, args.ToAsset, args.ToAddress, args.Amount); err != nil {
		return nil, err
	}
	request.Note = note
	return request, q.transition(ctx, request, models.ReleaseRequestActionUnban, models.ReleaseRequestStatusApproved, actor, note)
}

// Remove voids a banned request; the record stays for audit
func (q *RequestQueue) Remove(ctx context.Context, actor common.Address, id uint64) (*models.ReleaseRequest, error) {
	request, err := q.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.ReleaseRequestStatusBanned {
		return nil, ErrNotBannedRequest
	}
	return request, q.transition(ctx, request, models.ReleaseRequestActionRemove, models.ReleaseRequestStatusRemoved, actor, "")
}

// Events transitions made through this queue, published after commit
func (q *RequestQueue) Events() []ReviewEvent {
	return q.events
}

func (q *RequestQueue) load(ctx context.Context, id uint64) (*models.ReleaseRequest, error) {
	request, err := q.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrReleaseRequestNotFound) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load release request: %w", err)
	}
	return request, nil
}

func (q *RequestQueue) transition(ctx context.Context, request *models.ReleaseRequest, action models.ReleaseRequestAction, to models.ReleaseRequestStatus, actor common.Address, note string) error {
	from := request.Status
	request.Status = to
	request.UpdatedAt = q.now()
	if to.Terminal() {
		settled := q.now()
		request.SettledAt = &settled
	}
	if err := q.repo.Update(ctx, request); err != nil {
		return fmt.Errorf("failed to update release request: %w", err)
	}
	return q.audit(ctx, request, action, actor, from, note)
}

func (q *RequestQueue) audit(ctx context.Context, request *models.ReleaseRequest, action models.ReleaseRequestAction, actor common.Address, from models.ReleaseRequestStatus, note string) error {
	err := q.repo.AppendAudit(ctx, &models.ReleaseRequestAudit{
		RequestID:  request.ID,
		Action:     action,
		Actor:      actor.Hex(),
		FromStatus: from,
		ToStatus:   request.Status,
		Note:       note,
		CreatedAt:  q.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to append release request audit: %w", err)
	}
	q.events = append(q.events, ReviewEvent{
		Action:    string(action),
		RequestID: request.ID,
		Status:    string(request.Status),
		ToAsset:   request.ToAssetAddress,
		ToAddress: request.ToAddress,
		Amount:    request.Amount,
		Actor:     actor.Hex(),
	})
	return nil
}

func matches(request *models.ReleaseRequest, args ReleaseArgs) bool {
	if args.Amount == nil {
		return false
	}
	return request.ToAssetAddress == args.ToAsset.Hex() &&
		request.ToAddress == args.ToAddress.Hex() &&
		request.AmountValue().Cmp(args.Amount) == 0
}
