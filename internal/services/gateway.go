package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"lockproxy/internal/metrics"
	"lockproxy/internal/models"
	"lockproxy/internal/repository"
	"lockproxy/internal/types"
	"lockproxy/internal/utils"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GatewayOptions collaborators and identity of one gateway instance
type GatewayOptions struct {
	ChainID   uint64
	Address   common.Address // identity hash sent to counterparts and custody account
	Mode      models.GatewayMode
	Ledger    AssetLedger
	Messenger Messenger
	Notifier  ReviewNotifier // optional
	Clock     clock.Clock    // optional, defaults to the wall clock
	Logger    *logrus.Logger // optional
}

// BootstrapParams values that seed an empty gateway database
type BootstrapParams struct {
	Admin        common.Address
	ManagerProxy common.Address
	Censors      []common.Address
}

// UnlockResult outcome of an inbound message
type UnlockResult struct {
	Released  bool   `json:"released"`
	RequestID uint64 `json:"request_id,omitempty"` // set when the release was queued for review
}

// Gateway lock / unlock facade. Every state change holds the gateway mutex
// and runs as one database transaction. Outbound relay happens after the
// lock commits and never under the mutex.
type Gateway struct {
	mu        sync.Mutex
	db        *gorm.DB
	chainID   uint64
	address   common.Address
	mode      models.GatewayMode
	ledger    AssetLedger
	messenger Messenger
	notifier  ReviewNotifier
	clock     clock.Clock
	logger    *logrus.Logger
}

// NewGateway creates a gateway over db
func NewGateway(db *gorm.DB, opts GatewayOptions) (*Gateway, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("invalid gateway mode: %q", opts.Mode)
	}
	if opts.Ledger == nil || opts.Messenger == nil {
		return nil, errors.New("gateway requires an asset ledger and a messenger")
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Gateway{
		db:        db,
		chainID:   opts.ChainID,
		address:   opts.Address,
		mode:      opts.Mode,
		ledger:    opts.Ledger,
		messenger: opts.Messenger,
		notifier:  opts.Notifier,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}, nil
}

func (g *Gateway) ChainID() uint64 {
	return g.chainID
}

func (g *Gateway) Address() common.Address {
	return g.address
}

func (g *Gateway) Mode() models.GatewayMode {
	return g.mode
}

// Bootstrap creates the gateway state row and initial censors on first start.
// A stored state wins over params; a stored mode that differs from the
// configured one is refused.
func (g *Gateway) Bootstrap(ctx context.Context, params BootstrapParams) (*models.GatewayState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if params.Admin == (common.Address{}) {
		return nil, ErrZeroAdmin
	}

	var state *models.GatewayState
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)
		_, err := repos.State.Get(ctx)
		fresh := errors.Is(err, repository.ErrGatewayNotInitialized)
		if err != nil && !fresh {
			return err
		}

		initial := &models.GatewayState{Admin: params.Admin.Hex(), Mode: g.mode}
		if params.ManagerProxy != (common.Address{}) {
			initial.ManagerProxy = params.ManagerProxy.Hex()
		}
		state, err = repos.State.Bootstrap(ctx, initial)
		if err != nil {
			return err
		}
		if state.Mode != g.mode {
			return fmt.Errorf("stored gateway mode %q does not match configured mode %q", state.Mode, g.mode)
		}
		if !fresh {
			return nil
		}
		for _, censor := range params.Censors {
			if err := repos.Censors.Add(ctx, &models.Censor{Address: censor.Hex(), AddedBy: params.Admin.Hex(), CreatedAt: g.clock.Now()}); err != nil {
				return fmt.Errorf("failed to seed censor: %w", err)
			}
		}
		g.logger.WithFields(logrus.Fields{
			"chain_id": g.chainID,
			"mode":     g.mode,
			"admin":    state.Admin,
			"censors":  len(params.Censors),
		}).Info("🚀 Gateway state initialized")
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.SetGatewayPaused(state.Paused)
	return state, nil
}

// callScope components bound to the transaction of one call
type callScope struct {
	repos    *repository.Repositories
	state    *models.GatewayState
	access   *AccessControl
	bindings *BindingRegistry
	quotas   *QuotaLedger
	queue    *RequestQueue
	ledger   AssetLedger
}

func (g *Gateway) execute(ctx context.Context, operation string, fn func(s *callScope) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	// 等锁期间调用方可能已超时
	if err := ctx.Err(); err != nil {
		metrics.GatewayCalls.WithLabelValues(operation, string(KindInternal)).Inc()
		return err
	}

	start := g.clock.Now()
	var events []ReviewEvent
	var paused bool

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := repository.New(tx)
		state, err := repos.State.Get(ctx)
		if errors.Is(err, repository.ErrGatewayNotInitialized) {
			return ErrGatewayUninitiated
		}
		if err != nil {
			return fmt.Errorf("failed to load gateway state: %w", err)
		}
		latestRequestID := state.LatestRequestID

		ledger := g.ledger
		if txLedger, ok := g.ledger.(TxLedger); ok {
			ledger = txLedger.WithTx(tx)
		}

		s := &callScope{
			repos:    repos,
			state:    state,
			access:   NewAccessControl(state, repos.Censors, g.clock.Now),
			bindings: NewBindingRegistry(repos.Bindings, g.clock.Now),
			quotas:   NewQuotaLedger(repos.Quotas, g.clock.Now),
			queue:    NewRequestQueue(repos.Requests, state, g.clock.Now),
			ledger:   ledger,
		}
		if err := fn(s); err != nil {
			return err
		}

		if s.access.Dirty() || state.LatestRequestID != latestRequestID {
			if err := repos.State.Save(ctx, state); err != nil {
				return fmt.Errorf("failed to save gateway state: %w", err)
			}
		}
		events = s.queue.Events()
		paused = state.Paused
		return nil
	})

	metrics.GatewayCallDuration.WithLabelValues(operation).Observe(g.clock.Since(start).Seconds())
	if err != nil {
		metrics.GatewayCalls.WithLabelValues(operation, string(KindOf(err))).Inc()
		return err
	}
	metrics.GatewayCalls.WithLabelValues(operation, "ok").Inc()
	metrics.SetGatewayPaused(paused)

	for _, event := range events {
		metrics.ReleaseRequestTransitions.WithLabelValues(event.Action).Inc()
		if g.notifier != nil {
			g.notifier.NotifyReleaseRequest(event)
		}
	}
	if len(events) > 0 {
		g.refreshPendingGauge(ctx)
	}
	return nil
}

func (g *Gateway) refreshPendingGauge(ctx context.Context) {
	count, err := repository.NewReleaseRequestRepository(g.db).CountByStatus(ctx, models.ReleaseRequestStatusPending)
	if err != nil {
		g.logger.WithError(err).Warn("⚠️ Failed to count pending release requests")
		return
	}
	metrics.PendingReleaseRequests.Set(float64(count))
}

// release moves amount out of custody inside the current call
func (g *Gateway) release(s *callScope) releaseFunc {
	return func(ctx context.Context, asset, to common.Address, amount *big.Int) error {
		if err := s.ledger.Transfer(ctx, asset, g.address, to, amount); err != nil {
			return fmt.Errorf("failed to release %s to %s: %w", asset.Hex(), to.Hex(), err)
		}
		return nil
	}
}

// Lock pulls amount of fromAsset from caller into custody and relays an
// unlock message to the counterpart gateway on toChainID. The custody
// transfer commits before the relay; a failed relay refunds the caller.
func (g *Gateway) Lock(ctx context.Context, caller, fromAsset common.Address, toChainID uint64, toAddress []byte, amount *big.Int) (*models.OutboundMessage, error) {
	var message *models.OutboundMessage
	var envelope *types.Envelope
	err := g.execute(ctx, "lock", func(s *callScope) error {
		if err := s.access.RequireNotPaused(); err != nil {
			return err
		}
		if amount == nil || amount.Sign() <= 0 {
			return ErrZeroAmount
		}
		if len(toAddress) == 0 {
			return ErrEmptyToAddress
		}

		toAssetHash, err := s.bindings.AssetHash(ctx, fromAsset, toChainID)
		if err != nil {
			return err
		}
		if len(toAssetHash) == 0 {
			return ErrEmptyToAssetHash
		}
		toProxyHash, err := s.bindings.ProxyHash(ctx, toChainID)
		if err != nil {
			return err
		}
		if len(toProxyHash) == 0 {
			return ErrEmptyToProxyHash
		}

		if err := s.ledger.TransferFrom(ctx, fromAsset, caller, g.address, amount); err != nil {
			return fmt.Errorf("failed to transfer asset into custody: %w", err)
		}

		args := &types.TxArgs{ToAssetHash: toAssetHash, ToAddress: toAddress, Amount: amount}
		payload, err := args.Encode()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}

		now := g.clock.Now()
		message = &models.OutboundMessage{
			ID:          uuid.NewString(),
			ToChainID:   toChainID,
			ToProxyHash: utils.EncodeHash(toProxyHash),
			FromAsset:   fromAsset.Hex(),
			ToAssetHash: utils.EncodeHash(toAssetHash),
			Sender:      caller.Hex(),
			ToAddress:   utils.EncodeHash(toAddress),
			Amount:      amount.String(),
			Payload:     utils.EncodeHash(payload),
			Status:      models.OutboundStatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.repos.Outbound.Create(ctx, message); err != nil {
			return fmt.Errorf("failed to save lock event: %w", err)
		}

		envelope = &types.Envelope{
			ID:            message.ID,
			FromChainID:   g.chainID,
			FromProxyHash: g.address.Bytes(),
			ToChainID:     toChainID,
			ToProxyHash:   toProxyHash,
			Method:        types.MethodUnlock,
			Args:          payload,
		}
		return nil
	})
	if err == nil {
		// 提交后、锁外中继；等待时长由 messenger 控制，不跟随调用方取消
		relayCtx := context.WithoutCancel(ctx)
		if relayErr := g.messenger.SendMessage(relayCtx, envelope); relayErr != nil {
			err = g.revertLock(relayCtx, message, fromAsset, caller, amount, relayErr)
		} else {
			g.setOutboundStatus(relayCtx, message, models.OutboundStatusSent)
		}
	}
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"asset":    fromAsset.Hex(),
			"chain_id": toChainID,
			"caller":   caller.Hex(),
			"amount":   amount.String(),
		}).WithError(err).Warn("❌ Lock failed")
		return nil, err
	}

	metrics.AssetsLocked.WithLabelValues(fromAsset.Hex(), strconv.FormatUint(toChainID, 10)).Inc()
	g.logger.WithFields(logrus.Fields{
		"message_id": message.ID,
		"asset":      fromAsset.Hex(),
		"chain_id":   toChainID,
		"caller":     caller.Hex(),
		"amount":     message.Amount,
	}).Info("🔒 Asset locked")
	return message, nil
}

// revertLock refunds a committed lock whose relay failed and returns the
// error Lock reports.
func (g *Gateway) revertLock(ctx context.Context, message *models.OutboundMessage, asset, sender common.Address, amount *big.Int, relayErr error) error {
	err := g.execute(ctx, "lock_revert", func(s *callScope) error {
		if err := s.ledger.Transfer(ctx, asset, g.address, sender, amount); err != nil {
			return fmt.Errorf("failed to refund %s to %s: %w", asset.Hex(), sender.Hex(), err)
		}
		return s.repos.Outbound.UpdateStatus(ctx, message.ID, models.OutboundStatusReverted, g.clock.Now())
	})
	entry := g.logger.WithFields(logrus.Fields{
		"message_id": message.ID,
		"asset":      asset.Hex(),
		"sender":     sender.Hex(),
		"amount":     message.Amount,
	})
	if err != nil {
		g.setOutboundStatus(ctx, message, models.OutboundStatusRefundFailed)
		entry.WithError(err).Error("🚨 Lock refund failed, amount stays in custody")
		return fmt.Errorf("failed to relay cross-chain message: %w (refund failed: %v)", relayErr, err)
	}
	message.Status = models.OutboundStatusReverted
	entry.WithError(relayErr).Warn("↩️ Relay failed, lock refunded")
	return fmt.Errorf("failed to relay cross-chain message: %w", relayErr)
}

func (g *Gateway) setOutboundStatus(ctx context.Context, message *models.OutboundMessage, status models.OutboundStatus) {
	now := g.clock.Now()
	if err := repository.NewOutboundMessageRepository(g.db).UpdateStatus(ctx, message.ID, status, now); err != nil {
		g.logger.WithField("message_id", message.ID).WithError(err).Warn("⚠️ Failed to update lock event status")
		return
	}
	message.Status = status
	message.UpdatedAt = now
}

// Unlock handles an inbound message delivered by the trusted manager.
// payload is the ABI encoded TxArgs written by the counterpart's Lock.
func (g *Gateway) Unlock(ctx context.Context, caller common.Address, payload, fromProxyHash []byte, fromChainID uint64) (*UnlockResult, error) {
	return g.Receive(ctx, caller, &types.Envelope{
		FromChainID:   fromChainID,
		FromProxyHash: fromProxyHash,
		ToChainID:     g.chainID,
		Method:        types.MethodUnlock,
		Args:          payload,
	})
}

// Receive handles an inbound envelope delivered by the trusted manager.
// An envelope carrying an id is handled at most once per source chain; the
// id is recorded in the same transaction as the release.
func (g *Gateway) Receive(ctx context.Context, caller common.Address, envelope *types.Envelope) (*UnlockResult, error) {
	result := &UnlockResult{}
	var asset common.Address
	var amount *big.Int
	fromChainID := envelope.FromChainID

	err := g.execute(ctx, "unlock", func(s *callScope) error {
		if envelope.Method != types.MethodUnlock {
			return ErrUnsupportedMethod
		}
		if envelope.ToChainID != g.chainID {
			return ErrWrongDestination
		}
		if err := s.access.RequireManager(caller); err != nil {
			return err
		}
		if err := s.access.RequireNotPaused(); err != nil {
			return err
		}

		expected, err := s.bindings.ProxyHash(ctx, fromChainID)
		if err != nil {
			return err
		}
		if len(expected) == 0 || !bytes.Equal(expected, envelope.FromProxyHash) {
			return ErrFromProxyMismatch
		}

		if envelope.ID != "" {
			seen, err := s.repos.Inbound.Exists(ctx, fromChainID, envelope.ID)
			if err != nil {
				return fmt.Errorf("failed to check inbound message: %w", err)
			}
			if seen {
				return ErrDuplicateMessage
			}
		}

		asset, amount, err = g.admit(ctx, s, caller, envelope, result)
		if err != nil {
			return err
		}
		if envelope.ID == "" {
			return nil
		}
		err = s.repos.Inbound.Create(ctx, &models.InboundMessage{
			FromChainID: fromChainID,
			ID:          envelope.ID,
			Released:    result.Released,
			RequestID:   result.RequestID,
			CreatedAt:   g.clock.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to record inbound message: %w", err)
		}
		return nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %v", ErrMessageExpired, err)
	}
	if err != nil {
		g.logger.WithFields(logrus.Fields{
			"message_id": envelope.ID,
			"chain_id":   fromChainID,
			"caller":     caller.Hex(),
		}).WithError(err).Warn("❌ Unlock rejected")
		return nil, err
	}

	fields := logrus.Fields{
		"message_id": envelope.ID,
		"asset":      asset.Hex(),
		"chain_id":   fromChainID,
		"amount":     amount.String(),
	}
	if result.Released {
		metrics.AssetsReleased.WithLabelValues(asset.Hex(), "direct").Inc()
		g.logger.WithFields(fields).Info("🔓 Asset released")
	} else {
		fields["request_id"] = result.RequestID
		g.logger.WithFields(fields).Info("⏳ Quota exceeded, release request queued for review")
	}
	return result, nil
}

// admit decodes the payload and releases, refuses or queues it per mode
func (g *Gateway) admit(ctx context.Context, s *callScope, caller common.Address, envelope *types.Envelope, result *UnlockResult) (common.Address, *big.Int, error) {
	args, err := types.DecodeTxArgs(envelope.Args)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(args.ToAssetHash) == 0 {
		return common.Address{}, nil, ErrEmptyToAssetHash
	}
	if len(args.ToAddress) == 0 {
		return common.Address{}, nil, ErrEmptyToAddress
	}
	if len(args.ToAssetHash) != common.AddressLength || len(args.ToAddress) != common.AddressLength {
		return common.Address{}, nil, fmt.Errorf("%w: asset and recipient must be %d byte addresses", ErrInvalidPayload, common.AddressLength)
	}
	asset := common.BytesToAddress(args.ToAssetHash)
	to := common.BytesToAddress(args.ToAddress)
	amount := args.Amount

	back, err := s.bindings.AssetHash(ctx, asset, envelope.FromChainID)
	if err != nil {
		return asset, amount, err
	}
	if len(back) == 0 {
		return asset, amount, ErrToAssetNotBound
	}

	release := g.release(s)
	if g.mode == models.GatewayModeUnlimited {
		result.Released = true
		return asset, amount, release(ctx, asset, to, amount)
	}

	ok, err := s.quotas.CheckAndConsume(ctx, asset, amount, g.clock.Now().Unix())
	if err != nil {
		return asset, amount, err
	}
	if ok {
		result.Released = true
		return asset, amount, release(ctx, asset, to, amount)
	}

	metrics.QuotaDenials.WithLabelValues(asset.Hex(), string(g.mode)).Inc()
	if g.mode == models.GatewayModeLimited {
		return asset, amount, ErrLimitReached
	}

	request, err := s.queue.Enqueue(ctx, caller, envelope.FromChainID, utils.EncodeHash(envelope.FromProxyHash), ReleaseArgs{
		ToAsset:   asset,
		ToAddress: to,
		Amount:    amount,
	})
	if err != nil {
		return asset, amount, err
	}
	result.RequestID = request.ID
	return asset, amount, nil
}

// ============================================
// 管理员操作
// ============================================

func (g *Gateway) SetManagerProxy(ctx context.Context, caller, manager common.Address) error {
	return g.adminCall(ctx, "set_manager_proxy", caller, func(s *callScope) error {
		return s.access.SetManagerProxy(caller, manager)
	})
}

func (g *Gateway) BindProxyHash(ctx context.Context, caller common.Address, chainID uint64, proxyHash []byte) error {
	return g.adminCall(ctx, "bind_proxy_hash", caller, func(s *callScope) error {
		if err := s.access.RequireAdmin(caller); err != nil {
			return err
		}
		return s.bindings.BindProxyHash(ctx, caller, chainID, proxyHash)
	})
}

func (g *Gateway) BindAssetHash(ctx context.Context, caller, fromAsset common.Address, chainID uint64, toAssetHash []byte) error {
	return g.adminCall(ctx, "bind_asset_hash", caller, func(s *callScope) error {
		if err := s.access.RequireAdmin(caller); err != nil {
			return err
		}
		return s.bindings.BindAssetHash(ctx, caller, fromAsset, chainID, toAssetHash)
	})
}

func (g *Gateway) SetQuota(ctx context.Context, caller, asset common.Address, limit *big.Int) error {
	return g.adminCall(ctx, "set_quota", caller, func(s *callScope) error {
		if err := s.access.RequireAdmin(caller); err != nil {
			return err
		}
		return s.quotas.SetQuota(ctx, asset, limit)
	})
}

// SetLimitForToken is SetQuota under the reviewable variant's name
func (g *Gateway) SetLimitForToken(ctx context.Context, caller, asset common.Address, limit *big.Int) error {
	if g.mode != models.GatewayModeReviewable {
		return ErrModeNotSupported
	}
	return g.adminCall(ctx, "set_limit_for_token", caller, func(s *callScope) error {
		if err := s.access.RequireAdmin(caller); err != nil {
			return err
		}
		return s.quotas.SetQuota(ctx, asset, limit)
	})
}

func (g *Gateway) SetRefreshPeriod(ctx context.Context, caller, asset common.Address, period int64) error {
	return g.adminCall(ctx, "set_refresh_period", caller, func(s *callScope) error {
		if err := s.access.RequireAdmin(caller); err != nil {
			return err
		}
		return s.quotas.SetRefreshPeriod(ctx, asset, period)
	})
}

func (g *Gateway) Pause(ctx context.Context, caller common.Address) error {
	return g.adminCall(ctx, "pause", caller, func(s *callScope) error {
		return s.access.Pause(caller)
	})
}

func (g *Gateway) Unpause(ctx context.Context, caller common.Address) error {
	return g.adminCall(ctx, "unpause", caller, func(s *callScope) error {
		return s.access.Unpause(caller)
	})
}

func (g *Gateway) TransferAdmin(ctx context.Context, caller, newAdmin common.Address) error {
	return g.adminCall(ctx, "transfer_admin", caller, func(s *callScope) error {
		return s.access.TransferAdmin(caller, newAdmin)
	})
}

func (g *Gateway) AddCensor(ctx context.Context, caller, censor common.Address) error {
	if g.mode != models.GatewayModeReviewable {
		return ErrModeNotSupported
	}
	return g.adminCall(ctx, "add_censor", caller, func(s *callScope) error {
		return s.access.AddCensor(ctx, caller, censor)
	})
}

func (g *Gateway) RemoveCensor(ctx context.Context, caller, censor common.Address) error {
	if g.mode != models.GatewayModeReviewable {
		return ErrModeNotSupported
	}
	return g.adminCall(ctx, "remove_censor", caller, func(s *callScope) error {
		return s.access.RemoveCensor(ctx, caller, censor)
	})
}

// RemoveBannedRequest voids a banned request for good
func (g *Gateway) RemoveBannedRequest(ctx context.Context, caller common.Address, id uint64) error {
	if g.mode != models.GatewayModeReviewable {
		return ErrModeNotSupported
	}
	return g.adminCall(ctx, "remove_banned_request", caller, func(s *callScope) error {
		if err := s.access.RequireAdmin(caller); err != nil {
			return err
		}
		_, err := s.queue.Remove(ctx, caller, id)
		return err
	})
}

func (g *Gateway) adminCall(ctx context.Context, operation string, caller common.Address, fn func(s *callScope) error) error {
	err := g.execute(ctx, operation, fn)
	entry := g.logger.WithFields(logrus.Fields{
		"operation": operation,
		"caller":    caller.Hex(),
	})
	if err != nil {
		entry.WithError(err).Warn("⚠️ Admin operation rejected")
		return err
	}
	entry.Info("🔧 Admin operation applied")
	return nil
}

// ============================================
// 审核员操作
// ============================================

// Approve releases a pending request; args must match the stored request
func (g *Gateway) Approve(ctx context.Context, caller common.Address, id uint64, args ReleaseArgs) error {
	return g.censorCall(ctx, "approve", caller, id, func(s *callScope) error {
		_, err := s.queue.Approve(ctx, caller, id, args, g.release(s))
		return err
	}, func() {
		metrics.AssetsReleased.WithLabelValues(args.ToAsset.Hex(), "approve").Inc()
	})
}

func (g *Gateway) Ban(ctx context.Context, caller common.Address, id uint64, note string) error {
	return g.censorCall(ctx, "ban", caller, id, func(s *callScope) error {
		_, err := s.queue.Ban(ctx, caller, id, note)
		return err
	}, nil)
}

// Unban releases a banned request directly
func (g *Gateway) Unban(ctx context.Context, caller common.Address, id uint64, note string, args ReleaseArgs) error {
	return g.censorCall(ctx, "unban", caller, id, func(s *callScope) error {
		_, err := s.queue.Unban(ctx, caller, id, note, args, g.release(s))
		return err
	}, func() {
		metrics.AssetsReleased.WithLabelValues(args.ToAsset.Hex(), "unban").Inc()
	})
}

func (g *Gateway) censorCall(ctx context.Context, operation string, caller common.Address, id uint64, fn func(s *callScope) error, onCommit func()) error {
	if g.mode != models.GatewayModeReviewable {
		return ErrModeNotSupported
	}
	err := g.execute(ctx, operation, func(s *callScope) error {
		if err := s.access.RequireCensor(ctx, caller); err != nil {
			return err
		}
		return fn(s)
	})
	entry := g.logger.WithFields(logrus.Fields{
		"operation":  operation,
		"caller":     caller.Hex(),
		"request_id": id,
	})
	if err != nil {
		entry.WithError(err).Warn("⚠️ Review action rejected")
		return err
	}
	if onCommit != nil {
		onCommit()
	}
	entry.Info("✅ Review action applied")
	return nil
}

// ============================================
// 只读接口
// ============================================

// State returns admin, manager proxy, pause flag, latest request id and mode
func (g *Gateway) State(ctx context.Context) (*models.GatewayState, error) {
	state, err := repository.NewGatewayStateRepository(g.db).Get(ctx)
	if errors.Is(err, repository.ErrGatewayNotInitialized) {
		return nil, ErrGatewayUninitiated
	}
	return state, err
}

func (g *Gateway) ManagerProxyContract(ctx context.Context) (common.Address, error) {
	state, err := g.State(ctx)
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(state.ManagerProxy), nil
}

func (g *Gateway) LatestRequestID(ctx context.Context) (uint64, error) {
	state, err := g.State(ctx)
	if err != nil {
		return 0, err
	}
	return state.LatestRequestID, nil
}

func (g *Gateway) IsCensor(ctx context.Context, address common.Address) (bool, error) {
	return repository.NewCensorRepository(g.db).Exists(ctx, address.Hex())
}

func (g *Gateway) Censors(ctx context.Context) ([]*models.Censor, error) {
	return repository.NewCensorRepository(g.db).List(ctx)
}

func (g *Gateway) ProxyHash(ctx context.Context, chainID uint64) ([]byte, error) {
	return NewBindingRegistry(repository.NewBindingRepository(g.db), g.clock.Now).ProxyHash(ctx, chainID)
}

func (g *Gateway) AssetHash(ctx context.Context, asset common.Address, chainID uint64) ([]byte, error) {
	return NewBindingRegistry(repository.NewBindingRepository(g.db), g.clock.Now).AssetHash(ctx, asset, chainID)
}

func (g *Gateway) Quota(ctx context.Context, asset common.Address) (*models.QuotaRecord, error) {
	return NewQuotaLedger(repository.NewQuotaRepository(g.db), g.clock.Now).Quota(ctx, asset)
}

func (g *Gateway) RefreshTimestamp(ctx context.Context, asset common.Address) (int64, error) {
	return NewQuotaLedger(repository.NewQuotaRepository(g.db), g.clock.Now).RefreshTimestamp(ctx, asset)
}

func (g *Gateway) Request(ctx context.Context, id uint64) (*models.ReleaseRequest, error) {
	request, err := repository.NewReleaseRequestRepository(g.db).GetByID(ctx, id)
	if errors.Is(err, repository.ErrReleaseRequestNotFound) {
		return nil, ErrRequestNotFound
	}
	return request, err
}

// ListRequests newest first; an empty status lists every request
func (g *Gateway) ListRequests(ctx context.Context, status models.ReleaseRequestStatus, page, pageSize int) ([]*models.ReleaseRequest, int64, error) {
	return repository.NewReleaseRequestRepository(g.db).FindByStatus(ctx, status, page, pageSize)
}

func (g *Gateway) RequestAudit(ctx context.Context, id uint64) ([]*models.ReleaseRequestAudit, error) {
	if _, err := g.Request(ctx, id); err != nil {
		return nil, err
	}
	return repository.NewReleaseRequestRepository(g.db).ListAudit(ctx, id)
}

// LockEvents lock events sent by sender, newest first
func (g *Gateway) LockEvents(ctx context.Context, sender common.Address, page, pageSize int) ([]*models.OutboundMessage, int64, error) {
	return repository.NewOutboundMessageRepository(g.db).FindBySender(ctx, sender.Hex(), page, pageSize)
}

// BalanceOf reads the asset ledger outside any call transaction
func (g *Gateway) BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	return g.ledger.BalanceOf(ctx, asset, holder)
}
