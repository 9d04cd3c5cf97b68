package services

import (
	"context"
	"fmt"
	"time"

	"lockproxy/internal/models"
	"lockproxy/internal/repository"

	"github.com/ethereum/go-ethereum/common"
)

// AccessControl administrator, censor set, pause flag and trusted messenger.
// It works on the gateway state loaded for the current call; the gateway
// persists the state when the call commits.
type AccessControl struct {
	state   *models.GatewayState
	censors repository.CensorRepository
	now     func() time.Time
	dirty   bool
}

// NewAccessControl wraps a loaded gateway state
func NewAccessControl(state *models.GatewayState, censors repository.CensorRepository, now func() time.Time) *AccessControl {
	return &AccessControl{state: state, censors: censors, now: now}
}

func (a *AccessControl) Admin() common.Address {
	return common.HexToAddress(a.state.Admin)
}

func (a *AccessControl) ManagerProxy() common.Address {
	return common.HexToAddress(a.state.ManagerProxy)
}

func (a *AccessControl) Paused() bool {
	return a.state.Paused
}

// RequireAdmin fails unless caller is the administrator
func (a *AccessControl) RequireAdmin(caller common.Address) error {
	if caller != a.Admin() {
		return ErrNotAdmin
	}
	return nil
}

// RequireCensor fails unless caller is in the censor set
func (a *AccessControl) RequireCensor(ctx context.Context, caller common.Address) error {
	ok, err := a.IsCensor(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotCensor
	}
	return nil
}

// RequireNotPaused is the circuit breaker check of every transfer entry point
func (a *AccessControl) RequireNotPaused() error {
	if a.state.Paused {
		return ErrPaused
	}
	return nil
}

// RequireManager fails unless caller is the trusted cross-chain manager
func (a *AccessControl) RequireManager(caller common.Address) error {
	if a.state.ManagerProxy == "" {
		return ErrNoManagerProxy
	}
	if caller != a.ManagerProxy() {
		return ErrNotManager
	}
	return nil
}

func (a *AccessControl) IsCensor(ctx context.Context, address common.Address) (bool, error) {
	ok, err := a.censors.Exists(ctx, address.Hex())
	if err != nil {
		return false, fmt.Errorf("failed to check censor: %w", err)
	}
	return ok, nil
}

func (a *AccessControl) Pause(caller common.Address) error {
	if err := a.RequireAdmin(caller); err != nil {
		return err
	}
	if a.state.Paused {
		return ErrPaused
	}
	a.state.Paused = true
	a.dirty = true
	return nil
}

func (a *AccessControl) Unpause(caller common.Address) error {
	if err := a.RequireAdmin(caller); err != nil {
		return err
	}
	if !a.state.Paused {
		return ErrNotPaused
	}
	a.state.Paused = false
	a.dirty = true
	return nil
}

// TransferAdmin hands the administrator role to newAdmin
func (a *AccessControl) TransferAdmin(caller, newAdmin common.Address) error {
	if err := a.RequireAdmin(caller); err != nil {
		return err
	}
	if newAdmin == (common.Address{}) {
		return ErrZeroAdmin
	}
	a.state.Admin = newAdmin.Hex()
	a.dirty = true
	return nil
}

// SetManagerProxy records the messenger identity inbound calls must come from
func (a *AccessControl) SetManagerProxy(caller, manager common.Address) error {
	if err := a.RequireAdmin(caller); err != nil {
		return err
	}
	if manager == (common.Address{}) {
		return ErrZeroManager
	}
	a.state.ManagerProxy = manager.Hex()
	a.dirty = true
	return nil
}

// AddCensor is idempotent
func (a *AccessControl) AddCensor(ctx context.Context, caller, censor common.Address) error {
	if err := a.RequireAdmin(caller); err != nil {
		return err
	}
	return a.censors.Add(ctx, &models.Censor{
		Address:   censor.Hex(),
		AddedBy:   caller.Hex(),
		CreatedAt: a.now(),
	})
}

// RemoveCensor is idempotent
func (a *AccessControl) RemoveCensor(ctx context.Context, caller, censor common.Address) error {
	if err := a.RequireAdmin(caller); err != nil {
		return err
	}
	return a.censors.Remove(ctx, censor.Hex())
}

// Dirty reports whether the gateway state changed during this call
func (a *AccessControl) Dirty() bool {
	return a.dirty
}
