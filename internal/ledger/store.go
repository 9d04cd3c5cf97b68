package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"lockproxy/internal/models"
	"lockproxy/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ERC20: insufficient allowance")
	ErrInvalidAmount         = errors.New("ERC20: invalid amount")
)

var (
	_ services.AssetLedger = (*Store)(nil)
	_ services.TxLedger    = (*Store)(nil)
)

// Store ERC-20 style token ledger kept in the gateway database.
// Used by embedded deployments and tests; WithTx joins the gateway's call transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx returns a ledger bound to tx
func (s *Store) WithTx(tx *gorm.DB) services.AssetLedger {
	return &Store{db: tx}
}

// Mint credits amount of asset to holder
func (s *Store) Mint(ctx context.Context, asset, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return credit(tx, asset, to, amount)
	})
}

// Approve sets the allowance of spender over owner's asset
func (s *Store) Approve(ctx context.Context, asset, owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&models.AssetAllowance{
			AssetAddress: asset.Hex(),
			Owner:        owner.Hex(),
			Spender:      spender.Hex(),
			Amount:       amount.String(),
			UpdatedAt:    time.Now(),
		}).Error
}

func (s *Store) Allowance(ctx context.Context, asset, owner, spender common.Address) (*big.Int, error) {
	var allowance models.AssetAllowance
	err := s.db.WithContext(ctx).
		Where("asset_address = ? AND owner = ? AND spender = ?", asset.Hex(), owner.Hex(), spender.Hex()).
		First(&allowance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return parse(allowance.Amount), nil
}

func (s *Store) BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	return balanceOf(s.db.WithContext(ctx), asset, holder)
}

// TransferFrom spends to's allowance over owner and moves amount from owner to to
func (s *Store) TransferFrom(ctx context.Context, asset, owner, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		allowance, err := NewStore(tx).Allowance(ctx, asset, owner, to)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		remaining := new(big.Int).Sub(allowance, amount)
		if err := NewStore(tx).Approve(ctx, asset, owner, to, remaining); err != nil {
			return err
		}
		return move(tx, asset, owner, to, amount)
	})
}

func (s *Store) Transfer(ctx context.Context, asset, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return move(tx, asset, from, to, amount)
	})
}

func move(tx *gorm.DB, asset, from, to common.Address, amount *big.Int) error {
	balance, err := balanceOf(tx, asset, from)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficientBalance, from.Hex(), balance, amount)
	}
	if err := save(tx, asset, from, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	return credit(tx, asset, to, amount)
}

func credit(tx *gorm.DB, asset, to common.Address, amount *big.Int) error {
	balance, err := balanceOf(tx, asset, to)
	if err != nil {
		return err
	}
	return save(tx, asset, to, new(big.Int).Add(balance, amount))
}

func balanceOf(db *gorm.DB, asset, holder common.Address) (*big.Int, error) {
	var balance models.AssetBalance
	err := db.Where("asset_address = ? AND holder = ?", asset.Hex(), holder.Hex()).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}
	return parse(balance.Amount), nil
}

func save(tx *gorm.DB, asset, holder common.Address, amount *big.Int) error {
	err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&models.AssetBalance{
		AssetAddress: asset.Hex(),
		Holder:       holder.Hex(),
		Amount:       amount.String(),
		UpdatedAt:    time.Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func parse(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
