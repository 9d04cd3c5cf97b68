package services

import (
	"context"
	"math/big"

	"lockproxy/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
)

//go:generate mockgen -destination=mock/collaborators_mock.go -package=mock lockproxy/internal/services AssetLedger,Messenger

// AssetLedger token contract the gateway pulls value into and releases value from
type AssetLedger interface {
	// TransferFrom moves amount of asset from owner to to, spent by the gateway custody account
	TransferFrom(ctx context.Context, asset, owner, to common.Address, amount *big.Int) error
	// Transfer moves amount of asset out of from (the custody account) to to
	Transfer(ctx context.Context, asset, from, to common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error)
}

// TxLedger is implemented by ledgers that can join the gateway's database transaction
type TxLedger interface {
	WithTx(tx *gorm.DB) AssetLedger
}

// Messenger relays outbound messages to the destination chain
type Messenger interface {
	SendMessage(ctx context.Context, envelope *types.Envelope) error
}

// ReviewNotifier receives release request transitions after commit
type ReviewNotifier interface {
	NotifyReleaseRequest(event ReviewEvent)
}

// ReviewEvent a committed release request transition
type ReviewEvent struct {
	Action    string `json:"action"`
	RequestID uint64 `json:"request_id"`
	Status    string `json:"status"`
	ToAsset   string `json:"to_asset"`
	ToAddress string `json:"to_address"`
	Amount    string `json:"amount"`
	Actor     string `json:"actor"`
}
