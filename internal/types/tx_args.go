package types

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// MethodUnlock is the only method a gateway asks its counterpart to run
const MethodUnlock = "unlock"

var txArgsArguments abi.Arguments

func init() {
	bytesType, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	txArgsArguments = abi.Arguments{
		{Name: "toAssetHash", Type: bytesType},
		{Name: "toAddress", Type: bytesType},
		{Name: "amount", Type: uint256Type},
	}
}

// TxArgs cross-chain payload of a lock: {destAssetId, destAddress, amount}
type TxArgs struct {
	ToAssetHash []byte
	ToAddress   []byte
	Amount      *big.Int
}

// Encode ABI encodes the payload
func (a *TxArgs) Encode() ([]byte, error) {
	if a.Amount == nil || a.Amount.Sign() < 0 {
		return nil, errors.New("tx args amount must be a non-negative integer")
	}
	return txArgsArguments.Pack(a.ToAssetHash, a.ToAddress, a.Amount)
}

// DecodeTxArgs decodes a payload written by Encode
func DecodeTxArgs(data []byte) (*TxArgs, error) {
	values, err := txArgsArguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tx args: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("failed to decode tx args: got %d fields", len(values))
	}

	toAssetHash, ok1 := values[0].([]byte)
	toAddress, ok2 := values[1].([]byte)
	amount, ok3 := values[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return nil, errors.New("failed to decode tx args: unexpected field types")
	}

	return &TxArgs{
		ToAssetHash: toAssetHash,
		ToAddress:   toAddress,
		Amount:      amount,
	}, nil
}

// Envelope outbound cross-chain message handed to the messenger
type Envelope struct {
	ID            string        `json:"id"`
	FromChainID   uint64        `json:"from_chain_id"`
	FromProxyHash hexutil.Bytes `json:"from_proxy_hash"`
	ToChainID     uint64        `json:"to_chain_id"`
	ToProxyHash   hexutil.Bytes `json:"to_proxy_hash"`
	Method        string        `json:"method"`
	Args          hexutil.Bytes `json:"args"`
	Deadline      int64         `json:"deadline,omitempty"` // unix milliseconds, 0 means none
}

// Expired reports whether the envelope's deadline has passed at now
func (e *Envelope) Expired(now time.Time) bool {
	return e.Deadline > 0 && now.UnixMilli() >= e.Deadline
}

// DeadlineTime returns the deadline and whether one is set
func (e *Envelope) DeadlineTime() (time.Time, bool) {
	if e.Deadline <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(e.Deadline), true
}
