package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// IsEvmAddress checks whether address is a 0x-prefixed 20 byte hex string
func IsEvmAddress(address string) bool {
	if !strings.HasPrefix(strings.ToLower(address), "0x") {
		return false
	}
	return common.IsHexAddress(address)
}

// ParseAddress parses a 0x-prefixed EVM address
func ParseAddress(address string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !IsEvmAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address: %q", address)
	}
	return common.HexToAddress(address), nil
}

// EncodeHash hex encodes a cross-chain identity; empty input stays empty
func EncodeHash(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return hexutil.Encode(b)
}

// DecodeHash decodes a hex identity written by EncodeHash.
// "" and "0x" both decode to an empty hash.
func DecodeHash(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" || s == "0X" {
		return nil, nil
	}
	if !strings.HasPrefix(strings.ToLower(s), "0x") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}
	return b, nil
}

// ParseAmount parses a non-negative uint256 decimal string
func ParseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %q", s)
	}
	if v.BitLen() > 256 {
		return nil, fmt.Errorf("amount overflows uint256: %q", s)
	}
	return v, nil
}
