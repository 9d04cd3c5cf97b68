package ledger

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"lockproxy/internal/config"
	"lockproxy/internal/services"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

const erc20ABI = `[
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [{"name": "from", "type": "address"}, {"name": "to", "type": "address"}, {"name": "amount", "type": "uint256"}],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	}
]`

const defaultConfirmTimeout = 2 * time.Minute

var _ services.AssetLedger = (*ERC20Ledger)(nil)

// ChainClient the subset of ethclient.Client the ERC-20 ledger uses
type ChainClient interface {
	ethereum.ContractCaller
	ethereum.GasPricer
	ethereum.GasEstimator
	ethereum.TransactionSender
	bind.DeployBackend
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// ERC20Ledger moves real ERC-20 tokens, signing as the gateway custody account
type ERC20Ledger struct {
	client         ChainClient
	key            *ecdsa.PrivateKey
	custody        common.Address
	chainID        *big.Int
	gasLimit       uint64
	parsedABI      abi.ABI
	confirmTimeout time.Duration
	logger         *logrus.Logger
}

// DialERC20Ledger connects to cfg.RPCURL and loads the custody key
func DialERC20Ledger(cfg config.BlockchainConfig, logger *logrus.Logger) (*ERC20Ledger, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid custody private key: %w", err)
	}
	return NewERC20Ledger(client, key, big.NewInt(cfg.ChainID), cfg.GasLimit, logger)
}

func NewERC20Ledger(client ChainClient, key *ecdsa.PrivateKey, chainID *big.Int, gasLimit uint64, logger *logrus.Logger) (*ERC20Ledger, error) {
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ERC20Ledger{
		client:         client,
		key:            key,
		custody:        crypto.PubkeyToAddress(key.PublicKey),
		chainID:        chainID,
		gasLimit:       gasLimit,
		parsedABI:      parsedABI,
		confirmTimeout: defaultConfirmTimeout,
		logger:         logger,
	}, nil
}

// Custody the address the ledger signs for
func (l *ERC20Ledger) Custody() common.Address {
	return l.custody
}

func (l *ERC20Ledger) BalanceOf(ctx context.Context, asset, holder common.Address) (*big.Int, error) {
	data, err := l.parsedABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	result, err := l.client.CallContract(ctx, ethereum.CallMsg{To: &asset, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}
	var balance *big.Int
	if err := l.parsedABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf: %w", err)
	}
	return balance, nil
}

// TransferFrom pulls amount from owner into the custody account; to must be the custody account
func (l *ERC20Ledger) TransferFrom(ctx context.Context, asset, owner, to common.Address, amount *big.Int) error {
	if to != l.custody {
		return fmt.Errorf("transferFrom recipient %s is not the custody account %s", to.Hex(), l.custody.Hex())
	}
	data, err := l.parsedABI.Pack("transferFrom", owner, to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transferFrom: %w", err)
	}
	return l.send(ctx, "transferFrom", asset, data)
}

// Transfer sends amount out of the custody account; from must be the custody account
func (l *ERC20Ledger) Transfer(ctx context.Context, asset, from, to common.Address, amount *big.Int) error {
	if from != l.custody {
		return fmt.Errorf("transfer sender %s is not the custody account %s", from.Hex(), l.custody.Hex())
	}
	data, err := l.parsedABI.Pack("transfer", to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack transfer: %w", err)
	}
	return l.send(ctx, "transfer", asset, data)
}

// send signs, submits and waits for the receipt of a call to asset
func (l *ERC20Ledger) send(ctx context.Context, method string, asset common.Address, data []byte) error {
	nonce, err := l.client.PendingNonceAt(ctx, l.custody)
	if err != nil {
		return fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := l.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to get gas price: %w", err)
	}
	gasLimit := l.gasLimit
	if gasLimit == 0 {
		gasLimit, err = l.client.EstimateGas(ctx, ethereum.CallMsg{From: l.custody, To: &asset, Data: data})
		if err != nil {
			return fmt.Errorf("failed to estimate gas for %s: %w", method, err)
		}
	}

	tx := types.NewTransaction(nonce, asset, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return fmt.Errorf("failed to sign %s: %w", method, err)
	}
	if err := l.client.SendTransaction(ctx, signedTx); err != nil {
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	entry := l.logger.WithFields(logrus.Fields{
		"method":  method,
		"asset":   asset.Hex(),
		"tx_hash": signedTx.Hash().Hex(),
		"nonce":   nonce,
	})
	entry.Info("🚀 ERC20 transaction sent")

	waitCtx, cancel := context.WithTimeout(ctx, l.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, l.client, signedTx)
	if err != nil {
		return fmt.Errorf("failed to wait for %s %s: %w", method, signedTx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.New("ERC20 " + method + " reverted: " + signedTx.Hash().Hex())
	}
	entry.WithField("block", receipt.BlockNumber.Uint64()).Info("✅ ERC20 transaction confirmed")
	return nil
}
