package clients

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"lockproxy/internal/services"
	"lockproxy/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// UnlockReceiver a gateway that accepts inbound messages
type UnlockReceiver interface {
	Address() common.Address
	Receive(ctx context.Context, caller common.Address, envelope *types.Envelope) (*services.UnlockResult, error)
}

var _ services.Messenger = (*Hub)(nil)

// Hub in-process cross-chain manager. It delivers a message to the gateway
// bound for the destination chain before SendMessage returns, so a failed
// unlock is reported back to the lock that sent it.
type Hub struct {
	mu       sync.RWMutex
	address  common.Address
	gateways map[uint64]UnlockReceiver
	logger   *logrus.Logger
}

// NewHub creates a hub; address is the caller identity gateways must trust as manager proxy
func NewHub(address common.Address, logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		address:  address,
		gateways: make(map[uint64]UnlockReceiver),
		logger:   logger,
	}
}

func (h *Hub) Address() common.Address {
	return h.address
}

// Bind registers the gateway of chainID, replacing any previous one
func (h *Hub) Bind(chainID uint64, gateway UnlockReceiver) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gateways[chainID] = gateway
	h.logger.WithFields(logrus.Fields{
		"chain_id": chainID,
		"gateway":  gateway.Address().Hex(),
	}).Info("🔗 Gateway bound to hub")
}

func (h *Hub) SendMessage(ctx context.Context, envelope *types.Envelope) error {
	if envelope.Method != types.MethodUnlock {
		return services.ErrUnsupportedMethod
	}
	if envelope.FromChainID == envelope.ToChainID {
		return fmt.Errorf("hub refuses to relay chain %d to itself", envelope.ToChainID)
	}

	h.mu.RLock()
	gateway, ok := h.gateways[envelope.ToChainID]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("no gateway bound for chain %d", envelope.ToChainID)
	}
	if !bytes.Equal(gateway.Address().Bytes(), envelope.ToProxyHash) {
		return fmt.Errorf("destination proxy %x is not the gateway bound for chain %d", []byte(envelope.ToProxyHash), envelope.ToChainID)
	}

	result, err := gateway.Receive(ctx, h.address, envelope)
	if err != nil {
		return err
	}
	h.logger.WithFields(logrus.Fields{
		"message_id": envelope.ID,
		"from_chain": envelope.FromChainID,
		"to_chain":   envelope.ToChainID,
		"released":   result.Released,
		"request_id": result.RequestID,
	}).Debug("📨 Hub delivered message")
	return nil
}
