package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"lockproxy/internal/config"
	"lockproxy/internal/metrics"
	"lockproxy/internal/services"
	"lockproxy/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

const unlockStreamName = "LOCKPROXY_UNLOCK"

// replyGrace how long a requester keeps waiting for a receipt after the
// envelope deadline the destination enforces
const replyGrace = 2 * time.Second

var _ services.Messenger = (*NATSClient)(nil)

// DeliveryReceipt reply to a request-reply delivery
type DeliveryReceipt struct {
	Released  bool   `json:"released"`
	RequestID uint64 `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// NATSClient cross-chain messenger over NATS.
// Core NATS uses request-reply: every envelope carries a deadline, the
// destination refuses it once the deadline has passed and answers with a
// DeliveryReceipt, and the requester waits until the deadline plus
// replyGrace. With JetStream enabled messages are persisted and delivered
// asynchronously instead; redeliveries are refused by envelope id.
type NATSClient struct {
	conn          *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
	timeout       time.Duration
	manager       common.Address
	logger        *logrus.Logger
	subs          []*nats.Subscription
}

// NewNATSClient connects to cfg.URL. manager is the identity inbound
// messages are presented with to the local gateway.
func NewNATSClient(cfg config.NATSConfig, manager common.Address, logger *logrus.Logger) (*NATSClient, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// 获取配置的超时时间（如果配置了）
	timeout := 10 * time.Second
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}
	reconnectWait := 5 * time.Second
	if cfg.ReconnectWait > 0 {
		reconnectWait = time.Duration(cfg.ReconnectWait) * time.Second
	}
	maxReconnects := -1
	if cfg.MaxReconnects != 0 {
		maxReconnects = cfg.MaxReconnects
	}
	logger.Infof("🔌 Connecting to NATS %s (timeout %v)", cfg.URL, timeout)

	conn, err := nats.Connect(cfg.URL,
		nats.Timeout(timeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.WithError(err).Warn("NATS connection lost")
			metrics.NATSConnectionStatus.Set(0)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected")
			metrics.NATSConnectionStatus.Set(1)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	metrics.NATSConnectionStatus.Set(1)

	client := &NATSClient{
		conn:          conn,
		subjectPrefix: cfg.SubjectPrefix,
		timeout:       timeout,
		manager:       manager,
		logger:        logger,
	}
	if client.subjectPrefix == "" {
		client.subjectPrefix = "lockproxy"
	}

	if cfg.EnableJetStream {
		js, err := conn.JetStream()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}
		client.js = js
		if err := client.ensureStream(); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return client, nil
}

// ensureStream JetStream stream for every chain's unlock subject
func (c *NATSClient) ensureStream() error {
	if _, err := c.js.StreamInfo(unlockStreamName); err == nil {
		c.logger.Infof("Stream %s already exists", unlockStreamName)
		return nil
	}
	_, err := c.js.AddStream(&nats.StreamConfig{
		Name:      unlockStreamName,
		Subjects:  []string{c.subjectPrefix + ".*.unlock"},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", unlockStreamName, err)
	}
	c.logger.Infof("Stream %s created", unlockStreamName)
	return nil
}

// Subject where messages for chainID are published
func (c *NATSClient) Subject(chainID uint64) string {
	return fmt.Sprintf("%s.%d.%s", c.subjectPrefix, chainID, types.MethodUnlock)
}

// SendMessage implements services.Messenger
func (c *NATSClient) SendMessage(ctx context.Context, envelope *types.Envelope) error {
	subject := c.Subject(envelope.ToChainID)
	toChain := strconv.FormatUint(envelope.ToChainID, 10)

	if c.js != nil {
		data, err := json.Marshal(envelope)
		if err != nil {
			return fmt.Errorf("failed to marshal envelope: %w", err)
		}
		if _, err := c.js.Publish(subject, data, nats.Context(ctx), nats.MsgId(envelope.ID)); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", subject, err)
		}
		metrics.NATSMessagesPublished.WithLabelValues(toChain).Inc()
		c.logger.WithFields(logrus.Fields{"subject": subject, "message_id": envelope.ID}).Info("📤 Message published to JetStream")
		return nil
	}

	// 目标端的截止时间要给回执留出 replyGrace
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Add(-replyGrace).Before(deadline) {
		deadline = d.Add(-replyGrace)
	}
	request := *envelope
	request.Deadline = deadline.UnixMilli()
	data, err := json.Marshal(&request)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	ctx, cancel := context.WithDeadline(ctx, deadline.Add(replyGrace))
	defer cancel()
	reply, err := c.conn.RequestWithContext(ctx, subject, data)
	if err != nil {
		return fmt.Errorf("failed to deliver to %s: %w", subject, err)
	}
	metrics.NATSMessagesPublished.WithLabelValues(toChain).Inc()
	return receiptError(reply.Data)
}

// receiptError turns a failed receipt back into a classified gateway error
func receiptError(data []byte) error {
	var receipt DeliveryReceipt
	if err := json.Unmarshal(data, &receipt); err != nil {
		return fmt.Errorf("invalid delivery receipt: %w", err)
	}
	if receipt.Error == "" {
		return nil
	}
	return &services.GatewayError{Kind: services.ErrorKind(receipt.Kind), Msg: receipt.Error}
}

// SubscribeInbound feeds messages addressed to chainID into gateway
func (c *NATSClient) SubscribeInbound(chainID uint64, gateway UnlockReceiver) error {
	subject := c.Subject(chainID)
	handler := func(msg *nats.Msg) {
		receipt := c.HandleMessage(context.Background(), gateway, msg.Data)
		if c.js != nil {
			// 失败的消息不重投，留给人工处理
			_ = msg.Ack()
			return
		}
		if msg.Reply != "" {
			data, _ := json.Marshal(receipt)
			if err := msg.Respond(data); err != nil {
				c.logger.WithError(err).Warn("failed to respond to delivery")
			}
		}
	}

	var sub *nats.Subscription
	var err error
	if c.js != nil {
		sub, err = c.js.Subscribe(subject, handler, nats.Durable(fmt.Sprintf("lockproxy-%d", chainID)), nats.ManualAck())
	} else {
		sub, err = c.conn.Subscribe(subject, handler)
	}
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Infof("✅ NATS subscription active: %s", subject)
	return nil
}

// HandleMessage decodes one envelope and delivers it to gateway
func (c *NATSClient) HandleMessage(ctx context.Context, gateway UnlockReceiver, data []byte) DeliveryReceipt {
	var envelope types.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		metrics.NATSMessagesFailed.WithLabelValues("unknown", string(services.KindArgument)).Inc()
		c.logger.WithError(err).Error("❌ Failed to decode cross-chain envelope")
		return DeliveryReceipt{Error: services.ErrInvalidPayload.Error(), Kind: string(services.KindArgument)}
	}
	fromChain := strconv.FormatUint(envelope.FromChainID, 10)
	metrics.NATSMessagesReceived.WithLabelValues(fromChain).Inc()

	if envelope.Method != types.MethodUnlock {
		metrics.NATSMessagesFailed.WithLabelValues(fromChain, string(services.KindArgument)).Inc()
		return DeliveryReceipt{Error: services.ErrUnsupportedMethod.Error(), Kind: string(services.KindArgument)}
	}
	if envelope.Expired(time.Now()) {
		metrics.NATSMessagesFailed.WithLabelValues(fromChain, string(services.KindState)).Inc()
		c.logger.WithFields(logrus.Fields{
			"message_id": envelope.ID,
			"from_chain": envelope.FromChainID,
		}).Warn("⌛ Inbound message expired before delivery")
		return DeliveryReceipt{Error: services.ErrMessageExpired.Error(), Kind: string(services.KindState)}
	}
	// 截止时间之后提交的事务会被回滚
	if deadline, ok := envelope.DeadlineTime(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	result, err := gateway.Receive(ctx, c.manager, &envelope)
	if err != nil {
		kind := services.KindOf(err)
		metrics.NATSMessagesFailed.WithLabelValues(fromChain, string(kind)).Inc()
		c.logger.WithFields(logrus.Fields{
			"message_id": envelope.ID,
			"from_chain": envelope.FromChainID,
		}).WithError(err).Warn("❌ Inbound message rejected")
		return DeliveryReceipt{Error: err.Error(), Kind: string(kind)}
	}
	return DeliveryReceipt{Released: result.Released, RequestID: result.RequestID}
}

// Close drains subscriptions and closes the connection
func (c *NATSClient) Close() {
	for _, sub := range c.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.WithError(err).Debug("unsubscribe failed")
		}
	}
	if c.conn != nil {
		c.conn.Close()
	}
	metrics.NATSConnectionStatus.Set(0)
}
