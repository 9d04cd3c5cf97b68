package app

import (
	"context"
	"fmt"
	"time"

	"lockproxy/internal/clients"
	"lockproxy/internal/config"
	"lockproxy/internal/handlers"
	"lockproxy/internal/ledger"
	"lockproxy/internal/metrics"
	"lockproxy/internal/models"
	"lockproxy/internal/services"
	"lockproxy/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ServiceContainer wires the gateway and everything around it
type ServiceContainer struct {
	Config *config.Config
	Logger *logrus.Logger

	// Database
	DB *gorm.DB

	// Collaborators
	Ledger     services.AssetLedger
	NATSClient *clients.NATSClient // nil in standalone mode
	Hub        *clients.Hub        // set in standalone mode

	// Core
	Gateway    *services.Gateway
	ReviewFeed *services.ReviewFeed

	// HTTP
	TokenIssuer      *handlers.TokenIssuer
	AuthHandler      *handlers.AuthHandler
	GatewayHandler   *handlers.GatewayHandler
	WebSocketHandler *handlers.WebSocketHandler
}

// InitializeContainer builds the container from cfg. database must already be migrated.
func InitializeContainer(ctx context.Context, cfg *config.Config, database *gorm.DB, logger *logrus.Logger) (*ServiceContainer, error) {
	logger.Info("🚀 Initializing Service Container...")

	c := &ServiceContainer{
		Config: cfg,
		Logger: logger,
		DB:     database,
	}

	// 1. Asset ledger
	if err := c.initLedger(); err != nil {
		return nil, fmt.Errorf("failed to initialize ledger: %w", err)
	}

	// 2. Messenger
	messenger, err := c.initMessenger()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize messenger: %w", err)
	}

	// 3. Gateway
	c.ReviewFeed = services.NewReviewFeed(logger)
	gateway, err := services.NewGateway(database, services.GatewayOptions{
		ChainID:   cfg.Gateway.ChainID,
		Address:   common.HexToAddress(cfg.Gateway.Address),
		Mode:      models.GatewayMode(cfg.Gateway.Mode),
		Ledger:    c.Ledger,
		Messenger: messenger,
		Notifier:  c.ReviewFeed,
		Logger:    logger,
	})
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Gateway = gateway

	params, err := bootstrapParams(cfg.Gateway)
	if err != nil {
		c.Close()
		return nil, err
	}
	if _, err := gateway.Bootstrap(ctx, params); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to bootstrap gateway: %w", err)
	}

	// 4. Inbound route
	if c.NATSClient != nil {
		if err := c.NATSClient.SubscribeInbound(cfg.Gateway.ChainID, gateway); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to subscribe inbound messages: %w", err)
		}
	} else {
		c.Hub.Bind(cfg.Gateway.ChainID, gateway)
	}

	// 5. HTTP handlers
	c.TokenIssuer = handlers.NewTokenIssuer(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	c.AuthHandler = handlers.NewAuthHandler(c.TokenIssuer, cfg, logger)
	c.GatewayHandler = handlers.NewGatewayHandler(gateway, logger)
	c.WebSocketHandler = handlers.NewWebSocketHandler(c.ReviewFeed, logger)

	logger.WithFields(logrus.Fields{
		"chain_id": cfg.Gateway.ChainID,
		"mode":     cfg.Gateway.Mode,
		"ledger":   cfg.Gateway.Ledger,
		"nats":     c.NATSClient != nil,
	}).Info("✅ Service Container initialized successfully")
	return c, nil
}

func (c *ServiceContainer) initLedger() error {
	switch c.Config.Gateway.Ledger {
	case "erc20":
		erc20, err := ledger.DialERC20Ledger(c.Config.Blockchain, c.Logger)
		if err != nil {
			return err
		}
		if erc20.Custody() != common.HexToAddress(c.Config.Gateway.Address) {
			return fmt.Errorf("custody key %s does not match gateway address %s", erc20.Custody().Hex(), c.Config.Gateway.Address)
		}
		c.Ledger = erc20
	default:
		c.Ledger = ledger.NewStore(c.DB)
	}
	c.Logger.WithField("ledger", c.Config.Gateway.Ledger).Info("💰 Asset ledger ready")
	return nil
}

// initMessenger NATS when configured, otherwise an in-process hub
func (c *ServiceContainer) initMessenger() (services.Messenger, error) {
	manager := common.HexToAddress(c.Config.Gateway.ManagerProxy)
	if c.Config.NATS.URL == "" {
		c.Logger.Warn("⚠️ NATS URL not configured, running standalone: outbound messages only reach gateways bound to the local hub")
		c.Hub = clients.NewHub(manager, c.Logger)
		return c.Hub, nil
	}
	natsClient, err := clients.NewNATSClient(c.Config.NATS, manager, c.Logger)
	if err != nil {
		return nil, err
	}
	c.NATSClient = natsClient
	return natsClient, nil
}

func bootstrapParams(cfg config.GatewayConfig) (services.BootstrapParams, error) {
	admin, err := utils.ParseAddress(cfg.Admin)
	if err != nil {
		return services.BootstrapParams{}, fmt.Errorf("gateway admin: %w", err)
	}
	params := services.BootstrapParams{Admin: admin}
	if cfg.ManagerProxy != "" {
		if params.ManagerProxy, err = utils.ParseAddress(cfg.ManagerProxy); err != nil {
			return services.BootstrapParams{}, fmt.Errorf("manager proxy: %w", err)
		}
	}
	for _, raw := range cfg.Censors {
		censor, err := utils.ParseAddress(raw)
		if err != nil {
			return services.BootstrapParams{}, fmt.Errorf("censor: %w", err)
		}
		params.Censors = append(params.Censors, censor)
	}
	return params, nil
}

// RecordDBStats exports pool stats until ctx is done
func (c *ServiceContainer) RecordDBStats(ctx context.Context, interval time.Duration) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		c.Logger.WithError(err).Warn("⚠️ DB stats unavailable")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.RecordDBStats(sqlDB.Stats())
		}
	}
}

// Close releases the messenger and the database
func (c *ServiceContainer) Close() {
	if c.NATSClient != nil {
		c.NATSClient.Close()
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
