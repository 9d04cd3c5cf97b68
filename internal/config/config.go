package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"lockproxy/internal/models"
	"lockproxy/internal/utils"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	Gateway    GatewayConfig    `yaml:"gateway"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	MetricsAllowedIPs []string `yaml:"metricsAllowedIps"` // IPs or CIDRs allowed to scrape /metrics besides localhost
	TrustedProxies    []string `yaml:"trustedProxies"`
}

// Addr host:port for the HTTP listener
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig Database configuration
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	Driver       string `yaml:"driver"` // postgres | sqlite
	MaxOpenConns int    `yaml:"maxOpenConns"`
	MaxIdleConns int    `yaml:"maxIdleConns"`
}

// NATSConfig NATS messenger configuration
type NATSConfig struct {
	URL             string `yaml:"url"`
	Timeout         int    `yaml:"timeout"` // seconds
	ReconnectWait   int    `yaml:"reconnect_wait"`
	MaxReconnects   int    `yaml:"max_reconnects"`
	EnableJetStream bool   `yaml:"enable_jetstream"`
	SubjectPrefix   string `yaml:"subject_prefix"`
}

// GatewayConfig identity and bootstrap values of this gateway instance.
// Admin, ManagerProxy and Censors only seed an empty database.
type GatewayConfig struct {
	ChainID      uint64   `yaml:"chainId"`
	Address      string   `yaml:"address"` // gateway identity and custody account
	Mode         string   `yaml:"mode"`    // unlimited | limited | reviewable
	Admin        string   `yaml:"admin"`
	ManagerProxy string   `yaml:"managerProxy"`
	Censors      []string `yaml:"censors"`
	Ledger       string   `yaml:"ledger"` // embedded | erc20
}

// BlockchainConfig RPC access for the ERC-20 ledger
type BlockchainConfig struct {
	RPCURL     string `yaml:"rpcUrl"`
	ChainID    int64  `yaml:"chainId"`    // EVM chain id used for signing
	PrivateKey string `yaml:"privateKey"` // custody key, hex without 0x
	GasLimit   uint64 `yaml:"gasLimit"`
}

// AuthConfig operator authentication
type AuthConfig struct {
	JWTSecret       string           `yaml:"jwtSecret"`
	TokenTTLMinutes int              `yaml:"tokenTtlMinutes"`
	Operators       []OperatorConfig `yaml:"operators"`
}

// OperatorConfig an address allowed to log in with a TOTP code
type OperatorConfig struct {
	Address    string `yaml:"address"`
	TOTPSecret string `yaml:"totpSecret"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

// LogConfig logrus configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

var AppConfig *Config

// LoadConfig Load configuration file
func LoadConfig(configPath string) error {
	// ifconfiguration file pathempty，Use default path
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data)
	if err != nil {
		return err
	}
	log.Printf("✅ Loading configuration from config file: %s", configPath)
	log.Printf("📋 [Config] Gateway chainId=%d mode=%s ledger=%s", config.Gateway.ChainID, config.Gateway.Mode, config.Gateway.Ledger)

	AppConfig = config
	return nil
}

// Parse decodes YAML, applies defaults and environment overrides, then validates
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	overrideFromEnv(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "postgres"
	}
	if config.Gateway.Mode == "" {
		config.Gateway.Mode = string(models.GatewayModeReviewable)
	}
	if config.Gateway.Ledger == "" {
		config.Gateway.Ledger = "embedded"
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = "lockproxy"
	}
	if config.Auth.TokenTTLMinutes == 0 {
		config.Auth.TokenTTLMinutes = 60
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

// overrideFromEnv Override configuration from environment variables
func overrideFromEnv(config *Config) {
	// Database
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		config.Database.Driver = driver
	}

	// server configuration
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		config.Server.TrustedProxies = splitList(proxies)
	}

	// NATS
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}

	// Gateway
	if chainID := os.Getenv("GATEWAY_CHAIN_ID"); chainID != "" {
		if id, err := strconv.ParseUint(chainID, 10, 64); err == nil {
			config.Gateway.ChainID = id
		}
	}
	if mode := os.Getenv("GATEWAY_MODE"); mode != "" {
		config.Gateway.Mode = mode
	}
	if address := os.Getenv("GATEWAY_ADDRESS"); address != "" {
		config.Gateway.Address = address
	}
	if admin := os.Getenv("GATEWAY_ADMIN"); admin != "" {
		config.Gateway.Admin = admin
	}
	if manager := os.Getenv("GATEWAY_MANAGER_PROXY"); manager != "" {
		config.Gateway.ManagerProxy = manager
	}
	if censors := os.Getenv("GATEWAY_CENSORS"); censors != "" {
		config.Gateway.Censors = splitList(censors)
	}
	if ledger := os.Getenv("GATEWAY_LEDGER"); ledger != "" {
		config.Gateway.Ledger = ledger
	}

	// Blockchain
	if rpcURL := os.Getenv("ETH_RPC_URL"); rpcURL != "" {
		config.Blockchain.RPCURL = rpcURL
	}
	if privateKey := os.Getenv("PRIVATE_KEY"); privateKey != "" {
		config.Blockchain.PrivateKey = privateKey
		log.Printf("✅ [Config] Loaded custody private key from environment variable: PRIVATE_KEY")
	}

	// Auth
	if secret := os.Getenv("ADMIN_JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	// CORS Configuration
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.CORS.AllowedOrigins = splitList(corsOrigins)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// Validate checks the values the gateway cannot start without
func (c *Config) Validate() error {
	if !models.GatewayMode(c.Gateway.Mode).Valid() {
		return fmt.Errorf("invalid gateway mode: %s", c.Gateway.Mode)
	}
	if c.Gateway.ChainID == 0 {
		return fmt.Errorf("gateway chainId is required")
	}
	if !utils.IsEvmAddress(c.Gateway.Address) {
		return fmt.Errorf("invalid gateway address: %q", c.Gateway.Address)
	}
	if !utils.IsEvmAddress(c.Gateway.Admin) {
		return fmt.Errorf("invalid gateway admin: %q", c.Gateway.Admin)
	}
	if c.Gateway.ManagerProxy != "" && !utils.IsEvmAddress(c.Gateway.ManagerProxy) {
		return fmt.Errorf("invalid manager proxy: %q", c.Gateway.ManagerProxy)
	}
	for _, censor := range c.Gateway.Censors {
		if !utils.IsEvmAddress(censor) {
			return fmt.Errorf("invalid censor address: %q", censor)
		}
	}
	switch c.Gateway.Ledger {
	case "embedded":
	case "erc20":
		if c.Blockchain.RPCURL == "" || c.Blockchain.PrivateKey == "" {
			return fmt.Errorf("erc20 ledger requires blockchain.rpcUrl and blockchain.privateKey")
		}
	default:
		return fmt.Errorf("unsupported ledger: %s", c.Gateway.Ledger)
	}
	for _, op := range c.Auth.Operators {
		if !utils.IsEvmAddress(op.Address) || op.TOTPSecret == "" {
			return fmt.Errorf("invalid operator entry for %q", op.Address)
		}
	}
	return nil
}

// OperatorSecret returns the TOTP secret configured for address
func (c *Config) OperatorSecret(address string) (string, bool) {
	for _, op := range c.Auth.Operators {
		if strings.EqualFold(op.Address, address) {
			return op.TOTPSecret, true
		}
	}
	return "", false
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
