package models

import (
	"math/big"
	"time"
)

// GatewayMode selects how inbound releases are admitted
type GatewayMode string

const (
	GatewayModeUnlimited  GatewayMode = "unlimited"  // no quota, release on every valid message
	GatewayModeLimited    GatewayMode = "limited"    // quota exceeded fails the whole unlock
	GatewayModeReviewable GatewayMode = "reviewable" // quota exceeded queues a release request
)

// Valid reports whether m is a known mode
func (m GatewayMode) Valid() bool {
	switch m {
	case GatewayModeUnlimited, GatewayModeLimited, GatewayModeReviewable:
		return true
	}
	return false
}

// GatewayStateID is the primary key of the single gateway_state row
const GatewayStateID = 1

// GatewayState 网关全局状态（单行）
type GatewayState struct {
	ID              uint        `json:"-" gorm:"primaryKey;autoIncrement:false"`
	Admin           string      `json:"admin" gorm:"size:42;not null"`
	ManagerProxy    string      `json:"manager_proxy" gorm:"size:42"`
	Paused          bool        `json:"paused" gorm:"not null;default:false"`
	LatestRequestID uint64      `json:"latest_request_id" gorm:"not null;default:0"`
	Mode            GatewayMode `json:"mode" gorm:"size:16;not null"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// TableName 指定表名
func (GatewayState) TableName() string {
	return "gateway_state"
}

// Censor 审核员
type Censor struct {
	Address   string    `json:"address" gorm:"primaryKey;size:42"`
	AddedBy   string    `json:"added_by" gorm:"size:42"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (Censor) TableName() string {
	return "censors"
}

// ProxyBinding trusted counterpart gateway on a remote chain
type ProxyBinding struct {
	ChainID   uint64    `json:"chain_id" gorm:"primaryKey;autoIncrement:false"`
	ProxyHash string    `json:"proxy_hash" gorm:"size:130;not null;default:''"` // hex, empty means unbound
	UpdatedBy string    `json:"updated_by" gorm:"size:42"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName 指定表名
func (ProxyBinding) TableName() string {
	return "proxy_bindings"
}

// AssetBinding maps a local asset to its counterpart on a remote chain
type AssetBinding struct {
	AssetAddress string    `json:"asset_address" gorm:"primaryKey;size:42"`
	ChainID      uint64    `json:"chain_id" gorm:"primaryKey;autoIncrement:false"`
	AssetHash    string    `json:"asset_hash" gorm:"size:130;not null;default:''"`
	UpdatedBy    string    `json:"updated_by" gorm:"size:42"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName 指定表名
func (AssetBinding) TableName() string {
	return "asset_bindings"
}

// QuotaRecord 资产额度记录
// Limit and Used are uint256 decimal strings.
type QuotaRecord struct {
	AssetAddress  string    `json:"asset_address" gorm:"primaryKey;size:42"`
	Limit         string    `json:"limit" gorm:"size:80;not null;default:'0'"`
	Used          string    `json:"used" gorm:"size:80;not null;default:'0'"`
	RefreshPeriod int64     `json:"refresh_period" gorm:"not null;default:0"` // seconds, 0 disables reset
	LastRefresh   int64     `json:"last_refresh" gorm:"not null;default:0"`   // unix seconds
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime:false"`
}

// TableName 指定表名
func (QuotaRecord) TableName() string {
	return "quota_records"
}

// LimitAmount returns Limit as an integer
func (q *QuotaRecord) LimitAmount() *big.Int {
	return parseAmount(q.Limit)
}

// UsedAmount returns Used as an integer
func (q *QuotaRecord) UsedAmount() *big.Int {
	return parseAmount(q.Used)
}

// Refresh resets the window when the refresh period has elapsed at now.
// It reports whether a reset happened.
func (q *QuotaRecord) Refresh(now int64) bool {
	if q.RefreshPeriod <= 0 {
		return false
	}
	if now-q.LastRefresh < q.RefreshPeriod {
		return false
	}
	q.Used = "0"
	q.LastRefresh = now
	return true
}

// TryConsume applies the lazy refresh and then consumes amount if it fits
// under Limit. On denial the record is left exactly as it was.
func (q *QuotaRecord) TryConsume(amount *big.Int, now int64) bool {
	used, lastRefresh := q.Used, q.LastRefresh
	q.Refresh(now)

	next := new(big.Int).Add(q.UsedAmount(), amount)
	if next.Cmp(q.LimitAmount()) > 0 {
		q.Used, q.LastRefresh = used, lastRefresh
		return false
	}
	q.Used = next.String()
	return true
}

// OutboundStatus relay state of a lock event
type OutboundStatus string

const (
	OutboundStatusPending      OutboundStatus = "pending"       // committed, relay in flight
	OutboundStatusSent         OutboundStatus = "sent"          // messenger accepted the message
	OutboundStatusReverted     OutboundStatus = "reverted"      // relay failed, custody refunded to sender
	OutboundStatusRefundFailed OutboundStatus = "refund_failed" // relay failed and the refund failed too
)

// OutboundMessage 锁仓事件（发往目标链的消息）
type OutboundMessage struct {
	ID          string         `json:"id" gorm:"primaryKey;size:36"` // UUID
	ToChainID   uint64         `json:"to_chain_id" gorm:"not null;index"`
	ToProxyHash string         `json:"to_proxy_hash" gorm:"size:130;not null"`
	FromAsset   string         `json:"from_asset" gorm:"size:42;not null;index"`
	ToAssetHash string         `json:"to_asset_hash" gorm:"size:130;not null"`
	Sender      string         `json:"sender" gorm:"size:42;not null;index"`
	ToAddress   string         `json:"to_address" gorm:"size:130;not null"`
	Amount      string         `json:"amount" gorm:"size:80;not null"`
	Payload     string         `json:"payload" gorm:"type:text;not null"` // hex encoded TxArgs
	Status      OutboundStatus `json:"status" gorm:"size:16;not null;default:'pending';index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName 指定表名
func (OutboundMessage) TableName() string {
	return "outbound_messages"
}

// InboundMessage 已处理的入站消息，用于去重
type InboundMessage struct {
	FromChainID uint64    `json:"from_chain_id" gorm:"primaryKey;autoIncrement:false"`
	ID          string    `json:"id" gorm:"primaryKey;size:36"` // envelope id assigned by the source gateway
	Released    bool      `json:"released"`
	RequestID   uint64    `json:"request_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName 指定表名
func (InboundMessage) TableName() string {
	return "inbound_messages"
}

func parseAmount(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return new(big.Int)
	}
	return v
}
