package dto

import (
	"lockproxy/internal/models"
)

// ==================== Gateway DTOs ====================

// GatewayStateResponse GET /gateway
type GatewayStateResponse struct {
	ChainID         uint64             `json:"chain_id"`
	Address         string             `json:"address"`
	Mode            models.GatewayMode `json:"mode"`
	Admin           string             `json:"admin"`
	ManagerProxy    string             `json:"manager_proxy"`
	Paused          bool               `json:"paused"`
	LatestRequestID uint64             `json:"latest_request_id"`
}

// LockRequest POST /lock; the caller is the token holder
type LockRequest struct {
	FromAsset string `json:"from_asset" binding:"required"`
	ToChainID uint64 `json:"to_chain_id" binding:"required"`
	ToAddress string `json:"to_address" binding:"required"` // hex bytes on the destination chain
	Amount    string `json:"amount" binding:"required"`     // uint256 decimal
}

// SetManagerProxyRequest POST /admin/manager-proxy
type SetManagerProxyRequest struct {
	ManagerProxy string `json:"manager_proxy" binding:"required"`
}

// BindProxyRequest POST /admin/proxy-bindings; an empty hash unbinds
type BindProxyRequest struct {
	ChainID   uint64 `json:"chain_id" binding:"required"`
	ProxyHash string `json:"proxy_hash"`
}

// BindAssetRequest POST /admin/asset-bindings; an empty hash unbinds
type BindAssetRequest struct {
	FromAsset   string `json:"from_asset" binding:"required"`
	ChainID     uint64 `json:"chain_id" binding:"required"`
	ToAssetHash string `json:"to_asset_hash"`
}

// QuotaRequest POST /admin/quotas and /admin/limits
type QuotaRequest struct {
	Asset string `json:"asset" binding:"required"`
	Limit string `json:"limit" binding:"required"`
}

// RefreshPeriodRequest POST /admin/refresh-periods
type RefreshPeriodRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Period int64  `json:"period"` // seconds, 0 disables the reset
}

// AddressRequest POST /admin/censors and /admin/transfer-admin
type AddressRequest struct {
	Address string `json:"address" binding:"required"`
}

// ReleaseArgsRequest body of approve and unban
type ReleaseArgsRequest struct {
	ToAsset   string `json:"to_asset" binding:"required"`
	ToAddress string `json:"to_address" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Note      string `json:"note"` // unban only
}

// BanRequest POST /requests/:id/ban
type BanRequest struct {
	Note string `json:"note"`
}

// QuotaResponse GET /quotas/:asset
type QuotaResponse struct {
	Asset         string `json:"asset"`
	Limit         string `json:"limit"`
	Used          string `json:"used"`
	RefreshPeriod int64  `json:"refresh_period"`
	LastRefresh   int64  `json:"last_refresh"`
}

// Pagination list metadata
type Pagination struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// NewPagination computes the page count
func NewPagination(page, size int, total int64) Pagination {
	pages := 0
	if size > 0 {
		pages = int((total + int64(size) - 1) / int64(size))
	}
	return Pagination{Page: page, Size: size, Total: total, TotalPages: pages}
}
