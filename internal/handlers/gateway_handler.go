package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"lockproxy/internal/dto"
	"lockproxy/internal/models"
	"lockproxy/internal/services"
	"lockproxy/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// errAborted the handler already wrote a response
var errAborted = errors.New("request aborted")

// GatewayHandler HTTP surface of the gateway facade
type GatewayHandler struct {
	gateway *services.Gateway
	logger  *logrus.Logger
}

func NewGatewayHandler(gateway *services.Gateway, logger *logrus.Logger) *GatewayHandler {
	return &GatewayHandler{gateway: gateway, logger: logger}
}

// GetState GET /api/gateway
func (h *GatewayHandler) GetState(c *gin.Context) {
	state, err := h.gateway.State(c.Request.Context())
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": dto.GatewayStateResponse{
			ChainID:         h.gateway.ChainID(),
			Address:         h.gateway.Address().Hex(),
			Mode:            state.Mode,
			Admin:           state.Admin,
			ManagerProxy:    state.ManagerProxy,
			Paused:          state.Paused,
			LatestRequestID: state.LatestRequestID,
		},
	})
}

// Lock POST /api/lock
func (h *GatewayHandler) Lock(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req dto.LockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	asset, ok := addressParam(c, req.FromAsset, "from_asset")
	if !ok {
		return
	}
	toAddress, ok := hashParam(c, req.ToAddress, "to_address")
	if !ok {
		return
	}
	amount, ok := amountParam(c, req.Amount, "amount")
	if !ok {
		return
	}

	message, err := h.gateway.Lock(c.Request.Context(), caller, asset, req.ToChainID, toAddress, amount)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": message})
}

// LockEvents GET /api/lock-events, lock events of the caller
func (h *GatewayHandler) LockEvents(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	events, total, err := h.gateway.LockEvents(c.Request.Context(), caller, page, pageSize)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       events,
		"pagination": dto.NewPagination(page, pageSize, total),
	})
}

// GetQuota GET /api/quotas/:asset
func (h *GatewayHandler) GetQuota(c *gin.Context) {
	asset, ok := addressParam(c, c.Param("asset"), "asset")
	if !ok {
		return
	}
	record, err := h.gateway.Quota(c.Request.Context(), asset)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": dto.QuotaResponse{
			Asset:         asset.Hex(),
			Limit:         record.Limit,
			Used:          record.Used,
			RefreshPeriod: record.RefreshPeriod,
			LastRefresh:   record.LastRefresh,
		},
	})
}

// GetRefreshTimestamp GET /api/quotas/:asset/refresh-timestamp
func (h *GatewayHandler) GetRefreshTimestamp(c *gin.Context) {
	asset, ok := addressParam(c, c.Param("asset"), "asset")
	if !ok {
		return
	}
	ts, err := h.gateway.RefreshTimestamp(c.Request.Context(), asset)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"asset": asset.Hex(), "refresh_timestamp": ts}})
}

// GetProxyBinding GET /api/bindings/proxies/:chainId
func (h *GatewayHandler) GetProxyBinding(c *gin.Context) {
	chainID, ok := uintParam(c, "chainId")
	if !ok {
		return
	}
	hash, err := h.gateway.ProxyHash(c.Request.Context(), chainID)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"chain_id":   chainID,
		"proxy_hash": utils.EncodeHash(hash),
		"bound":      len(hash) > 0,
	}})
}

// GetAssetBinding GET /api/bindings/assets/:asset/:chainId
func (h *GatewayHandler) GetAssetBinding(c *gin.Context) {
	asset, ok := addressParam(c, c.Param("asset"), "asset")
	if !ok {
		return
	}
	chainID, ok := uintParam(c, "chainId")
	if !ok {
		return
	}
	hash, err := h.gateway.AssetHash(c.Request.Context(), asset, chainID)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{
		"asset":      asset.Hex(),
		"chain_id":   chainID,
		"asset_hash": utils.EncodeHash(hash),
		"bound":      len(hash) > 0,
	}})
}

// ============================================
// 管理员接口
// ============================================

// SetManagerProxy POST /api/admin/manager-proxy
func (h *GatewayHandler) SetManagerProxy(c *gin.Context) {
	var req dto.SetManagerProxyRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		manager, ok := addressParam(c, req.ManagerProxy, "manager_proxy")
		if !ok {
			return errAborted
		}
		return h.gateway.SetManagerProxy(c.Request.Context(), caller, manager)
	})
}

// BindProxyHash POST /api/admin/proxy-bindings
func (h *GatewayHandler) BindProxyHash(c *gin.Context) {
	var req dto.BindProxyRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		hash, ok := hashParam(c, req.ProxyHash, "proxy_hash")
		if !ok {
			return errAborted
		}
		return h.gateway.BindProxyHash(c.Request.Context(), caller, req.ChainID, hash)
	})
}

// BindAssetHash POST /api/admin/asset-bindings
func (h *GatewayHandler) BindAssetHash(c *gin.Context) {
	var req dto.BindAssetRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		asset, ok := addressParam(c, req.FromAsset, "from_asset")
		if !ok {
			return errAborted
		}
		hash, ok := hashParam(c, req.ToAssetHash, "to_asset_hash")
		if !ok {
			return errAborted
		}
		return h.gateway.BindAssetHash(c.Request.Context(), caller, asset, req.ChainID, hash)
	})
}

// SetQuota POST /api/admin/quotas
func (h *GatewayHandler) SetQuota(c *gin.Context) {
	var req dto.QuotaRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		asset, limit, ok := h.quotaArgs(c, &req)
		if !ok {
			return errAborted
		}
		return h.gateway.SetQuota(c.Request.Context(), caller, asset, limit)
	})
}

// SetLimitForToken POST /api/admin/limits
func (h *GatewayHandler) SetLimitForToken(c *gin.Context) {
	var req dto.QuotaRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		asset, limit, ok := h.quotaArgs(c, &req)
		if !ok {
			return errAborted
		}
		return h.gateway.SetLimitForToken(c.Request.Context(), caller, asset, limit)
	})
}

// SetRefreshPeriod POST /api/admin/refresh-periods
func (h *GatewayHandler) SetRefreshPeriod(c *gin.Context) {
	var req dto.RefreshPeriodRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		asset, ok := addressParam(c, req.Asset, "asset")
		if !ok {
			return errAborted
		}
		return h.gateway.SetRefreshPeriod(c.Request.Context(), caller, asset, req.Period)
	})
}

// Pause POST /api/admin/pause
func (h *GatewayHandler) Pause(c *gin.Context) {
	h.adminAction(c, nil, func(caller common.Address) error {
		return h.gateway.Pause(c.Request.Context(), caller)
	})
}

// Unpause POST /api/admin/unpause
func (h *GatewayHandler) Unpause(c *gin.Context) {
	h.adminAction(c, nil, func(caller common.Address) error {
		return h.gateway.Unpause(c.Request.Context(), caller)
	})
}

// AddCensor POST /api/admin/censors
func (h *GatewayHandler) AddCensor(c *gin.Context) {
	var req dto.AddressRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		censor, ok := addressParam(c, req.Address, "address")
		if !ok {
			return errAborted
		}
		return h.gateway.AddCensor(c.Request.Context(), caller, censor)
	})
}

// RemoveCensor DELETE /api/admin/censors/:address
func (h *GatewayHandler) RemoveCensor(c *gin.Context) {
	h.adminAction(c, nil, func(caller common.Address) error {
		censor, ok := addressParam(c, c.Param("address"), "address")
		if !ok {
			return errAborted
		}
		return h.gateway.RemoveCensor(c.Request.Context(), caller, censor)
	})
}

// ListCensors GET /api/censors
func (h *GatewayHandler) ListCensors(c *gin.Context) {
	censors, err := h.gateway.Censors(c.Request.Context())
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": censors})
}

// TransferAdmin POST /api/admin/transfer-admin
func (h *GatewayHandler) TransferAdmin(c *gin.Context) {
	var req dto.AddressRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		newAdmin, ok := addressParam(c, req.Address, "address")
		if !ok {
			return errAborted
		}
		return h.gateway.TransferAdmin(c.Request.Context(), caller, newAdmin)
	})
}

// RemoveBannedRequest POST /api/admin/requests/:id/remove
func (h *GatewayHandler) RemoveBannedRequest(c *gin.Context) {
	h.adminAction(c, nil, func(caller common.Address) error {
		id, ok := uintParam(c, "id")
		if !ok {
			return errAborted
		}
		return h.gateway.RemoveBannedRequest(c.Request.Context(), caller, id)
	})
}

func (h *GatewayHandler) quotaArgs(c *gin.Context, req *dto.QuotaRequest) (common.Address, *big.Int, bool) {
	asset, ok := addressParam(c, req.Asset, "asset")
	if !ok {
		return common.Address{}, nil, false
	}
	limit, ok := amountParam(c, req.Limit, "limit")
	if !ok {
		return common.Address{}, nil, false
	}
	return asset, limit, true
}

// adminAction binds body (if any), runs fn with the caller and writes the response
func (h *GatewayHandler) adminAction(c *gin.Context, body interface{}, fn func(caller common.Address) error) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	if body != nil {
		if err := c.ShouldBindJSON(body); err != nil {
			respondWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
	}
	if err := fn(caller); err != nil {
		if err != errAborted {
			respondGatewayError(c, err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ============================================
// 审核接口
// ============================================

// Approve POST /api/requests/:id/approve
func (h *GatewayHandler) Approve(c *gin.Context) {
	var req dto.ReleaseArgsRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		id, args, ok := h.releaseArgs(c, &req)
		if !ok {
			return errAborted
		}
		return h.gateway.Approve(c.Request.Context(), caller, id, args)
	})
}

// Ban POST /api/requests/:id/ban
func (h *GatewayHandler) Ban(c *gin.Context) {
	var req dto.BanRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		id, ok := uintParam(c, "id")
		if !ok {
			return errAborted
		}
		return h.gateway.Ban(c.Request.Context(), caller, id, req.Note)
	})
}

// Unban POST /api/requests/:id/unban
func (h *GatewayHandler) Unban(c *gin.Context) {
	var req dto.ReleaseArgsRequest
	h.adminAction(c, &req, func(caller common.Address) error {
		id, args, ok := h.releaseArgs(c, &req)
		if !ok {
			return errAborted
		}
		return h.gateway.Unban(c.Request.Context(), caller, id, req.Note, args)
	})
}

func (h *GatewayHandler) releaseArgs(c *gin.Context, req *dto.ReleaseArgsRequest) (uint64, services.ReleaseArgs, bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return 0, services.ReleaseArgs{}, false
	}
	asset, ok := addressParam(c, req.ToAsset, "to_asset")
	if !ok {
		return 0, services.ReleaseArgs{}, false
	}
	to, ok := addressParam(c, req.ToAddress, "to_address")
	if !ok {
		return 0, services.ReleaseArgs{}, false
	}
	amount, ok := amountParam(c, req.Amount, "amount")
	if !ok {
		return 0, services.ReleaseArgs{}, false
	}
	return id, services.ReleaseArgs{ToAsset: asset, ToAddress: to, Amount: amount}, true
}

// ListRequests GET /api/requests?status=pending&page=1&page_size=20
func (h *GatewayHandler) ListRequests(c *gin.Context) {
	page, pageSize := pageParams(c)
	status := models.ReleaseRequestStatus(c.Query("status"))
	switch status {
	case "", models.ReleaseRequestStatusPending, models.ReleaseRequestStatusApproved,
		models.ReleaseRequestStatusBanned, models.ReleaseRequestStatusRemoved:
	default:
		respondWithError(c, http.StatusBadRequest, "INVALID_STATUS", "unknown status "+strconv.Quote(string(status)))
		return
	}

	requests, total, err := h.gateway.ListRequests(c.Request.Context(), status, page, pageSize)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       requests,
		"pagination": dto.NewPagination(page, pageSize, total),
	})
}

// GetRequest GET /api/requests/:id
func (h *GatewayHandler) GetRequest(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	request, err := h.gateway.Request(c.Request.Context(), id)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": request})
}

// GetRequestAudit GET /api/requests/:id/audit
func (h *GatewayHandler) GetRequestAudit(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	audits, err := h.gateway.RequestAudit(c.Request.Context(), id)
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": audits})
}
