package handlers

import (
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"lockproxy/internal/services"
	"lockproxy/internal/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// CallerKey gin context key holding the authenticated caller address
const CallerKey = "caller_address"

// respondWithError unified error response function
func respondWithError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error":   message,
		"code":    code,
	})
}

// respondGatewayError maps a gateway error kind to an HTTP status
func respondGatewayError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	respondWithError(c, StatusForKind(kind, err), string(kind), err.Error())
}

// StatusForKind HTTP status of a gateway failure
func StatusForKind(kind services.ErrorKind, err error) int {
	switch kind {
	case services.KindArgument, services.KindConfig:
		return http.StatusBadRequest
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindState:
		if errors.Is(err, services.ErrRequestNotFound) {
			return http.StatusNotFound
		}
		return http.StatusConflict
	case services.KindPaused:
		return http.StatusLocked
	case services.KindAdmission:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// callerFrom returns the address the auth middleware stored
func callerFrom(c *gin.Context) (common.Address, bool) {
	value, ok := c.Get(CallerKey)
	if !ok {
		return common.Address{}, false
	}
	address, ok := value.(common.Address)
	return address, ok
}

// mustCaller aborts with 401 when no caller is present
func mustCaller(c *gin.Context) (common.Address, bool) {
	caller, ok := callerFrom(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, "MISSING_CALLER", "Authentication required")
	}
	return caller, ok
}

func addressParam(c *gin.Context, value, field string) (common.Address, bool) {
	address, err := utils.ParseAddress(value)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_ADDRESS", field+": "+err.Error())
		return common.Address{}, false
	}
	return address, true
}

func uintParam(c *gin.Context, name string) (uint64, bool) {
	value, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_PARAMETER", "invalid "+name)
		return 0, false
	}
	return value, true
}

func amountParam(c *gin.Context, value, field string) (*big.Int, bool) {
	amount, err := utils.ParseAmount(value)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_AMOUNT", field+": "+err.Error())
		return nil, false
	}
	return amount, true
}

func hashParam(c *gin.Context, value, field string) ([]byte, bool) {
	hash, err := utils.DecodeHash(value)
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_HASH", field+": "+err.Error())
		return nil, false
	}
	return hash, true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}
