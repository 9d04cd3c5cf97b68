package services

import "errors"

// ErrorKind groups gateway failures by how a caller should react
type ErrorKind string

const (
	KindConfig        ErrorKind = "config"        // missing binding or unset quota
	KindAdmission     ErrorKind = "admission"     // quota exceeded
	KindAuthorization ErrorKind = "authorization" // wrong role or wrong messenger
	KindArgument      ErrorKind = "argument"      // arguments rejected without touching state
	KindState         ErrorKind = "state"         // invalid request transition or unknown request
	KindPaused        ErrorKind = "paused"        // circuit breaker tripped
	KindInternal      ErrorKind = "internal"      // storage or collaborator failure
)

// GatewayError a classified gateway failure
type GatewayError struct {
	Kind ErrorKind
	Msg  string
}

func (e *GatewayError) Error() string {
	return e.Msg
}

func newError(kind ErrorKind, msg string) *GatewayError {
	return &GatewayError{Kind: kind, Msg: msg}
}

var (
	ErrPaused    = newError(KindPaused, "Pausable: paused")
	ErrNotPaused = newError(KindState, "Pausable: not paused")

	ErrNotAdmin       = newError(KindAuthorization, "Ownable: caller is not the owner")
	ErrZeroAdmin      = newError(KindArgument, "Ownable: new owner is the zero address")
	ErrNotCensor      = newError(KindAuthorization, "caller is not a censor")
	ErrNotManager     = newError(KindAuthorization, "msgSender is not EthCrossChainManagerContract")
	ErrZeroManager    = newError(KindArgument, "manager proxy is the zero address")
	ErrNoManagerProxy = newError(KindConfig, "manager proxy not set")

	ErrEmptyToProxyHash   = newError(KindConfig, "empty illegal toProxyHash")
	ErrEmptyToAssetHash   = newError(KindConfig, "empty illegal toAssetHash")
	ErrEmptyToAddress     = newError(KindArgument, "empty illegal toAddress")
	ErrFromProxyMismatch  = newError(KindAuthorization, "From Proxy contract address error!")
	ErrToAssetNotBound    = newError(KindConfig, "toAsset not bind")
	ErrZeroAmount         = newError(KindArgument, "amount cannot be zero!")
	ErrInvalidPayload     = newError(KindArgument, "invalid cross-chain payload")
	ErrUnsupportedMethod  = newError(KindArgument, "unsupported cross-chain method")
	ErrNegativeQuota      = newError(KindArgument, "quota must not be negative")
	ErrNegativePeriod     = newError(KindArgument, "refresh period must not be negative")
	ErrModeNotSupported   = newError(KindConfig, "operation not supported in this gateway mode")
	ErrLimitReached       = newError(KindAdmission, "limit reached")
	ErrInvalidTxArgs      = newError(KindArgument, "invalid TxArgs")
	ErrNotPendingRequest  = newError(KindState, "this is not a pending request")
	ErrNotBannedRequest   = newError(KindState, "this is not a banned request")
	ErrRequestNotFound    = newError(KindState, "release request not found")
	ErrGatewayUninitiated = newError(KindConfig, "gateway state not initialized")
	ErrDuplicateMessage   = newError(KindState, "cross-chain message already handled")
	ErrMessageExpired     = newError(KindState, "cross-chain message deadline passed")
	ErrWrongDestination   = newError(KindArgument, "cross-chain message addressed to another chain")
)

// KindOf classifies err; unclassified errors are internal
func KindOf(err error) ErrorKind {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Kind
	}
	return KindInternal
}
