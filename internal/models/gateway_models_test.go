package models

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuotaRecordTryConsume(t *testing.T) {
	q := &QuotaRecord{Limit: "10", Used: "0", RefreshPeriod: 100, LastRefresh: 1000}

	require.True(t, q.TryConsume(big.NewInt(4), 1010))
	require.Equal(t, "4", q.Used)
	require.True(t, q.TryConsume(big.NewInt(6), 1020))
	require.Equal(t, "10", q.Used)

	// full quota is denied and nothing changes
	require.False(t, q.TryConsume(big.NewInt(1), 1050))
	require.Equal(t, "10", q.Used)
	require.Equal(t, int64(1000), q.LastRefresh)
}

func TestQuotaRecordRefreshAtBoundary(t *testing.T) {
	q := &QuotaRecord{Limit: "10", Used: "10", RefreshPeriod: 100, LastRefresh: 1000}

	require.False(t, q.TryConsume(big.NewInt(1), 1099))

	// now - last == period resets the window
	require.True(t, q.TryConsume(big.NewInt(3), 1100))
	require.Equal(t, "3", q.Used)
	require.Equal(t, int64(1100), q.LastRefresh)
}

func TestQuotaRecordDeniedRefreshIsNotKept(t *testing.T) {
	q := &QuotaRecord{Limit: "10", Used: "8", RefreshPeriod: 100, LastRefresh: 1000}

	require.False(t, q.TryConsume(big.NewInt(11), 2000))
	require.Equal(t, "8", q.Used)
	require.Equal(t, int64(1000), q.LastRefresh)
}

func TestQuotaRecordZeroPeriodNeverResets(t *testing.T) {
	q := &QuotaRecord{Limit: "5", Used: "5", RefreshPeriod: 0, LastRefresh: 0}

	require.False(t, q.Refresh(1<<40))
	require.False(t, q.TryConsume(big.NewInt(1), 1<<40))
	require.True(t, q.TryConsume(big.NewInt(0), 1<<40))
}

func TestQuotaRecordUnknownAssetHasZeroLimit(t *testing.T) {
	q := &QuotaRecord{Limit: "0", Used: "0"}
	require.False(t, q.TryConsume(big.NewInt(1), 10))
	require.Equal(t, 0, q.LimitAmount().Sign())
}

func TestReleaseRequestStatusTerminal(t *testing.T) {
	require.True(t, ReleaseRequestStatusApproved.Terminal())
	require.True(t, ReleaseRequestStatusRemoved.Terminal())
	require.False(t, ReleaseRequestStatusPending.Terminal())
	require.False(t, ReleaseRequestStatusBanned.Terminal())
}

func TestGatewayModeValid(t *testing.T) {
	require.True(t, GatewayModeUnlimited.Valid())
	require.True(t, GatewayModeLimited.Valid())
	require.True(t, GatewayModeReviewable.Valid())
	require.False(t, GatewayMode("open").Valid())
}
