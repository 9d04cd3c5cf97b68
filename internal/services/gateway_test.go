package services_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"lockproxy/internal/models"
	"lockproxy/internal/services"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestUnlimitedLockReleasesOnDestination(t *testing.T) {
	p := newPair(t, models.GatewayModeUnlimited)

	require.NoError(t, p.lock(t, 5_000_000))

	require.Equal(t, int64(95_000_000), balance(t, p.a.store, tokenA, alice))
	require.Equal(t, int64(5_000_000), balance(t, p.a.store, tokenA, proxyA))
	require.Equal(t, int64(5_000_000), balance(t, p.b.store, tokenB, bob))
	require.Equal(t, int64(95_000_000), balance(t, p.b.store, tokenB, proxyB))

	events, total, err := p.a.gateway.LockEvents(context.Background(), alice, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "5000000", events[0].Amount)
	require.Equal(t, chainB, events[0].ToChainID)
	require.Equal(t, models.OutboundStatusSent, events[0].Status)
}

func TestLimitedModeRejectsOverQuotaAndRollsBackLock(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeLimited)
	require.NoError(t, p.b.gateway.SetQuota(ctx, admin, tokenB, big.NewInt(2_000_000)))

	require.NoError(t, p.lock(t, 2_000_000))

	err := p.lock(t, 1)
	require.ErrorIs(t, err, services.ErrLimitReached)
	require.Equal(t, services.KindAdmission, services.KindOf(err))

	// the failed lock was refunded on chain A
	require.Equal(t, int64(98_000_000), balance(t, p.a.store, tokenA, alice))
	_, total, err := p.a.gateway.LockEvents(ctx, alice, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	quota, err := p.b.gateway.Quota(ctx, tokenB)
	require.NoError(t, err)
	require.Equal(t, "2000000", quota.Used)
}

func TestLimitedModeRefreshWindow(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeLimited)
	require.NoError(t, p.b.gateway.SetQuota(ctx, admin, tokenB, big.NewInt(10)))
	require.NoError(t, p.b.gateway.SetRefreshPeriod(ctx, admin, tokenB, 100))

	require.NoError(t, p.lock(t, 10))
	first, err := p.b.gateway.RefreshTimestamp(ctx, tokenB)
	require.NoError(t, err)
	require.Equal(t, p.clock.Now().Unix(), first)

	p.clock.Add(99 * time.Second)
	require.ErrorIs(t, p.lock(t, 1), services.ErrLimitReached)

	p.clock.Add(time.Second)
	require.NoError(t, p.lock(t, 10))
	second, err := p.b.gateway.RefreshTimestamp(ctx, tokenB)
	require.NoError(t, err)
	require.Equal(t, first+100, second)
}

func TestLimitedScenario(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeLimited)
	require.NoError(t, p.b.gateway.SetQuota(ctx, admin, tokenB, big.NewInt(5_000_000)))
	require.NoError(t, p.b.gateway.SetRefreshPeriod(ctx, admin, tokenB, 10_000))

	require.NoError(t, p.lock(t, 2_000_000))
	lastRefresh, err := p.b.gateway.RefreshTimestamp(ctx, tokenB)
	require.NoError(t, err)
	require.Equal(t, p.clock.Now().Unix(), lastRefresh)

	require.ErrorIs(t, p.lock(t, 7_000_000), services.ErrLimitReached)
	require.Equal(t, int64(98_000_000), balance(t, p.a.store, tokenA, alice))
	require.Equal(t, int64(2_000_000), balance(t, p.b.store, tokenB, bob))

	p.clock.Add(9_999 * time.Second)
	require.ErrorIs(t, p.lock(t, 3_000_001), services.ErrLimitReached)

	p.clock.Set(time.Unix(lastRefresh+10_001, 0))
	require.NoError(t, p.lock(t, 3_000_000))
	require.Equal(t, int64(95_000_000), balance(t, p.a.store, tokenA, alice))
	require.Equal(t, int64(5_000_000), balance(t, p.b.store, tokenB, bob))

	quota, err := p.b.gateway.Quota(ctx, tokenB)
	require.NoError(t, err)
	require.Equal(t, "3000000", quota.Used)
	require.Equal(t, lastRefresh+10_001, quota.LastRefresh)
}

func TestRebindingProxyBreaksAndRestoresRoute(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeUnlimited)
	thirdParty := common.HexToAddress("0x0000000000000000000000000000000000000ccc")

	require.NoError(t, p.b.gateway.BindProxyHash(ctx, admin, chainA, thirdParty.Bytes()))
	err := p.lock(t, 1_000_000)
	require.ErrorIs(t, err, services.ErrFromProxyMismatch)
	require.Equal(t, int64(100_000_000), balance(t, p.a.store, tokenA, alice))
	require.Zero(t, balance(t, p.a.store, tokenA, proxyA))
	require.Zero(t, balance(t, p.b.store, tokenB, bob))

	require.NoError(t, p.b.gateway.BindProxyHash(ctx, admin, chainA, proxyA.Bytes()))
	require.NoError(t, p.lock(t, 1_000_000))
	require.Equal(t, int64(99_000_000), balance(t, p.a.store, tokenA, alice))
	require.Equal(t, int64(1_000_000), balance(t, p.b.store, tokenB, bob))

	_, total, err := p.a.gateway.LockEvents(ctx, alice, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
}

func TestReviewableQueuesAndApproves(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeReviewable)
	require.NoError(t, p.b.gateway.SetLimitForToken(ctx, admin, tokenB, big.NewInt(2_000_000)))

	require.NoError(t, p.lock(t, 2_000_000))
	require.Equal(t, int64(2_000_000), balance(t, p.b.store, tokenB, bob))

	// over quota: the lock succeeds, the release waits for review
	require.NoError(t, p.lock(t, 6_000_000))
	require.Equal(t, int64(92_000_000), balance(t, p.a.store, tokenA, alice))
	require.Equal(t, int64(2_000_000), balance(t, p.b.store, tokenB, bob))

	latest, err := p.b.gateway.LatestRequestID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), latest)

	request, err := p.b.gateway.Request(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.ReleaseRequestStatusPending, request.Status)
	require.Equal(t, "6000000", request.Amount)
	require.Equal(t, bob.Hex(), request.ToAddress)

	// arguments must match the stored request
	require.ErrorIs(t, p.b.gateway.Approve(ctx, censor, 1, releaseArgs(6_000_001)), services.ErrInvalidTxArgs)
	wrongAsset := releaseArgs(6_000_000)
	wrongAsset.ToAsset = tokenA
	require.ErrorIs(t, p.b.gateway.Approve(ctx, censor, 1, wrongAsset), services.ErrInvalidTxArgs)
	wrongTo := releaseArgs(6_000_000)
	wrongTo.ToAddress = alice
	require.ErrorIs(t, p.b.gateway.Approve(ctx, censor, 1, wrongTo), services.ErrInvalidTxArgs)

	require.ErrorIs(t, p.b.gateway.Approve(ctx, stranger, 1, releaseArgs(6_000_000)), services.ErrNotCensor)

	require.NoError(t, p.b.gateway.Approve(ctx, censor, 1, releaseArgs(6_000_000)))
	require.Equal(t, int64(8_000_000), balance(t, p.b.store, tokenB, bob))

	require.ErrorIs(t, p.b.gateway.Approve(ctx, censor, 1, releaseArgs(6_000_000)), services.ErrNotPendingRequest)

	request, err = p.b.gateway.Request(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.ReleaseRequestStatusApproved, request.Status)
	require.NotNil(t, request.SettledAt)

	require.Equal(t, []string{"create", "approve"}, p.b.notifier.actions())
}

func TestReviewableBanUnbanRemove(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeReviewable)

	// quota 0: every release is queued
	for i := 0; i < 3; i++ {
		require.NoError(t, p.lock(t, 1_000))
	}
	latest, err := p.b.gateway.LatestRequestID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), latest)

	// ban then unban releases directly
	require.NoError(t, p.b.gateway.Ban(ctx, censor, 1, "suspicious"))
	require.ErrorIs(t, p.b.gateway.Approve(ctx, censor, 1, releaseArgs(1_000)), services.ErrNotPendingRequest)
	require.ErrorIs(t, p.b.gateway.Ban(ctx, censor, 1, "again"), services.ErrNotPendingRequest)
	require.ErrorIs(t, p.b.gateway.Unban(ctx, censor, 1, "ok", releaseArgs(999)), services.ErrInvalidTxArgs)
	require.NoError(t, p.b.gateway.Unban(ctx, censor, 1, "cleared", releaseArgs(1_000)))
	require.Equal(t, int64(1_000), balance(t, p.b.store, tokenB, bob))

	// unban only applies to banned requests
	require.ErrorIs(t, p.b.gateway.Unban(ctx, censor, 2, "", releaseArgs(1_000)), services.ErrNotBannedRequest)

	// ban then remove voids the request
	require.NoError(t, p.b.gateway.Ban(ctx, censor, 2, "fraud"))
	require.ErrorIs(t, p.b.gateway.RemoveBannedRequest(ctx, censor, 2), services.ErrNotAdmin)
	require.NoError(t, p.b.gateway.RemoveBannedRequest(ctx, admin, 2))
	require.ErrorIs(t, p.b.gateway.Unban(ctx, censor, 2, "", releaseArgs(1_000)), services.ErrNotBannedRequest)
	require.ErrorIs(t, p.b.gateway.RemoveBannedRequest(ctx, admin, 2), services.ErrNotBannedRequest)
	require.ErrorIs(t, p.b.gateway.RemoveBannedRequest(ctx, admin, 3), services.ErrNotBannedRequest)
	require.Equal(t, int64(1_000), balance(t, p.b.store, tokenB, bob))

	require.ErrorIs(t, p.b.gateway.Approve(ctx, censor, 42, releaseArgs(1_000)), services.ErrRequestNotFound)

	audit, err := p.b.gateway.RequestAudit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, audit, 3)
	require.Equal(t, models.ReleaseRequestActionRemove, audit[2].Action)

	pending, total, err := p.b.gateway.ListRequests(ctx, models.ReleaseRequestStatusPending, 1, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, uint64(3), pending[0].ID)
}

func TestRequestIDsSkipNothingOnFailure(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeReviewable)

	require.NoError(t, p.lock(t, 1))
	require.NoError(t, p.b.gateway.Pause(ctx, admin))
	require.ErrorIs(t, p.lock(t, 1), services.ErrPaused)
	require.NoError(t, p.b.gateway.Unpause(ctx, admin))
	require.NoError(t, p.lock(t, 1))

	latest, err := p.b.gateway.LatestRequestID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), latest)
	_, err = p.b.gateway.Request(ctx, 2)
	require.NoError(t, err)
}

func TestUnlockValidation(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeUnlimited)
	gw := p.b.gateway
	good := payload(t, tokenB.Bytes(), bob.Bytes(), 10)

	_, err := gw.Unlock(ctx, stranger, good, proxyA.Bytes(), chainA)
	require.ErrorIs(t, err, services.ErrNotManager)

	_, err = gw.Unlock(ctx, hubAddress, good, proxyB.Bytes(), chainA)
	require.ErrorIs(t, err, services.ErrFromProxyMismatch)

	_, err = gw.Unlock(ctx, hubAddress, good, proxyA.Bytes(), 99)
	require.ErrorIs(t, err, services.ErrFromProxyMismatch)

	_, err = gw.Unlock(ctx, hubAddress, []byte{1, 2, 3}, proxyA.Bytes(), chainA)
	require.ErrorIs(t, err, services.ErrInvalidPayload)

	_, err = gw.Unlock(ctx, hubAddress, payload(t, nil, bob.Bytes(), 10), proxyA.Bytes(), chainA)
	require.ErrorIs(t, err, services.ErrEmptyToAssetHash)

	_, err = gw.Unlock(ctx, hubAddress, payload(t, tokenB.Bytes(), nil, 10), proxyA.Bytes(), chainA)
	require.ErrorIs(t, err, services.ErrEmptyToAddress)

	_, err = gw.Unlock(ctx, hubAddress, payload(t, tokenA.Bytes(), bob.Bytes(), 10), proxyA.Bytes(), chainA)
	require.ErrorIs(t, err, services.ErrToAssetNotBound)

	require.NoError(t, gw.Pause(ctx, admin))
	_, err = gw.Unlock(ctx, hubAddress, good, proxyA.Bytes(), chainA)
	require.ErrorIs(t, err, services.ErrPaused)
	require.NoError(t, gw.Unpause(ctx, admin))

	result, err := gw.Unlock(ctx, hubAddress, good, proxyA.Bytes(), chainA)
	require.NoError(t, err)
	require.True(t, result.Released)
	require.Equal(t, int64(10), balance(t, p.b.store, tokenB, bob))
}

func TestUnlockAfterUnbindingFails(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeUnlimited)

	require.NoError(t, p.b.gateway.BindAssetHash(ctx, admin, tokenB, chainA, nil))
	err := p.lock(t, 10)
	require.ErrorIs(t, err, services.ErrToAssetNotBound)
	require.Equal(t, int64(100_000_000), balance(t, p.a.store, tokenA, alice))
}

func TestLockValidation(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeUnlimited)
	gw := p.a.gateway

	_, err := gw.Lock(ctx, alice, tokenA, chainB, bob.Bytes(), big.NewInt(0))
	require.ErrorIs(t, err, services.ErrZeroAmount)

	_, err = gw.Lock(ctx, alice, tokenA, chainB, nil, big.NewInt(1))
	require.ErrorIs(t, err, services.ErrEmptyToAddress)

	_, err = gw.Lock(ctx, alice, tokenB, chainB, bob.Bytes(), big.NewInt(1))
	require.ErrorIs(t, err, services.ErrEmptyToAssetHash)

	require.NoError(t, gw.BindAssetHash(ctx, admin, tokenA, 7, tokenB.Bytes()))
	_, err = gw.Lock(ctx, alice, tokenA, 7, bob.Bytes(), big.NewInt(1))
	require.ErrorIs(t, err, services.ErrEmptyToProxyHash)

	// bob never approved gateway A
	_, err = gw.Lock(ctx, bob, tokenA, chainB, bob.Bytes(), big.NewInt(1))
	require.Error(t, err)
	require.Equal(t, services.KindInternal, services.KindOf(err))

	require.NoError(t, gw.Pause(ctx, admin))
	_, err = gw.Lock(ctx, alice, tokenA, chainB, bob.Bytes(), big.NewInt(1))
	require.ErrorIs(t, err, services.ErrPaused)

	require.Equal(t, int64(100_000_000), balance(t, p.a.store, tokenA, alice))
}

func TestAdminOperations(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeReviewable)
	gw := p.b.gateway
	newAdmin := bob

	require.ErrorIs(t, gw.Pause(ctx, stranger), services.ErrNotAdmin)
	require.ErrorIs(t, gw.Unpause(ctx, admin), services.ErrNotPaused)
	require.NoError(t, gw.Pause(ctx, admin))
	require.ErrorIs(t, gw.Pause(ctx, admin), services.ErrPaused)
	require.NoError(t, gw.Unpause(ctx, admin))

	require.ErrorIs(t, gw.SetQuota(ctx, admin, tokenB, big.NewInt(-1)), services.ErrNegativeQuota)
	require.ErrorIs(t, gw.SetRefreshPeriod(ctx, admin, tokenB, -1), services.ErrNegativePeriod)
	require.ErrorIs(t, gw.BindProxyHash(ctx, stranger, chainA, proxyA.Bytes()), services.ErrNotAdmin)

	require.ErrorIs(t, gw.SetManagerProxy(ctx, admin, common.Address{}), services.ErrZeroManager)
	require.NoError(t, gw.SetManagerProxy(ctx, admin, stranger))
	manager, err := gw.ManagerProxyContract(ctx)
	require.NoError(t, err)
	require.Equal(t, stranger, manager)

	require.NoError(t, gw.AddCensor(ctx, admin, bob))
	ok, err := gw.IsCensor(ctx, bob)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, gw.RemoveCensor(ctx, admin, bob))
	ok, err = gw.IsCensor(ctx, bob)
	require.NoError(t, err)
	require.False(t, ok)

	require.ErrorIs(t, gw.TransferAdmin(ctx, admin, common.Address{}), services.ErrZeroAdmin)
	require.NoError(t, gw.TransferAdmin(ctx, admin, newAdmin))
	require.ErrorIs(t, gw.Pause(ctx, admin), services.ErrNotAdmin)
	require.NoError(t, gw.Pause(ctx, newAdmin))

	state, err := gw.State(ctx)
	require.NoError(t, err)
	require.Equal(t, newAdmin.Hex(), state.Admin)
	require.True(t, state.Paused)
}

func TestModeGating(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeLimited)
	gw := p.b.gateway

	require.ErrorIs(t, gw.SetLimitForToken(ctx, admin, tokenB, big.NewInt(1)), services.ErrModeNotSupported)
	require.ErrorIs(t, gw.AddCensor(ctx, admin, bob), services.ErrModeNotSupported)
	require.ErrorIs(t, gw.Approve(ctx, censor, 1, releaseArgs(1)), services.ErrModeNotSupported)
	require.ErrorIs(t, gw.Ban(ctx, censor, 1, ""), services.ErrModeNotSupported)
	require.ErrorIs(t, gw.Unban(ctx, censor, 1, "", releaseArgs(1)), services.ErrModeNotSupported)
	require.ErrorIs(t, gw.RemoveBannedRequest(ctx, admin, 1), services.ErrModeNotSupported)
}

func TestBootstrapKeepsStoredState(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeReviewable)

	state, err := p.b.gateway.Bootstrap(ctx, services.BootstrapParams{Admin: stranger})
	require.NoError(t, err)
	require.Equal(t, admin.Hex(), state.Admin)

	censors, err := p.b.gateway.Censors(ctx)
	require.NoError(t, err)
	require.Len(t, censors, 1)

	_, err = p.b.gateway.Bootstrap(ctx, services.BootstrapParams{})
	require.ErrorIs(t, err, services.ErrZeroAdmin)
}

func TestAuditTimestampsFollowGatewayClock(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeReviewable)
	p.clock.Add(time.Hour)
	now := p.clock.Now()

	require.NoError(t, p.b.gateway.AddCensor(ctx, admin, stranger))
	require.NoError(t, p.b.gateway.SetLimitForToken(ctx, admin, tokenB, big.NewInt(10)))

	censors, err := p.b.gateway.Censors(ctx)
	require.NoError(t, err)
	var added *models.Censor
	for _, c := range censors {
		if c.Address == stranger.Hex() {
			added = c
		}
	}
	require.NotNil(t, added)
	require.True(t, now.Equal(added.CreatedAt), "censor stamped %v", added.CreatedAt)

	quota, err := p.b.gateway.Quota(ctx, tokenB)
	require.NoError(t, err)
	require.True(t, now.Equal(quota.UpdatedAt), "quota stamped %v", quota.UpdatedAt)
}
