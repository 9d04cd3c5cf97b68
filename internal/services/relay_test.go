package services_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"lockproxy/internal/clients"
	"lockproxy/internal/models"
	"lockproxy/internal/services"
	"lockproxy/internal/types"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// slowRelay delays every message before handing it to next
type slowRelay struct {
	next  services.Messenger
	delay time.Duration
}

func (r *slowRelay) SendMessage(ctx context.Context, envelope *types.Envelope) error {
	time.Sleep(r.delay)
	return r.next.SendMessage(ctx, envelope)
}

func TestCrossLocksInBothDirectionsComplete(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))

	hub := clients.NewHub(hubAddress, newLogger())
	relay := &slowRelay{next: hub, delay: 50 * time.Millisecond}
	a := newSide(t, chainA, proxyA, models.GatewayModeUnlimited, relay, clk)
	b := newSide(t, chainB, proxyB, models.GatewayModeUnlimited, relay, clk)
	hub.Bind(chainA, a.gateway)
	hub.Bind(chainB, b.gateway)

	require.NoError(t, a.gateway.BindProxyHash(ctx, admin, chainB, proxyB.Bytes()))
	require.NoError(t, a.gateway.BindAssetHash(ctx, admin, tokenA, chainB, tokenB.Bytes()))
	require.NoError(t, b.gateway.BindProxyHash(ctx, admin, chainA, proxyA.Bytes()))
	require.NoError(t, b.gateway.BindAssetHash(ctx, admin, tokenB, chainA, tokenA.Bytes()))

	require.NoError(t, a.store.Mint(ctx, tokenA, alice, big.NewInt(1_000)))
	require.NoError(t, a.store.Approve(ctx, tokenA, alice, proxyA, big.NewInt(1_000)))
	require.NoError(t, a.store.Mint(ctx, tokenA, proxyA, big.NewInt(1_000)))
	require.NoError(t, b.store.Mint(ctx, tokenB, bob, big.NewInt(1_000)))
	require.NoError(t, b.store.Approve(ctx, tokenB, bob, proxyB, big.NewInt(1_000)))
	require.NoError(t, b.store.Mint(ctx, tokenB, proxyB, big.NewInt(1_000)))

	var g errgroup.Group
	g.Go(func() error {
		_, err := a.gateway.Lock(ctx, alice, tokenA, chainB, alice.Bytes(), big.NewInt(100))
		return err
	})
	g.Go(func() error {
		_, err := b.gateway.Lock(ctx, bob, tokenB, chainA, bob.Bytes(), big.NewInt(200))
		return err
	})

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("concurrent locks A->B and B->A did not return")
	}

	require.Equal(t, int64(900), balance(t, a.store, tokenA, alice))
	require.Equal(t, int64(100), balance(t, b.store, tokenB, alice))
	require.Equal(t, int64(800), balance(t, b.store, tokenB, bob))
	require.Equal(t, int64(200), balance(t, a.store, tokenA, bob))

	events, _, err := a.gateway.LockEvents(ctx, alice, 1, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.OutboundStatusSent, events[0].Status)
}

func TestDuplicateDeliveryReleasesOnce(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeUnlimited)

	envelope := &types.Envelope{
		ID:            "0b6b1a8e-3a4c-4f5e-9d2a-7c1e5f0a9b01",
		FromChainID:   chainA,
		FromProxyHash: proxyA.Bytes(),
		ToChainID:     chainB,
		ToProxyHash:   proxyB.Bytes(),
		Method:        types.MethodUnlock,
		Args:          payload(t, tokenB.Bytes(), bob.Bytes(), 300),
	}
	result, err := p.b.gateway.Receive(ctx, hubAddress, envelope)
	require.NoError(t, err)
	require.True(t, result.Released)

	_, err = p.b.gateway.Receive(ctx, hubAddress, envelope)
	require.ErrorIs(t, err, services.ErrDuplicateMessage)
	require.Equal(t, services.KindState, services.KindOf(err))
	require.Equal(t, int64(300), balance(t, p.b.store, tokenB, bob))

	// same id from another chain is a different message
	require.NoError(t, p.b.gateway.BindProxyHash(ctx, admin, 3, proxyA.Bytes()))
	require.NoError(t, p.b.gateway.BindAssetHash(ctx, admin, tokenB, 3, tokenA.Bytes()))
	other := *envelope
	other.FromChainID = 3
	_, err = p.b.gateway.Receive(ctx, hubAddress, &other)
	require.NoError(t, err)
	require.Equal(t, int64(600), balance(t, p.b.store, tokenB, bob))
}

func TestRefusedDeliveryCanBeRetried(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeUnlimited)
	require.NoError(t, p.b.gateway.Pause(ctx, admin))

	envelope := &types.Envelope{
		ID:            "5d0c2f1e-8b7a-4c3d-a1e2-0f9e8d7c6b5a",
		FromChainID:   chainA,
		FromProxyHash: proxyA.Bytes(),
		ToChainID:     chainB,
		ToProxyHash:   proxyB.Bytes(),
		Method:        types.MethodUnlock,
		Args:          payload(t, tokenB.Bytes(), bob.Bytes(), 50),
	}
	_, err := p.b.gateway.Receive(ctx, hubAddress, envelope)
	require.ErrorIs(t, err, services.ErrPaused)

	require.NoError(t, p.b.gateway.Unpause(ctx, admin))
	_, err = p.b.gateway.Receive(ctx, hubAddress, envelope)
	require.NoError(t, err)
	require.Equal(t, int64(50), balance(t, p.b.store, tokenB, bob))
}

func TestReceiveRefusesMisaddressedEnvelope(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeUnlimited)

	envelope := &types.Envelope{
		ID:            "misaddressed",
		FromChainID:   chainA,
		FromProxyHash: proxyA.Bytes(),
		ToChainID:     chainA,
		Method:        types.MethodUnlock,
		Args:          payload(t, tokenB.Bytes(), bob.Bytes(), 50),
	}
	_, err := p.b.gateway.Receive(ctx, hubAddress, envelope)
	require.ErrorIs(t, err, services.ErrWrongDestination)

	envelope.ToChainID = chainB
	envelope.Method = "mint"
	_, err = p.b.gateway.Receive(ctx, hubAddress, envelope)
	require.ErrorIs(t, err, services.ErrUnsupportedMethod)
	require.Zero(t, balance(t, p.b.store, tokenB, bob))
}

func TestReceiveAfterDeadlineIsRefused(t *testing.T) {
	p := newPair(t, models.GatewayModeUnlimited)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Millisecond))
	defer cancel()
	_, err := p.b.gateway.Receive(ctx, hubAddress, &types.Envelope{
		ID:            "late",
		FromChainID:   chainA,
		FromProxyHash: proxyA.Bytes(),
		ToChainID:     chainB,
		Method:        types.MethodUnlock,
		Args:          payload(t, tokenB.Bytes(), bob.Bytes(), 50),
	})
	require.ErrorIs(t, err, services.ErrMessageExpired)
	require.Zero(t, balance(t, p.b.store, tokenB, bob))
}

func TestFailedRelayRefundsSender(t *testing.T) {
	ctx := context.Background()
	p := newPair(t, models.GatewayModeLimited)
	require.NoError(t, p.b.gateway.SetQuota(ctx, admin, tokenB, big.NewInt(10)))

	require.ErrorIs(t, p.lock(t, 11), services.ErrLimitReached)
	require.Equal(t, int64(100_000_000), balance(t, p.a.store, tokenA, alice))
	require.Zero(t, balance(t, p.a.store, tokenA, proxyA))

	_, total, err := p.a.gateway.LockEvents(ctx, alice, 1, 10)
	require.NoError(t, err)
	require.Zero(t, total)
}
