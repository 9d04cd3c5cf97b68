package services_test

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"lockproxy/internal/clients"
	"lockproxy/internal/db/testutil"
	"lockproxy/internal/ledger"
	"lockproxy/internal/models"
	"lockproxy/internal/services"
	"lockproxy/internal/types"

	"github.com/benbjohnson/clock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	chainA uint64 = 1
	chainB uint64 = 2
)

var (
	admin    = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	censor   = common.HexToAddress("0x00000000000000000000000000000000000000ce")
	stranger = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	hubAddress = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	proxyA     = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	proxyB     = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	tokenA     = common.HexToAddress("0x000000000000000000000000000000000000aaaa")
	tokenB     = common.HexToAddress("0x000000000000000000000000000000000000bbbb")
)

func newLogger() *logrus.Logger {
	logger, _ := test.NewNullLogger()
	return logger
}

// recordingNotifier collects review events
type recordingNotifier struct {
	mu     sync.Mutex
	events []services.ReviewEvent
}

func (r *recordingNotifier) NotifyReleaseRequest(event services.ReviewEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

// side one gateway with its own database and embedded ledger
type side struct {
	gateway  *services.Gateway
	store    *ledger.Store
	notifier *recordingNotifier
}

func newSide(t *testing.T, chainID uint64, address common.Address, mode models.GatewayMode, messenger services.Messenger, clk clock.Clock) *side {
	t.Helper()
	database := testutil.NewTestDB(t)
	store := ledger.NewStore(database)
	notifier := &recordingNotifier{}

	gateway, err := services.NewGateway(database, services.GatewayOptions{
		ChainID:   chainID,
		Address:   address,
		Mode:      mode,
		Ledger:    store,
		Messenger: messenger,
		Notifier:  notifier,
		Clock:     clk,
		Logger:    newLogger(),
	})
	require.NoError(t, err)

	_, err = gateway.Bootstrap(context.Background(), services.BootstrapParams{
		Admin:        admin,
		ManagerProxy: hubAddress,
		Censors:      []common.Address{censor},
	})
	require.NoError(t, err)
	return &side{gateway: gateway, store: store, notifier: notifier}
}

// pair chain A (unlimited) locking into chain B (destMode) over a hub
type pair struct {
	hub   *clients.Hub
	a, b  *side
	clock *clock.Mock
}

func newPair(t *testing.T, destMode models.GatewayMode) *pair {
	t.Helper()
	ctx := context.Background()
	clk := clock.NewMock()
	clk.Set(time.Unix(1_700_000_000, 0))

	hub := clients.NewHub(hubAddress, newLogger())
	a := newSide(t, chainA, proxyA, models.GatewayModeUnlimited, hub, clk)
	b := newSide(t, chainB, proxyB, destMode, hub, clk)
	hub.Bind(chainA, a.gateway)
	hub.Bind(chainB, b.gateway)

	require.NoError(t, a.gateway.BindProxyHash(ctx, admin, chainB, proxyB.Bytes()))
	require.NoError(t, a.gateway.BindAssetHash(ctx, admin, tokenA, chainB, tokenB.Bytes()))
	require.NoError(t, b.gateway.BindProxyHash(ctx, admin, chainA, proxyA.Bytes()))
	require.NoError(t, b.gateway.BindAssetHash(ctx, admin, tokenB, chainA, tokenA.Bytes()))

	// alice holds 100M tokenA and lets gateway A pull it; gateway B holds liquidity
	require.NoError(t, a.store.Mint(ctx, tokenA, alice, big.NewInt(100_000_000)))
	require.NoError(t, a.store.Approve(ctx, tokenA, alice, proxyA, big.NewInt(100_000_000)))
	require.NoError(t, b.store.Mint(ctx, tokenB, proxyB, big.NewInt(100_000_000)))

	return &pair{hub: hub, a: a, b: b, clock: clk}
}

func (p *pair) lock(t *testing.T, amount int64) error {
	t.Helper()
	_, err := p.a.gateway.Lock(context.Background(), alice, tokenA, chainB, bob.Bytes(), big.NewInt(amount))
	return err
}

func balance(t *testing.T, store *ledger.Store, asset, holder common.Address) int64 {
	t.Helper()
	v, err := store.BalanceOf(context.Background(), asset, holder)
	require.NoError(t, err)
	return v.Int64()
}

func payload(t *testing.T, asset, to []byte, amount int64) []byte {
	t.Helper()
	data, err := (&types.TxArgs{ToAssetHash: asset, ToAddress: to, Amount: big.NewInt(amount)}).Encode()
	require.NoError(t, err)
	return data
}

func releaseArgs(amount int64) services.ReleaseArgs {
	return services.ReleaseArgs{ToAsset: tokenB, ToAddress: bob, Amount: big.NewInt(amount)}
}
