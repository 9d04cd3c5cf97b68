package clients

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"lockproxy/internal/services"
	"lockproxy/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

var (
	managerAddress = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	remoteProxy    = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	localProxy     = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

type unlockCall struct {
	caller      common.Address
	envelope    *types.Envelope
	deadline    time.Time
	hasDeadline bool
}

// fakeReceiver records inbound calls and answers with result or err
type fakeReceiver struct {
	address common.Address
	result  *services.UnlockResult
	err     error
	calls   []unlockCall
}

func (f *fakeReceiver) Address() common.Address {
	return f.address
}

func (f *fakeReceiver) Receive(ctx context.Context, caller common.Address, envelope *types.Envelope) (*services.UnlockResult, error) {
	deadline, ok := ctx.Deadline()
	f.calls = append(f.calls, unlockCall{caller: caller, envelope: envelope, deadline: deadline, hasDeadline: ok})
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func envelopeTo(chainID uint64, proxy common.Address) *types.Envelope {
	return &types.Envelope{
		ID:            "msg-1",
		FromChainID:   1,
		FromProxyHash: remoteProxy.Bytes(),
		ToChainID:     chainID,
		ToProxyHash:   proxy.Bytes(),
		Method:        types.MethodUnlock,
		Args:          []byte{0x01, 0x02},
	}
}

func TestHubDeliversAsManager(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(managerAddress, logger)
	receiver := &fakeReceiver{address: localProxy, result: &services.UnlockResult{Released: true}}
	hub.Bind(2, receiver)

	require.NoError(t, hub.SendMessage(context.Background(), envelopeTo(2, localProxy)))
	require.Len(t, receiver.calls, 1)
	require.Equal(t, managerAddress, receiver.calls[0].caller)
	require.Equal(t, "msg-1", receiver.calls[0].envelope.ID)
	require.Equal(t, remoteProxy.Bytes(), []byte(receiver.calls[0].envelope.FromProxyHash))
	require.Equal(t, uint64(1), receiver.calls[0].envelope.FromChainID)
	require.Equal(t, []byte{0x01, 0x02}, []byte(receiver.calls[0].envelope.Args))
}

func TestHubRejectsUndeliverable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(managerAddress, logger)
	receiver := &fakeReceiver{address: localProxy, result: &services.UnlockResult{}}
	hub.Bind(2, receiver)
	ctx := context.Background()

	require.ErrorContains(t, hub.SendMessage(ctx, envelopeTo(3, localProxy)), "no gateway bound")
	require.ErrorContains(t, hub.SendMessage(ctx, envelopeTo(2, remoteProxy)), "is not the gateway bound")
	require.ErrorContains(t, hub.SendMessage(ctx, envelopeTo(1, localProxy)), "to itself")

	wrongMethod := envelopeTo(2, localProxy)
	wrongMethod.Method = "mint"
	require.ErrorIs(t, hub.SendMessage(ctx, wrongMethod), services.ErrUnsupportedMethod)
	require.Empty(t, receiver.calls)
}

func TestHubPropagatesUnlockFailure(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(managerAddress, logger)
	hub.Bind(2, &fakeReceiver{address: localProxy, err: services.ErrLimitReached})

	err := hub.SendMessage(context.Background(), envelopeTo(2, localProxy))
	require.ErrorIs(t, err, services.ErrLimitReached)
}

func newOfflineNATSClient() *NATSClient {
	logger, _ := test.NewNullLogger()
	return &NATSClient{subjectPrefix: "lockproxy", manager: managerAddress, logger: logger}
}

func TestNATSSubject(t *testing.T) {
	require.Equal(t, "lockproxy.42.unlock", newOfflineNATSClient().Subject(42))
}

func TestNATSHandleMessage(t *testing.T) {
	client := newOfflineNATSClient()
	ctx := context.Background()

	receiver := &fakeReceiver{address: localProxy, result: &services.UnlockResult{RequestID: 7}}
	data, err := json.Marshal(envelopeTo(2, localProxy))
	require.NoError(t, err)

	receipt := client.HandleMessage(ctx, receiver, data)
	require.Empty(t, receipt.Error)
	require.Equal(t, uint64(7), receipt.RequestID)
	require.False(t, receipt.Released)
	require.Equal(t, managerAddress, receiver.calls[0].caller)
	require.Equal(t, "msg-1", receiver.calls[0].envelope.ID)
	require.False(t, receiver.calls[0].hasDeadline)

	receipt = client.HandleMessage(ctx, receiver, []byte("not json"))
	require.Equal(t, string(services.KindArgument), receipt.Kind)

	wrongMethod := envelopeTo(2, localProxy)
	wrongMethod.Method = "mint"
	data, err = json.Marshal(wrongMethod)
	require.NoError(t, err)
	receipt = client.HandleMessage(ctx, receiver, data)
	require.Equal(t, services.ErrUnsupportedMethod.Error(), receipt.Error)
	require.Len(t, receiver.calls, 1)

	failing := &fakeReceiver{address: localProxy, err: services.ErrFromProxyMismatch}
	data, err = json.Marshal(envelopeTo(2, localProxy))
	require.NoError(t, err)
	receipt = client.HandleMessage(ctx, failing, data)
	require.Equal(t, string(services.KindAuthorization), receipt.Kind)
	require.Equal(t, services.ErrFromProxyMismatch.Error(), receipt.Error)
}

func TestNATSHandleMessageHonoursDeadline(t *testing.T) {
	client := newOfflineNATSClient()
	ctx := context.Background()
	receiver := &fakeReceiver{address: localProxy, result: &services.UnlockResult{Released: true}}

	expired := envelopeTo(2, localProxy)
	expired.Deadline = time.Now().Add(-time.Second).UnixMilli()
	data, err := json.Marshal(expired)
	require.NoError(t, err)

	receipt := client.HandleMessage(ctx, receiver, data)
	require.Equal(t, services.ErrMessageExpired.Error(), receipt.Error)
	require.Equal(t, string(services.KindState), receipt.Kind)
	require.Empty(t, receiver.calls)

	live := envelopeTo(2, localProxy)
	live.Deadline = time.Now().Add(time.Minute).UnixMilli()
	data, err = json.Marshal(live)
	require.NoError(t, err)

	receipt = client.HandleMessage(ctx, receiver, data)
	require.Empty(t, receipt.Error)
	require.True(t, receipt.Released)
	require.Len(t, receiver.calls, 1)
	require.True(t, receiver.calls[0].hasDeadline)
	require.Equal(t, live.Deadline, receiver.calls[0].deadline.UnixMilli())
}

func TestReceiptError(t *testing.T) {
	require.NoError(t, receiptError([]byte(`{"released":true}`)))

	err := receiptError([]byte(`{"error":"limit reached","kind":"admission"}`))
	require.Error(t, err)
	require.Equal(t, services.KindAdmission, services.KindOf(err))
	require.EqualError(t, err, "limit reached")

	require.ErrorContains(t, receiptError([]byte("garbage")), "invalid delivery receipt")
}
