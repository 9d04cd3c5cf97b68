package types

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestTxArgsEncodeDecode(t *testing.T) {
	asset := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	to := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	amount, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)

	payload, err := (&TxArgs{ToAssetHash: asset.Bytes(), ToAddress: to.Bytes(), Amount: amount}).Encode()
	require.NoError(t, err)

	args, err := DecodeTxArgs(payload)
	require.NoError(t, err)
	require.Equal(t, asset.Bytes(), args.ToAssetHash)
	require.Equal(t, to.Bytes(), args.ToAddress)
	require.Zero(t, amount.Cmp(args.Amount))
}

func TestTxArgsEncodeRejectsNegativeAmount(t *testing.T) {
	_, err := (&TxArgs{ToAssetHash: []byte{1}, ToAddress: []byte{2}, Amount: big.NewInt(-1)}).Encode()
	require.Error(t, err)

	_, err = (&TxArgs{ToAssetHash: []byte{1}, ToAddress: []byte{2}}).Encode()
	require.Error(t, err)
}

func TestDecodeTxArgsRejectsGarbage(t *testing.T) {
	_, err := DecodeTxArgs([]byte{0x01, 0x02, 0x03})
	require.Error(t, err)

	_, err = DecodeTxArgs(nil)
	require.Error(t, err)
}

func TestEnvelopeJSONUsesHex(t *testing.T) {
	envelope := Envelope{
		ID:            "m-1",
		FromChainID:   1,
		FromProxyHash: []byte{0xab},
		ToChainID:     2,
		ToProxyHash:   []byte{0xcd},
		Method:        MethodUnlock,
		Args:          []byte{0x01, 0x02},
	}
	data, err := json.Marshal(envelope)
	require.NoError(t, err)
	require.Contains(t, string(data), `"from_proxy_hash":"0xab"`)
	require.Contains(t, string(data), `"args":"0x0102"`)

	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, envelope, decoded)
}

func TestEnvelopeDeadline(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	envelope := &Envelope{ID: "m-1"}
	require.False(t, envelope.Expired(now))
	_, ok := envelope.DeadlineTime()
	require.False(t, ok)

	envelope.Deadline = now.Add(time.Second).UnixMilli()
	require.False(t, envelope.Expired(now))
	require.True(t, envelope.Expired(now.Add(time.Second)))
	deadline, ok := envelope.DeadlineTime()
	require.True(t, ok)
	require.True(t, deadline.Equal(now.Add(time.Second)))

	data, err := json.Marshal(&Envelope{ID: "m-2"})
	require.NoError(t, err)
	require.NotContains(t, string(data), "deadline")
}
