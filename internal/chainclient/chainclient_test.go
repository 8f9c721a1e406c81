package chainclient

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestDecodeWireTxSkipsMalformedTo(t *testing.T) {
	_, ok := decodeWireTx(pendingTxWireFormat{To: "not-an-address"})
	require.False(t, ok)
}

func TestDecodeWireTxParsesHexAmounts(t *testing.T) {
	w := pendingTxWireFormat{
		Hash:     "0x1",
		From:     "0x0000000000000000000000000000000000000001",
		To:       "0x0000000000000000000000000000000000000002",
		Value:    "0xde0b6b3a7640000",
		GasPrice: "0x12a05f200",
		Input:    "0xaabbccdd",
	}
	got, ok := decodeWireTx(w)
	require.True(t, ok)
	require.Equal(t, "1000000000000000000", got.Value.String())
	require.Equal(t, "5000000000", got.GasPriceWei.String())
}

func TestStaticPriceOracle(t *testing.T) {
	weth := common.HexToAddress("0x1")
	o := NewStaticPriceOracle(map[common.Address]float64{weth: 3000})

	p, ok := o.Spot(context.Background(), weth)
	require.True(t, ok)
	require.Equal(t, 3000.0, p)

	o.Set(weth, 3100)
	p, ok = o.Spot(context.Background(), weth)
	require.True(t, ok)
	require.Equal(t, 3100.0, p)

	_, ok = o.Spot(context.Background(), common.HexToAddress("0x2"))
	require.False(t, ok)
}
