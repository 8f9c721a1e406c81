package detection

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/market"
	"github.com/hydraflowx/mevcore/internal/mempool"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/returns"
	"github.com/hydraflowx/mevcore/internal/tx"
	"github.com/stretchr/testify/require"
)

func buildKernel(t *testing.T) (*Kernel, tx.Transaction) {
	t.Helper()
	pool := common.HexToAddress("0xpool")
	weth := common.HexToAddress("0xweth")
	usdt := common.HexToAddress("0xusdt")

	victim := txWith(t, common.HexToHash("0xvictim"), pool, gwei(40), nil, nil)
	victim.SetSwapIntent(weth, usdt, pool, ethWei(150_000, 3000), big.NewInt(0), 40)

	suspect := txWith(t, common.HexToHash("0xsuspect"), pool, gwei(80), nil, nil)
	suspect.SetSwapIntent(usdt, weth, pool, big.NewInt(1), big.NewInt(0), 10)

	mp := mempool.New(10)
	mp.Admit(victim)
	mp.Admit(suspect)

	pools := market.New()
	pools.UpsertPrice(market.Price{Token: weth, USDPrice: 3000})

	stores := Stores{Pools: pools, Returns: returns.New(0), Mempool: mp}
	cfg := Config{MinConfidence: 0.1, MinProfitUSD: 0}
	registry := opportunity.NewRegistry(0)

	seq := 0
	clk := func() uint64 { return 1000 }
	id := func() string { seq++; return "k" + string(rune('0'+seq)) }

	k := NewKernel(DefaultDetectors(nil), stores, cfg, registry, clk, id)
	return k, victim
}

func TestKernelAnalyzeIsDeterministic(t *testing.T) {
	k1, victim1 := buildKernel(t)
	k2, victim2 := buildKernel(t)

	got1 := k1.Analyze(victim1)
	got2 := k2.Analyze(victim2)

	require.Equal(t, len(got1), len(got2))
	for i := range got1 {
		require.Equal(t, got1[i].Type, got2[i].Type)
		require.InDelta(t, got1[i].ConfidenceScore, got2[i].ConfidenceScore, 1e-9)
	}
}

func TestKernelPublishesToRegistry(t *testing.T) {
	k, victim := buildKernel(t)
	got := k.Analyze(victim)
	require.NotEmpty(t, got)
	require.Greater(t, k.registry.Len(), 0)
}
