package detection

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/market"
	"github.com/hydraflowx/mevcore/internal/mempool"
	"github.com/hydraflowx/mevcore/internal/returns"
	"github.com/stretchr/testify/require"
)

// TestScenario1SandwichDetection is the literal spec scenario: a victim
// swap of $150,000 at 40 bps slippage into a pool, with one mempool tx
// (A) swapping the opposite direction through the same pool at higher
// gas, and a second mempool tx (B) in the same direction which must be
// excluded from involved_tx_hashes.
func TestScenario1SandwichDetection(t *testing.T) {
	pool := common.HexToAddress("0x3")
	weth := common.HexToAddress("0x1")
	usdt := common.HexToAddress("0x2")

	victim := txWith(t, common.HexToHash("0xvictim"), pool, gwei(40), nil, nil)
	victim.SetSwapIntent(weth, usdt, pool, ethWei(150_000, 3000), big.NewInt(0), 40)

	txA := txWith(t, common.HexToHash("0xa"), pool, gwei(80), nil, nil)
	txA.SetSwapIntent(usdt, weth, pool, big.NewInt(1), big.NewInt(0), 10)

	txB := txWith(t, common.HexToHash("0xb"), pool, gwei(90), nil, nil)
	txB.SetSwapIntent(weth, usdt, pool, big.NewInt(1), big.NewInt(0), 10)

	mp := mempool.New(10)
	mp.Admit(victim)
	mp.Admit(txA)
	mp.Admit(txB)

	pools := market.New()
	pools.UpsertPrice(market.Price{Token: weth, USDPrice: 3000})

	stores := Stores{Pools: pools, Returns: returns.New(0), Mempool: mp}
	cfg := Config{MinConfidence: 0.1, MinProfitUSD: 0}

	got := SandwichDetector{}.Detect(victim, stores, cfg, 1000, newID("s"))
	require.Len(t, got, 1)
	require.InDelta(t, 0.7, got[0].ConfidenceScore, 1e-9)
	require.NotNil(t, got[0].SandwichDetails)
	require.Equal(t, victim.Hash, got[0].SandwichDetails.VictimTx)

	require.Contains(t, got[0].InvolvedTxHashes, victim.Hash)
	require.Contains(t, got[0].InvolvedTxHashes, txA.Hash)
	require.NotContains(t, got[0].InvolvedTxHashes, txB.Hash)
}

func TestSandwichDetectorNoIntentNoOpportunity(t *testing.T) {
	victim := txWith(t, common.HexToHash("0x1"), common.Address{}, gwei(10), nil, nil)
	stores := Stores{Pools: market.New(), Returns: returns.New(0), Mempool: mempool.New(10)}
	got := SandwichDetector{}.Detect(victim, stores, Config{}, 0, newID("s"))
	require.Nil(t, got)
}
