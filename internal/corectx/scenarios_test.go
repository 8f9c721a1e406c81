package corectx

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/config"
	"github.com/hydraflowx/mevcore/internal/market"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/protection"
	"github.com/hydraflowx/mevcore/internal/relay"
	"github.com/hydraflowx/mevcore/internal/tx"
	"github.com/stretchr/testify/require"
)

// These tests exercise the literal end-to-end scenarios through
// CoreContext's public operations surface rather than a single
// package's internals, since that surface is the only thing an
// external caller touches. Scenario 4 (breaker hysteresis) is already
// covered at the breaker package level and is not repeated here.

func ethWei(usd, ethPriceUSD float64) *big.Int {
	eth := usd / ethPriceUSD
	f := new(big.Float).Mul(big.NewFloat(eth), big.NewFloat(1e18))
	out, _ := f.Int(nil)
	return out
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func newTestCore(t *testing.T, mutate func(*config.Config)) *CoreContext {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := New(cfg, Deps{})
	require.NoError(t, err)
	return c
}

func TestScenario1SandwichDetectionEndToEnd(t *testing.T) {
	c := newTestCore(t, nil)

	pool := common.HexToAddress("0xpool")
	weth := common.HexToAddress("0xweth")
	usdt := common.HexToAddress("0xusdt")

	victim := tx.Transaction{Hash: common.HexToHash("0xvictim"), To: pool, GasPriceWei: gwei(40)}
	victim.SetSwapIntent(weth, usdt, pool, ethWei(150_000, 3000), big.NewInt(0), 40)

	txA := tx.Transaction{Hash: common.HexToHash("0xa"), To: pool, GasPriceWei: gwei(80)}
	txA.SetSwapIntent(usdt, weth, pool, big.NewInt(1), big.NewInt(0), 10)

	c.snap.Admit(victim)
	c.snap.Admit(txA)
	c.pools.UpsertPrice(market.Price{Token: weth, USDPrice: 3000})

	got := c.Analyze(victim)
	require.Len(t, got, 1)
	require.Equal(t, opportunity.Sandwich, got[0].Type)
	require.GreaterOrEqual(t, got[0].ConfidenceScore, 0.7)
	require.GreaterOrEqual(t, got[0].ConfidenceTier, opportunity.High)
	require.InDelta(t, 300.0, got[0].EstimatedProfitUSD, 1e-6)

	registered := c.GetOpportunities(opportunity.Sandwich, opportunity.Low)
	require.Len(t, registered, 1)
	require.Equal(t, got[0].ID, registered[0].ID)
}

func TestScenario2FrontrunDetectionEndToEnd(t *testing.T) {
	c := newTestCore(t, nil)

	to := common.HexToAddress("0xdex")
	selector := []byte{0x01, 0x02, 0x03, 0x04}

	victim := tx.Transaction{
		Hash: common.HexToHash("0xvictim"), To: to, GasPriceWei: gwei(50),
		Data: append(append([]byte{}, selector...), 0xaa), Value: ethWei(75_000, 3000),
	}
	mempoolTx := tx.Transaction{
		Hash: common.HexToHash("0xfront"), To: to, GasPriceWei: gwei(60),
		Data: append(append([]byte{}, selector...), 0xbb),
	}
	c.snap.Admit(mempoolTx)

	got := c.Analyze(victim)
	require.Len(t, got, 1)
	require.Equal(t, opportunity.Frontrun, got[0].Type)
	require.InDelta(t, 0.6, got[0].ConfidenceScore, 1e-9)
}

func TestScenario3ArbitragePathEndToEnd(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.Detection.MinProfitUSD = 0
	})

	weth := common.HexToAddress("0x1")
	usdt := common.HexToAddress("0x2")
	cheap := common.HexToAddress("0x11")
	rich := common.HexToAddress("0x12")

	c.pools.UpsertPool(market.Pool{Address: cheap, TokenA: weth, TokenB: usdt, ReserveA: 1e9, ReserveB: 3e12, FeeBps: 0})
	c.pools.UpsertPool(market.Pool{Address: rich, TokenA: usdt, TokenB: weth, ReserveA: 3.01e12, ReserveB: 1e9, FeeBps: 0})
	c.pools.UpsertPrice(market.Price{Token: weth, USDPrice: 3000})

	candidate := tx.Transaction{Hash: common.HexToHash("0xarb"), To: cheap, GasPriceWei: gwei(1)}
	candidate.SetSwapIntent(weth, usdt, cheap, ethWei(3000, 3000), big.NewInt(0), 10)

	got := c.Analyze(candidate)
	require.NotEmpty(t, got)
	for _, o := range got {
		require.Equal(t, opportunity.Arbitrage, o.Type)
		require.InDelta(t, 0.75, o.ConfidenceScore, 1e-9)
		require.Greater(t, o.EstimatedProfitUSD, 0.0)
		require.Len(t, o.ArbitragePath, 2)
	}
}

func TestScenario5RiskDenialEndToEnd(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.RiskLimits.MaxSingleTradeUSD = 100
	})

	allow, alert := c.ValidateTrade("PEPE", 10_000_000, 0.000012)
	require.False(t, allow)
	require.NotNil(t, alert)
}

type fakeRelay struct {
	name        string
	bundleFails int
	calls       int
}

func (f *fakeRelay) Name() string { return f.name }

func (f *fakeRelay) SubmitBundle(ctx context.Context, bundle []byte) (string, error) {
	f.calls++
	if f.calls <= f.bundleFails {
		return "", errors.New("relay unavailable")
	}
	return "bundle-" + f.name, nil
}

func (f *fakeRelay) SubmitPrivate(ctx context.Context, rawTx []byte) (string, error) {
	f.calls++
	if f.calls <= f.bundleFails {
		return "", errors.New("relay unavailable")
	}
	return "tx-" + f.name, nil
}

func (f *fakeRelay) Health() relay.Health {
	return relay.Health{Connected: f.calls > f.bundleFails}
}

func TestScenario6ProtectionFallbackEndToEnd(t *testing.T) {
	flashbots := &fakeRelay{name: "flashbots", bundleFails: 100}
	eden := &fakeRelay{name: "eden"}

	cfg := config.Default()
	cfg.Protection.MaxProtectionCostUSD = 50

	c, err := New(cfg, Deps{
		Relays: map[string]relay.Adapter{"flashbots": flashbots, "eden": eden},
		RelayOrder: map[protection.Strategy][]string{
			protection.FlashbotsProtect: {"flashbots"},
			protection.PrivateMempool:   {"eden"},
		},
	})
	require.NoError(t, err)

	t1 := tx.Transaction{Hash: common.HexToHash("0x1")}
	res := c.Protect(context.Background(), t1, opportunity.Sandwich, "Ethereum", protection.LevelStandard)

	require.True(t, res.Successful)
	require.Equal(t, protection.PrivateMempool, res.Strategy)
	require.LessOrEqual(t, res.ProtectionCostUSD, 50.0)
	require.GreaterOrEqual(t, flashbots.calls, 1)
}

func TestPositionLifecycleEndToEnd(t *testing.T) {
	c := newTestCore(t, nil)
	c.RecordPositionOpen("WETH", 10, 3000)
	c.UpdateMarketData("WETH", 3100)
	realized := c.ClosePosition("WETH", 3100)
	require.InDelta(t, 1000.0, realized, 1e-9)

	m := c.GetMetricsSnapshot()
	require.Equal(t, 0.0, m.TotalValue)
}

func TestEmergencyStopAndResume(t *testing.T) {
	c := newTestCore(t, nil)
	c.EmergencyStop("manual halt")
	allow, _ := c.ValidateTrade("WETH", 1, 3000)
	require.False(t, allow)

	c.ResumeTrading()
	allow, _ = c.ValidateTrade("WETH", 1, 3000)
	require.True(t, allow)
}

func TestPauseAndResumeSymbol(t *testing.T) {
	c := newTestCore(t, nil)
	c.PauseSymbol("WETH")
	allow, _ := c.ValidateTrade("WETH", 1, 3000)
	require.False(t, allow)

	c.ResumeSymbol("WETH")
	allow, _ = c.ValidateTrade("WETH", 1, 3000)
	require.True(t, allow)
}

func TestStartStopLifecycle(t *testing.T) {
	c := newTestCore(t, func(cfg *config.Config) {
		cfg.Concurrency.MonitoringFrequency = 10 * time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, c.Start(ctx))
	require.ErrorIs(t, c.Start(ctx), ErrAlreadyRunning)

	time.Sleep(30 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	require.NoError(t, c.Stop(stopCtx))
	require.ErrorIs(t, c.Stop(stopCtx), ErrNotRunning)
}
