package protection

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/relay"
	"github.com/hydraflowx/mevcore/internal/tx"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a deterministic stand-in for relay.Adapter used to
// drive the router through specific failure/success sequences without
// a real network call.
type fakeAdapter struct {
	name        string
	bundleFails int // number of leading SubmitBundle calls that fail
	calls       int
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) SubmitBundle(ctx context.Context, bundle []byte) (string, error) {
	f.calls++
	if f.calls <= f.bundleFails {
		return "", errors.New("relay unavailable")
	}
	return "bundle-" + f.name, nil
}

func (f *fakeAdapter) SubmitPrivate(ctx context.Context, rawTx []byte) (string, error) {
	f.calls++
	if f.calls <= f.bundleFails {
		return "", errors.New("relay unavailable")
	}
	return "tx-" + f.name, nil
}

func (f *fakeAdapter) Health() relay.Health {
	return relay.Health{Connected: f.calls > f.bundleFails}
}

func TestSelectStrategyTable(t *testing.T) {
	require.Equal(t, FlashbotsProtect, SelectStrategy(opportunity.Sandwich, "Ethereum", LevelStandard, nil))
	require.Equal(t, JitoBundle, SelectStrategy(opportunity.Sandwich, "Solana", LevelStandard, nil))
	require.Equal(t, PrivateMempool, SelectStrategy(opportunity.Frontrun, "Ethereum", LevelStandard, nil))
	require.Equal(t, TimingRandomization, SelectStrategy(opportunity.Arbitrage, "Ethereum", LevelStandard, nil))
	require.Equal(t, BundleSubmission, SelectStrategy(opportunity.Sandwich, "Ethereum", LevelMaximum, nil))

	pref := []Strategy{PrivateMempool, BundleSubmission}
	require.Equal(t, PrivateMempool, SelectStrategy(opportunity.Unknown, "Ethereum", LevelStandard, pref))
	require.Equal(t, BundleSubmission, SelectStrategy(opportunity.Unknown, "Ethereum", LevelStandard, nil))
}

// TestScenario6ProtectionFallback is the literal spec scenario: an
// Ethereum sandwich threat with the Flashbots relay failing (twice, or
// more) and a healthy Eden private relay. The router must attempt
// FlashbotsProtect, then fall back to PrivateMempool via Eden.
func TestScenario6ProtectionFallback(t *testing.T) {
	flashbots := &fakeAdapter{name: "flashbots", bundleFails: 100} // always fails
	eden := &fakeAdapter{name: "eden", bundleFails: 0}             // always succeeds

	relays := map[string]relay.Adapter{
		"flashbots": flashbots,
		"eden":      eden,
	}
	order := map[Strategy][]string{
		FlashbotsProtect: {"flashbots"},
		PrivateMempool:   {"eden"},
	}

	router := New(Config{
		PreferredStrategies:  []Strategy{PrivateMempool, BundleSubmission},
		MaxProtectionCostUSD: 50,
	}, relays, order)

	victim := tx.Transaction{Hash: common.HexToHash("0xvictim")}
	res := router.Protect(context.Background(), victim, opportunity.Sandwich, "Ethereum", LevelStandard)

	require.True(t, res.Successful)
	require.Equal(t, PrivateMempool, res.Strategy)
	require.Equal(t, "tx-eden", res.TxHash)
	require.LessOrEqual(t, res.ProtectionCostUSD, 50.0)
	require.GreaterOrEqual(t, flashbots.calls, 1)
}

func TestProtectRespectsCostCeiling(t *testing.T) {
	relays := map[string]relay.Adapter{}
	order := map[Strategy][]string{}
	router := New(Config{MaxProtectionCostUSD: 0}, relays, order)

	victim := tx.Transaction{Hash: common.HexToHash("0x1")}
	res := router.Protect(context.Background(), victim, opportunity.Arbitrage, "Ethereum", LevelStandard)
	require.False(t, res.Successful)
}
