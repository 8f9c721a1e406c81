package detection

import (
	"testing"

	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/stretchr/testify/require"
)

func TestScoreRiskFormula(t *testing.T) {
	o := opportunity.Opportunity{RequiredGas: 300_000}
	risk := ScoreRisk(o, 20, 0.4)

	require.InDelta(t, (300_000.0/1e6+20.0/100)/2, risk.Execution, 1e-9)
	require.InDelta(t, 0.4, risk.Market, 1e-9)
	require.InDelta(t, 20.0/50, risk.Competition, 1e-9)
	require.InDelta(t, 0.5*risk.Execution+0.3*risk.Market+0.2*risk.Competition, risk.Overall, 1e-9)
}

func TestScoreRiskClampsExtremeCompetition(t *testing.T) {
	o := opportunity.Opportunity{RequiredGas: 5_000_000}
	risk := ScoreRisk(o, 500, 2.0)
	require.LessOrEqual(t, risk.Execution, 1.0)
	require.LessOrEqual(t, risk.Market, 1.0)
	require.Equal(t, 1.0, risk.Competition)
}

func TestProfitabilityTest(t *testing.T) {
	o := opportunity.Opportunity{
		EstimatedProfitUSD: 100,
		RequiredGas:        21_000,
		OptimalGasPriceWei: 50,
	}
	require.True(t, Profitable(o, 3000, 1_000_000))

	o.RequiredGas = 50_000_000
	require.False(t, Profitable(o, 3000, 1_000_000))

	o.SandwichDetails = &opportunity.SandwichDetails{EstimatedLossUSD: 2_000_000}
	require.True(t, Profitable(o, 3000, 1_000_000))
}
