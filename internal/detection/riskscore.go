package detection

import (
	"github.com/hydraflowx/mevcore/internal/opportunity"
)

// ScoreRisk implements §4.4.7: the decomposed risk score of an
// Opportunity, given the competing-bot estimate the mempool snapshot's
// density implies.
func ScoreRisk(o opportunity.Opportunity, competingBots int, tokenVolatility float64) opportunity.RiskBreakdown {
	executionRisk := clamp01((float64(o.RequiredGas)/1e6 + float64(competingBots)/100) / 2)
	marketRisk := clamp01(tokenVolatility)
	competitionRisk := clamp01(float64(competingBots) / 50)

	overall := 0.5*executionRisk + 0.3*marketRisk + 0.2*competitionRisk

	return opportunity.RiskBreakdown{
		Execution:   executionRisk,
		Market:      marketRisk,
		Competition: competitionRisk,
		Overall:     overall,
	}
}

// NetProfit implements §4.4.8's profitability test.
func NetProfit(o opportunity.Opportunity, ethPriceUSD float64) float64 {
	gasCostUSD := float64(o.RequiredGas) * o.OptimalGasPriceWei * ethPriceUSD * 1e-9
	return o.EstimatedProfitUSD - gasCostUSD
}

// Profitable reports whether o clears the profitability test, or the
// threat it represents exceeds protectionThreatThreshold (the
// protection-use override of §4.4.8).
func Profitable(o opportunity.Opportunity, ethPriceUSD float64, protectionThreatThreshold float64) bool {
	if NetProfit(o, ethPriceUSD) > 0 {
		return true
	}
	if o.SandwichDetails != nil && o.SandwichDetails.EstimatedLossUSD >= protectionThreatThreshold {
		return true
	}
	return false
}
