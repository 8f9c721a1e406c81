package detection

import (
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// liquidityEventSelectors are the selectors this core recognizes as
// addLiquidity/removeLiquidity calls on an AMM pool.
var liquidityEventSelectors = map[[4]byte]bool{
	{0xe8, 0xe3, 0x37, 0x00}: true, // addLiquidity(...)
	{0xba, 0xef, 0x75, 0x2b}: true, // removeLiquidity(...)
	{0x02, 0x75, 0x1c, 0xec}: true, // addLiquidityETH(...)
}

// JitLiquidityDetector implements §4.4.5.
type JitLiquidityDetector struct{}

func (JitLiquidityDetector) Name() opportunity.Type { return opportunity.JitLiquidity }

func (JitLiquidityDetector) Detect(candidate tx.Transaction, stores Stores, cfg Config, nowNs uint64, newID func() string) []opportunity.Opportunity {
	_, _, pool, _, _, _, ok := candidate.SwapIntent()
	if !ok {
		return nil
	}
	if amountInUSD(candidate, stores.Pools) < 50_000 {
		return nil
	}

	var confidence float64
	var matches []tx.Transaction
	for _, other := range stores.Mempool.Transactions() {
		if other.Hash == candidate.Hash {
			continue
		}
		if other.To != pool {
			continue
		}
		if !liquidityEventSelectors[other.FunctionSelector()] {
			continue
		}
		confidence += 0.5
		matches = append(matches, other)
	}

	confidence = clamp01(confidence)
	if confidence <= 0 || confidence < cfg.MinConfidence {
		return nil
	}

	profit := amountInUSD(candidate, stores.Pools) * 0.003
	if profit < cfg.MinProfitUSD {
		return nil
	}

	o := opportunity.Opportunity{
		ID:                 newID(),
		Type:               opportunity.JitLiquidity,
		ConfidenceScore:     confidence,
		ConfidenceTier:      opportunity.TierOf(confidence),
		EstimatedProfitUSD:  profit,
		RequiredGas:         250_000, // add liquidity, swap, remove liquidity
		OptimalGasPriceWei:  gasPriceGwei(candidate.GasPriceWei, 1.2),
		DetectedAt:          nowNs,
		ExpiresAt:           nowNs + 12_000_000_000,
	}
	o.InvolvedTxHashes = append(o.InvolvedTxHashes, candidate.Hash)
	for _, m := range matches {
		o.InvolvedTxHashes = append(o.InvolvedTxHashes, m.Hash)
	}
	return []opportunity.Opportunity{o}
}
