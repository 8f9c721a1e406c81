package detection

import (
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// SandwichDetector implements §4.4.1.
type SandwichDetector struct{}

func (SandwichDetector) Name() opportunity.Type { return opportunity.Sandwich }

func (SandwichDetector) Detect(victim tx.Transaction, stores Stores, cfg Config, nowNs uint64, newID func() string) []opportunity.Opportunity {
	tokenInV, tokenOutV, poolV, _, _, slippageV, ok := victim.SwapIntent()
	if !ok {
		return nil
	}
	_ = tokenInV

	var confidence float64
	var suspicious []tx.Transaction

	for _, candidate := range stores.Mempool.Transactions() {
		if candidate.Hash == victim.Hash {
			continue
		}
		tokenIn, _, pool, _, _, _, cok := candidate.SwapIntent()
		if !cok || pool != poolV {
			continue
		}
		if candidate.GasPriceWei == nil || victim.GasPriceWei == nil {
			continue
		}
		if candidate.GasPriceWei.Cmp(victim.GasPriceWei) <= 0 {
			continue
		}
		if tokenIn != tokenOutV {
			continue
		}
		confidence += 0.3
		suspicious = append(suspicious, candidate)
	}

	amountInUSDv := amountInUSD(victim, stores.Pools)
	if amountInUSDv >= 100_000 && slippageV < 50 {
		confidence += 0.4
	}

	confidence = clamp01(confidence)
	if confidence <= 0 || confidence < cfg.MinConfidence {
		return nil
	}

	estimatedLoss := amountInUSDv * 0.002
	if estimatedLoss < cfg.MinProfitUSD {
		return nil
	}

	o := opportunity.Opportunity{
		ID:                 newID(),
		Type:               opportunity.Sandwich,
		ConfidenceScore:    confidence,
		ConfidenceTier:     opportunity.TierOf(confidence),
		EstimatedProfitUSD: estimatedLoss,
		RequiredGas:        300_000, // frontrun leg + backrun leg
		OptimalGasPriceWei: gasPriceGwei(victim.GasPriceWei, 1.2),
		DetectedAt:         nowNs,
		ExpiresAt:          nowNs + uint64(cfg.SandwichWindowBlocks+1)*12_000_000_000,
		SandwichDetails: &opportunity.SandwichDetails{
			VictimTx:         victim.Hash,
			EstimatedLossUSD: estimatedLoss,
		},
	}
	o.InvolvedTxHashes = append(o.InvolvedTxHashes, victim.Hash)
	for _, s := range suspicious {
		o.InvolvedTxHashes = append(o.InvolvedTxHashes, s.Hash)
	}
	return []opportunity.Opportunity{o}
}
