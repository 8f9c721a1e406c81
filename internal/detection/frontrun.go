package detection

import (
	"math/big"

	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// FrontrunDetector implements §4.4.2.
type FrontrunDetector struct{}

func (FrontrunDetector) Name() opportunity.Type { return opportunity.Frontrun }

func (FrontrunDetector) Detect(victim tx.Transaction, stores Stores, cfg Config, nowNs uint64, newID func() string) []opportunity.Opportunity {
	if victim.GasPriceWei == nil {
		return nil
	}
	victimSelector := victim.FunctionSelector()
	threshold := new(big.Float).Mul(new(big.Float).SetInt(victim.GasPriceWei), big.NewFloat(1.1))

	var confidence float64
	var suspicious []tx.Transaction

	for _, candidate := range stores.Mempool.Transactions() {
		if candidate.Hash == victim.Hash {
			continue
		}
		if candidate.To != victim.To {
			continue
		}
		if candidate.FunctionSelector() != victimSelector {
			continue
		}
		if candidate.GasPriceWei == nil {
			continue
		}
		gasF := new(big.Float).SetInt(candidate.GasPriceWei)
		if gasF.Cmp(threshold) < 0 {
			continue
		}
		confidence += 0.4
		suspicious = append(suspicious, candidate)
	}

	if confidence <= 0 {
		return nil
	}

	valueUSD := victim.ValueUSD(cfg.EthPriceUSD)
	if valueUSD >= 50_000 {
		confidence += 0.2
	}
	confidence = clamp01(confidence)

	if confidence < cfg.MinConfidence {
		return nil
	}

	profit := valueUSD * 0.01
	if profit < cfg.MinProfitUSD {
		return nil
	}

	o := opportunity.Opportunity{
		ID:                 newID(),
		Type:               opportunity.Frontrun,
		ConfidenceScore:    confidence,
		ConfidenceTier:     opportunity.TierOf(confidence),
		EstimatedProfitUSD: profit,
		RequiredGas:        150_000,
		OptimalGasPriceWei: gasPriceGwei(victim.GasPriceWei, 1.1),
		DetectedAt:         nowNs,
		ExpiresAt:          nowNs + 12_000_000_000,
	}
	o.InvolvedTxHashes = append(o.InvolvedTxHashes, victim.Hash)
	for _, s := range suspicious {
		o.InvolvedTxHashes = append(o.InvolvedTxHashes, s.Hash)
	}
	return []opportunity.Opportunity{o}
}
