package detection

import (
	"bytes"

	"github.com/Masterminds/semver/v3"
	"github.com/ethereum/go-ethereum/common"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// DetectorVersion is this build's pattern-matching capability version.
// Learned pattern sets declare a MinDetectorVersion constraint; a set
// the running detector doesn't satisfy is skipped rather than applied
// partially.
const DetectorVersion = "1.2.0"

// LearnedPattern is one byte-pattern signal from an external model,
// gated by the semver constraint it was trained against.
type LearnedPattern struct {
	Bytes              []byte
	MinDetectorVersion string
}

// PatternDetector implements §4.4.6. It is a pure function of its
// inputs: the same (candidate, patterns) always yields the same
// confidence, which is what makes it a safe hook for a future learned
// model to slot behind.
type PatternDetector struct {
	Patterns []LearnedPattern
}

func (PatternDetector) Name() opportunity.Type { return opportunity.Unknown }

func (d PatternDetector) Detect(candidate tx.Transaction, stores Stores, cfg Config, nowNs uint64, newID func() string) []opportunity.Opportunity {
	runningVersion, err := semver.NewVersion(DetectorVersion)
	if err != nil {
		return nil
	}

	var confidence float64
	var matched [][]byte
	for _, p := range d.Patterns {
		if len(p.Bytes) == 0 {
			continue
		}
		if p.MinDetectorVersion != "" {
			constraint, err := semver.NewConstraint(">= " + p.MinDetectorVersion)
			if err != nil || !constraint.Check(runningVersion) {
				continue
			}
		}
		if bytes.Contains(candidate.Data, p.Bytes) {
			confidence += 0.2
			matched = append(matched, p.Bytes)
		}
	}

	confidence = clamp01(confidence)
	if confidence <= 0 || confidence < cfg.MinConfidence {
		return nil
	}

	profit := candidate.ValueUSD(cfg.EthPriceUSD) * 0.005
	if profit < cfg.MinProfitUSD {
		return nil
	}

	o := opportunity.Opportunity{
		ID:                 newID(),
		Type:               opportunity.Unknown,
		ConfidenceScore:    confidence,
		ConfidenceTier:     opportunity.TierOf(confidence),
		EstimatedProfitUSD: profit,
		RequiredGas:        200_000,
		OptimalGasPriceWei: gasPriceGwei(candidate.GasPriceWei, 1.0),
		DetectedAt:         nowNs,
		ExpiresAt:          nowNs + 12_000_000_000,
		InvolvedTxHashes:   []common.Hash{candidate.Hash},
	}
	return []opportunity.Opportunity{o}
}
