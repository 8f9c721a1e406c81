package detection

import (
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// Kernel composes the enabled detectors (C6), runs each over a
// candidate transaction, dedupes by id, filters by the confidence and
// profit thresholds, and publishes survivors to the Opportunity
// Registry (C7).
type Kernel struct {
	detectors []Detector
	stores    Stores
	cfg       Config
	registry  *opportunity.Registry
	clock     func() uint64
	newID     func() string
}

// NewKernel returns a Kernel running every detector in detectors, in
// the given order, publishing survivors to registry.
func NewKernel(detectors []Detector, stores Stores, cfg Config, registry *opportunity.Registry, clock func() uint64, newID func() string) *Kernel {
	return &Kernel{
		detectors: detectors,
		stores:    stores,
		cfg:       cfg,
		registry:  registry,
		clock:     clock,
		newID:     newID,
	}
}

// DefaultDetectors returns the standard detector set in spec order.
func DefaultDetectors(patterns []LearnedPattern) []Detector {
	return []Detector{
		SandwichDetector{},
		FrontrunDetector{},
		ArbitrageDetector{},
		LiquidationDetector{},
		JitLiquidityDetector{},
		PatternDetector{Patterns: patterns},
	}
}

// Analyze runs every detector over candidate against stores, applies
// the confidence/profit thresholds, publishes the survivors, and
// returns them. Analyze is deterministic: the same (candidate,
// stores, cfg) always yields the same opportunity set, since every
// detector is a pure function and ids are assigned by the injected
// newID generator in detector-then-emission order.
func (k *Kernel) Analyze(candidate tx.Transaction) []opportunity.Opportunity {
	now := k.clock()
	var survivors []opportunity.Opportunity

	competingBots := k.stores.Mempool.Len()
	var tokenVolatility float64
	if tokenIn, _, _, _, _, _, ok := candidate.SwapIntent(); ok {
		tokenVolatility = k.stores.Returns.For(tokenIn.Hex()).Volatility(0)
	}

	seen := make(map[string]bool)
	for _, d := range k.detectors {
		for _, o := range d.Detect(candidate, k.stores, k.cfg, now, k.newID) {
			if seen[o.ID] {
				continue
			}
			if o.ConfidenceScore < k.cfg.MinConfidence {
				continue
			}
			if o.EstimatedProfitUSD < k.cfg.MinProfitUSD {
				continue
			}
			o.Risk = ScoreRisk(o, competingBots, tokenVolatility)
			if !Profitable(o, k.cfg.EthPriceUSD, k.cfg.ProtectionThreatThresholdUSD) {
				continue
			}
			seen[o.ID] = true
			survivors = append(survivors, o)
			k.registry.Publish(o)
		}
	}
	return survivors
}
