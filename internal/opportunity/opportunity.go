// Package opportunity implements the Opportunity data model and the
// Opportunity Registry (C7): active opportunities with expiry, dedup by
// id, and confidence tiers.
package opportunity

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Type enumerates the opportunity kinds the detection kernel produces.
type Type string

const (
	Arbitrage   Type = "Arbitrage"
	Sandwich    Type = "Sandwich"
	Frontrun    Type = "Frontrun"
	Backrun     Type = "Backrun"
	Liquidation Type = "Liquidation"
	JitLiquidity Type = "JitLiquidity"
	Unknown     Type = "Unknown"
)

// ConfidenceTier is a monotonic function of ConfidenceScore.
type ConfidenceTier int

const (
	VeryLow ConfidenceTier = iota
	Low
	Medium
	High
	VeryHigh
	Certain
)

// TierOf maps a confidence score in [0,1] to its tier. The boundaries
// are fixed and monotonic: a higher score never maps to a lower tier.
func TierOf(score float64) ConfidenceTier {
	switch {
	case score >= 0.95:
		return Certain
	case score >= 0.85:
		return VeryHigh
	case score >= 0.7:
		return High
	case score >= 0.5:
		return Medium
	case score >= 0.25:
		return Low
	default:
		return VeryLow
	}
}

// SandwichDetails is populated by the sandwich detector. frontrun_tx and
// backrun_tx are left as the zero hash unless a caller explicitly
// populates them — the source this core is modeled on never fills
// them in, and the spec leaves that optional.
type SandwichDetails struct {
	FrontrunTx      common.Hash
	BackrunTx       common.Hash
	VictimTx        common.Hash
	EstimatedLossUSD float64
}

// ArbitrageHop is one leg of a multi-hop arbitrage path.
type ArbitrageHop struct {
	PoolAddress common.Address
	TokenIn     common.Address
	TokenOut    common.Address
}

// RiskBreakdown is the decomposed risk score of an Opportunity (§4.4.7).
type RiskBreakdown struct {
	Execution   float64
	Market      float64
	Competition float64
	Overall     float64
}

// Opportunity is the (O) data model from the specification.
type Opportunity struct {
	ID                     string
	Type                   Type
	ConfidenceTier         ConfidenceTier
	ConfidenceScore        float64
	EstimatedProfitUSD     float64
	RequiredGas            uint64
	OptimalGasPriceWei     float64
	ExecutionDeadlineBlocks int
	DetectedAt             uint64
	ExpiresAt              uint64
	InvolvedTxHashes       []common.Hash
	VictimTx               *common.Hash
	SandwichDetails        *SandwichDetails
	ArbitragePath          []ArbitrageHop
	Risk                   RiskBreakdown
}

// ThreatCallback is invoked synchronously, in registration order, on
// every successful Publish. Implementations must not re-enter the
// registry and must not block.
type ThreatCallback func(Opportunity)

// Registry is the process-wide Opportunity Registry singleton.
type Registry struct {
	mu        sync.RWMutex
	byID      map[string]Opportunity
	maxSize   int

	cbMu      sync.Mutex
	callbacks []ThreatCallback
}

// NewRegistry returns an empty Registry bounded at maxSize entries (0 =
// unbounded).
func NewRegistry(maxSize int) *Registry {
	return &Registry{
		byID:    make(map[string]Opportunity),
		maxSize: maxSize,
	}
}

// Subscribe registers a threat callback, invoked on every Publish.
func (r *Registry) Subscribe(cb ThreatCallback) {
	r.cbMu.Lock()
	defer r.cbMu.Unlock()
	r.callbacks = append(r.callbacks, cb)
}

// Publish inserts o if not already present; on conflict by id, retains
// whichever has the higher ConfidenceScore. Returns true exactly when o
// was stored (the registry was mutated); subscribers are notified only
// then.
func (r *Registry) Publish(o Opportunity) bool {
	r.mu.Lock()
	inserted := false
	if existing, ok := r.byID[o.ID]; !ok {
		r.evictIfFull()
		r.byID[o.ID] = o
		inserted = true
	} else if o.ConfidenceScore > existing.ConfidenceScore {
		r.byID[o.ID] = o
		inserted = true
	}
	r.mu.Unlock()

	if inserted {
		r.notify(o)
	}
	return inserted
}

// evictIfFull must be called with mu held for writing. Eviction order:
// soonest expiry first, then lowest confidence.
func (r *Registry) evictIfFull() {
	if r.maxSize <= 0 || len(r.byID) < r.maxSize {
		return
	}
	var victim string
	var victimExp uint64
	var victimConf float64
	first := true
	for id, o := range r.byID {
		if first || o.ExpiresAt < victimExp || (o.ExpiresAt == victimExp && o.ConfidenceScore < victimConf) {
			victim = id
			victimExp = o.ExpiresAt
			victimConf = o.ConfidenceScore
			first = false
		}
	}
	if victim != "" {
		delete(r.byID, victim)
	}
}

func (r *Registry) notify(o Opportunity) {
	r.cbMu.Lock()
	cbs := make([]ThreatCallback, len(r.callbacks))
	copy(cbs, r.callbacks)
	r.cbMu.Unlock()

	for _, cb := range cbs {
		cb(o)
	}
}

// SweepExpired removes every opportunity with ExpiresAt < nowNs.
func (r *Registry) SweepExpired(nowNs uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, o := range r.byID {
		if o.ExpiresAt < nowNs {
			delete(r.byID, id)
			removed++
		}
	}
	return removed
}

// ByType returns copies of every opportunity of the given type.
func (r *Registry) ByType(t Type) []Opportunity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Opportunity
	for _, o := range r.byID {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

// ByMinConfidence returns copies of every opportunity at or above the
// given tier.
func (r *Registry) ByMinConfidence(tier ConfidenceTier) []Opportunity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Opportunity
	for _, o := range r.byID {
		if o.ConfidenceTier >= tier {
			out = append(out, o)
		}
	}
	return out
}

// Recent returns copies of every opportunity detected at or after
// sinceNs, most recently detected first.
func (r *Registry) Recent(sinceNs uint64) []Opportunity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Opportunity
	for _, o := range r.byID {
		if o.DetectedAt >= sinceNs {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt > out[j].DetectedAt })
	return out
}

// Len returns the current registry size.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
