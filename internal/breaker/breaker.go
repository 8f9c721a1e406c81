// Package breaker implements the Circuit Breaker Array (C11): a fixed
// set of typed, value-based breakers with mandatory hysteresis. Adapted
// from the Closed/Open/HalfOpen state machine in
// internal/risk/circuit_breaker.go in the reference corpus, renamed to
// the spec's Armed/Tripped/Cooling vocabulary and generalized from a
// single price/volatility breaker per symbol to nine independently
// typed, portfolio-level breakers.
//
// sony/gobreaker is deliberately not used here: it trips on consecutive
// request failures, not on a continuously monitored value crossing a
// threshold with hysteresis. It is used instead for relay health in
// internal/relay, which is exactly that kind of breaker.
package breaker

import (
	"fmt"
	"sync"
	"time"
)

// Type enumerates the nine breaker kinds installed by the array.
type Type string

const (
	PortfolioDrawdown Type = "portfolio_drawdown"
	DailyLoss         Type = "daily_loss"
	PositionSize      Type = "position_size"
	Volatility        Type = "volatility"
	Correlation       Type = "correlation"
	Liquidity         Type = "liquidity"
	Concentration     Type = "concentration"
	Leverage          Type = "leverage"
	MarginCall        Type = "margin_call"
)

// AllTypes is the fixed set of breakers the array installs.
var AllTypes = []Type{
	PortfolioDrawdown, DailyLoss, PositionSize, Volatility,
	Correlation, Liquidity, Concentration, Leverage, MarginCall,
}

// State is a breaker's current position in the Armed/Tripped/Cooling
// state machine.
type State int

const (
	Armed State = iota
	Tripped
	Cooling
)

func (s State) String() string {
	switch s {
	case Armed:
		return "armed"
	case Tripped:
		return "tripped"
	case Cooling:
		return "cooling"
	default:
		return "unknown"
	}
}

// Config is the installed configuration for one breaker. TriggerThreshold
// and ResetThreshold must satisfy ResetThreshold < TriggerThreshold
// strictly (the hysteresis invariant); NewArray rejects any
// configuration that violates it.
type Config struct {
	Type                Type
	Enabled             bool
	TriggerThreshold    float64
	ResetThreshold      float64
	TimeoutDuration     time.Duration
	AutoReset           bool
	MaxTriggersPerDay    int
	EmergencyLiquidation bool
}

// Callback is invoked synchronously on every Armed->Tripped and
// Cooling->Armed edge.
type Callback func(t Type, tripped bool)

// LiquidateAllFunc is invoked when a breaker configured with
// EmergencyLiquidation trips.
type LiquidateAllFunc func(reason string)

type breakerState struct {
	cfg           Config
	state         State
	triggeredToday int
	coolingSince  time.Time
	coolingDeadline time.Time
}

// Array is the process-wide Circuit Breaker Array singleton.
type Array struct {
	mu       sync.Mutex
	breakers map[Type]*breakerState

	cbMu      sync.Mutex
	callbacks []Callback

	liquidateAll LiquidateAllFunc
}

// NewArray installs the given configurations. It returns an error if
// any configuration violates the hysteresis invariant
// (ResetThreshold < TriggerThreshold).
func NewArray(configs []Config, liquidateAll LiquidateAllFunc) (*Array, error) {
	a := &Array{
		breakers:     make(map[Type]*breakerState),
		liquidateAll: liquidateAll,
	}
	for _, c := range configs {
		if c.ResetThreshold >= c.TriggerThreshold {
			return nil, fmt.Errorf("breaker %s: reset_threshold (%v) must be strictly less than trigger_threshold (%v)", c.Type, c.ResetThreshold, c.TriggerThreshold)
		}
		a.breakers[c.Type] = &breakerState{cfg: c, state: Armed}
	}
	return a, nil
}

// Subscribe registers a breaker-state callback.
func (a *Array) Subscribe(cb Callback) {
	a.cbMu.Lock()
	defer a.cbMu.Unlock()
	a.callbacks = append(a.callbacks, cb)
}

func (a *Array) notify(t Type, tripped bool) {
	a.cbMu.Lock()
	cbs := make([]Callback, len(a.callbacks))
	copy(cbs, a.callbacks)
	a.cbMu.Unlock()
	for _, cb := range cbs {
		cb(t, tripped)
	}
}

// Observe feeds a new value for the given breaker type at the given
// instant, running the state transition function.
func (a *Array) Observe(t Type, value float64, now time.Time) {
	a.mu.Lock()
	bs, ok := a.breakers[t]
	if !ok || !bs.cfg.Enabled {
		a.mu.Unlock()
		return
	}

	var tripNow, resetNow bool

	switch bs.state {
	case Armed:
		if value > bs.cfg.TriggerThreshold {
			bs.state = Tripped
			bs.triggeredToday++
			tripNow = true
		}
	case Tripped:
		if bs.triggeredToday > bs.cfg.MaxTriggersPerDay {
			// remains tripped regardless of value until the daily reset tick
			break
		}
		if value < bs.cfg.ResetThreshold {
			bs.state = Cooling
			bs.coolingSince = now
			bs.coolingDeadline = now.Add(bs.cfg.TimeoutDuration)
		}
	case Cooling:
		if value >= bs.cfg.ResetThreshold {
			// excursion restarts the cooling timer
			bs.coolingSince = now
			bs.coolingDeadline = now.Add(bs.cfg.TimeoutDuration)
			break
		}
		// A breaker with AutoReset false stays Cooling past its
		// deadline: it has cleared the value-based condition but
		// still needs an explicit ManualReset to rearm.
		if bs.cfg.AutoReset && !now.Before(bs.coolingDeadline) {
			bs.state = Armed
			resetNow = true
		}
	}

	emergencyReason := ""
	if tripNow && bs.cfg.EmergencyLiquidation {
		emergencyReason = fmt.Sprintf("breaker %s tripped at value %v", t, value)
	}
	a.mu.Unlock()

	if tripNow {
		a.notify(t, true)
		if emergencyReason != "" && a.liquidateAll != nil {
			a.liquidateAll(emergencyReason)
		}
	}
	if resetNow {
		a.notify(t, false)
	}
}

// DailyReset clears every breaker's triggered_today counter and, for
// breakers still Tripped solely because they hit the daily cap with a
// value already back under the reset threshold, allows the next
// Observe to proceed normally.
func (a *Array) DailyReset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, bs := range a.breakers {
		bs.triggeredToday = 0
	}
}

// State returns the current state of the given breaker type.
func (a *Array) State(t Type) (State, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	bs, ok := a.breakers[t]
	if !ok {
		return Armed, false
	}
	return bs.state, true
}

// AnyTripped reports whether at least one installed breaker is
// currently Tripped.
func (a *Array) AnyTripped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, bs := range a.breakers {
		if bs.state == Tripped {
			return true
		}
	}
	return false
}

// TrippedCount returns how many installed breakers are currently
// Tripped.
func (a *Array) TrippedCount() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	var n int64
	for _, bs := range a.breakers {
		if bs.state == Tripped {
			n++
		}
	}
	return n
}

// ManualReset forces a breaker back to Armed, bypassing the cooling
// timer. Used by an operator resuming trading explicitly.
func (a *Array) ManualReset(t Type) {
	a.mu.Lock()
	bs, ok := a.breakers[t]
	if ok {
		bs.state = Armed
		bs.triggeredToday = 0
	}
	a.mu.Unlock()
	if ok {
		a.notify(t, false)
	}
}
