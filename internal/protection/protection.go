// Package protection implements the Protection Router (C8): strategy
// selection over a threat type and chain, cost-bounded execution
// across the relay adapters in internal/relay (C9), with fallback to
// the next preferred strategy on relay failure or cost overrun.
package protection

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/relay"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// Level is the requested protection level.
type Level string

const (
	LevelNone     Level = "None"
	LevelBasic    Level = "Basic"
	LevelStandard Level = "Standard"
	LevelHigh     Level = "High"
	LevelMaximum  Level = "Maximum"
)

// Strategy is one of the protection mechanisms §4.8 names.
type Strategy string

const (
	BundleSubmission     Strategy = "BundleSubmission"
	PrivateMempool       Strategy = "PrivateMempool"
	TimingRandomization  Strategy = "TimingRandomization"
	FlashbotsProtect     Strategy = "FlashbotsProtect"
	JitoBundle           Strategy = "JitoBundle"
	StealthMode          Strategy = "StealthMode"
)

// Result is the outcome of one Protect call.
type Result struct {
	Strategy           Strategy
	Successful         bool
	BundleID           string
	TxHash             string
	ProtectionCostUSD  float64
	GasOverheadUSD     float64
	RelayFeeUSD        float64
	TimingDelayCostUSD float64
	Err                error
}

// Config tunes the router.
type Config struct {
	PreferredStrategies  []Strategy
	MaxProtectionCostUSD float64
	MaxTimingDelay       time.Duration
	StealthEnabled       bool
}

// Router selects and executes a protection strategy.
type Router struct {
	cfg    Config
	relays map[string]relay.Adapter
	// order lists the relay names tried, in order, for each strategy
	// that submits through a named relay.
	order map[Strategy][]string
	rng   *rand.Rand
	sleep func(time.Duration)
}

// New returns a Router. relays is keyed by relay name (e.g.
// "flashbots", "jito", "eden"); order gives, per strategy, the relay
// fallback sequence to try.
func New(cfg Config, relays map[string]relay.Adapter, order map[Strategy][]string) *Router {
	return &Router{
		cfg:    cfg,
		relays: relays,
		order:  order,
		rng:    rand.New(rand.NewSource(1)),
		sleep:  time.Sleep,
	}
}

// SelectStrategy implements §4.8's strategy selection table. level =
// Maximum forces BundleSubmission regardless of threat type.
func SelectStrategy(threatType opportunity.Type, chain string, level Level, preferred []Strategy) Strategy {
	if level == LevelMaximum {
		return BundleSubmission
	}
	switch threatType {
	case opportunity.Sandwich:
		if chain == "Solana" {
			return JitoBundle
		}
		return FlashbotsProtect
	case opportunity.Frontrun:
		return PrivateMempool
	case opportunity.Arbitrage:
		return TimingRandomization
	default:
		if len(preferred) > 0 {
			return preferred[0]
		}
		return BundleSubmission
	}
}

// Protect executes the selected strategy for t, falling back through
// cfg.PreferredStrategies if the chosen strategy's relays are
// exhausted or its estimated cost exceeds MaxProtectionCostUSD.
func (r *Router) Protect(ctx context.Context, t tx.Transaction, threatType opportunity.Type, chain string, level Level) Result {
	primary := SelectStrategy(threatType, chain, level, r.cfg.PreferredStrategies)
	tried := map[Strategy]bool{}

	candidates := append([]Strategy{primary}, r.cfg.PreferredStrategies...)
	if r.cfg.StealthEnabled {
		candidates = append([]Strategy{StealthMode}, candidates...)
	}

	var last Result
	for _, s := range candidates {
		if tried[s] {
			continue
		}
		tried[s] = true

		res := r.execute(ctx, t, s)
		if res.ProtectionCostUSD > r.cfg.MaxProtectionCostUSD {
			res.Successful = false
			res.Err = fmt.Errorf("strategy %s: estimated cost %.2f exceeds ceiling %.2f", s, res.ProtectionCostUSD, r.cfg.MaxProtectionCostUSD)
			last = res
			continue
		}
		if res.Successful {
			return res
		}
		last = res
	}
	return last
}

func (r *Router) execute(ctx context.Context, t tx.Transaction, s Strategy) Result {
	switch s {
	case BundleSubmission:
		return r.submitBundle(ctx, t, false)
	case StealthMode:
		res := r.submitBundle(ctx, t, true)
		delay := r.randomDelay()
		r.sleep(delay)
		res.TimingDelayCostUSD += delayCostUSD(delay)
		res.ProtectionCostUSD += delayCostUSD(delay)
		return res
	case PrivateMempool:
		return r.submitPrivate(ctx, t)
	case FlashbotsProtect:
		return r.submitViaRelaySequence(ctx, t, "flashbots")
	case JitoBundle:
		return r.submitViaRelaySequence(ctx, t, "jito")
	case TimingRandomization:
		delay := r.randomDelay()
		r.sleep(delay)
		return Result{
			Strategy:           s,
			Successful:         true,
			TimingDelayCostUSD: delayCostUSD(delay),
			ProtectionCostUSD:  delayCostUSD(delay),
		}
	default:
		return Result{Strategy: s, Successful: false, Err: fmt.Errorf("unknown strategy %s", s)}
	}
}

// submitViaRelaySequence tries the configured relay order for a named
// strategy, falling through to the next relay in r.order[kind]'s
// sequence when the current one fails (spec.md's "excluded after >= N
// consecutive failures ... reconsidered after backoff" manifests here
// as the breaker simply refusing the call, which SubmitBundle surfaces
// as an error).
func (r *Router) submitViaRelaySequence(ctx context.Context, t tx.Transaction, primaryRelay string) Result {
	names := r.order[relayStrategyFor(primaryRelay)]
	if len(names) == 0 {
		names = []string{primaryRelay}
	}
	var lastErr error
	for _, name := range names {
		a, ok := r.relays[name]
		if !ok {
			continue
		}
		id, err := a.SubmitBundle(ctx, bundlePayload(t, false))
		if err == nil {
			return Result{
				Strategy:          relayStrategyFor(primaryRelay),
				Successful:        true,
				BundleID:          id,
				ProtectionCostUSD: bundleCostUSD(),
				GasOverheadUSD:    bundleCostUSD() * 0.6,
				RelayFeeUSD:       bundleCostUSD() * 0.4,
			}
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no relay configured for %s", primaryRelay)
	}

	// Fall through to PrivateMempool via the first reachable private
	// relay, mirroring scenario 6's Flashbots-fails-then-Eden-succeeds
	// fallback.
	fallback := r.submitPrivate(ctx, t)
	if fallback.Successful {
		return fallback
	}
	return Result{Strategy: relayStrategyFor(primaryRelay), Successful: false, Err: lastErr}
}

func relayStrategyFor(name string) Strategy {
	switch name {
	case "jito":
		return JitoBundle
	default:
		return FlashbotsProtect
	}
}

func (r *Router) submitBundle(ctx context.Context, t tx.Transaction, withDecoy bool) Result {
	names := r.order[BundleSubmission]
	var lastErr error
	for _, name := range names {
		a, ok := r.relays[name]
		if !ok {
			continue
		}
		id, err := a.SubmitBundle(ctx, bundlePayload(t, withDecoy))
		if err == nil {
			return Result{
				Strategy:          BundleSubmission,
				Successful:        true,
				BundleID:          id,
				ProtectionCostUSD: bundleCostUSD(),
				GasOverheadUSD:    bundleCostUSD() * 0.6,
				RelayFeeUSD:       bundleCostUSD() * 0.4,
			}
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no relay configured for bundle submission")
	}
	return Result{Strategy: BundleSubmission, Successful: false, Err: lastErr}
}

func (r *Router) submitPrivate(ctx context.Context, t tx.Transaction) Result {
	names := r.order[PrivateMempool]
	var lastErr error
	for _, name := range names {
		a, ok := r.relays[name]
		if !ok {
			continue
		}
		txHash, err := a.SubmitPrivate(ctx, rawTxPayload(t))
		if err == nil {
			return Result{
				Strategy:          PrivateMempool,
				Successful:        true,
				TxHash:            txHash,
				ProtectionCostUSD: privateCostUSD(),
				RelayFeeUSD:       privateCostUSD(),
			}
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no relay configured for private submission")
	}
	return Result{Strategy: PrivateMempool, Successful: false, Err: lastErr}
}

func (r *Router) randomDelay() time.Duration {
	ceiling := r.cfg.MaxTimingDelay
	if ceiling <= 100*time.Millisecond {
		return 100 * time.Millisecond
	}
	span := int64(ceiling - 100*time.Millisecond)
	return 100*time.Millisecond + time.Duration(r.rng.Int63n(span))
}

func delayCostUSD(d time.Duration) float64 {
	return d.Seconds() * 5 // opportunity cost approximation per second delayed
}

func bundleCostUSD() float64  { return 8 }
func privateCostUSD() float64 { return 2 }

func bundlePayload(t tx.Transaction, withDecoy bool) []byte {
	payload := append([]byte{}, t.Hash.Bytes()...)
	if withDecoy {
		payload = append(payload, 0xde, 0xc0, 0x1d)
	}
	return payload
}

func rawTxPayload(t tx.Transaction) []byte {
	return append([]byte{}, t.Hash.Bytes()...)
}
