// Package corectx wires every component (C1-C13) into the single
// CoreContext handle the specification requires: process-wide stores,
// workers, and tickers are never ambient globals, they are fields of
// this struct, constructed once in New; the background tasks run
// between Start and Stop.
package corectx

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hydraflowx/mevcore/internal/breaker"
	"github.com/hydraflowx/mevcore/internal/broadcast"
	"github.com/hydraflowx/mevcore/internal/chainclient"
	"github.com/hydraflowx/mevcore/internal/clock"
	"github.com/hydraflowx/mevcore/internal/config"
	"github.com/hydraflowx/mevcore/internal/detection"
	"github.com/hydraflowx/mevcore/internal/events"
	"github.com/hydraflowx/mevcore/internal/market"
	"github.com/hydraflowx/mevcore/internal/mempool"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/protection"
	"github.com/hydraflowx/mevcore/internal/relay"
	"github.com/hydraflowx/mevcore/internal/returns"
	"github.com/hydraflowx/mevcore/internal/ringmetrics"
	"github.com/hydraflowx/mevcore/internal/riskmgr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed     = errors.New("corectx: analysis pool is closed")
	ErrPoolOverloaded = errors.New("corectx: analysis pool is overloaded")
	ErrAlreadyRunning = errors.New("corectx: already running")
	ErrNotRunning     = errors.New("corectx: not running")
)

// Deps bundles the external collaborators (spec §6 "Consumed") a
// CoreContext needs; ChainNode and PriceOracle may be nil, in which
// case the corresponding poller/oracle lookup is skipped.
type Deps struct {
	Logger      *zap.Logger
	ChainNode   chainclient.ChainNode
	PriceOracle chainclient.PriceOracle
	Relays      map[string]relay.Adapter
	RelayOrder  map[protection.Strategy][]string
	Registerer  prometheus.Registerer
}

// CoreContext is the process-wide handle threading every component
// through every operation, per the "do NOT represent them as ambient
// globals" design note.
type CoreContext struct {
	logger *zap.Logger
	cfg    config.Config

	clk     *clock.Source
	metrics *ringmetrics.Ring
	pools   *market.Store
	hist    *returns.Store
	snap    *mempool.Snapshot
	kernel  *detection.Kernel
	reg     *opportunity.Registry
	router  *protection.Router
	risk    *riskmgr.Manager
	breakers *breaker.Array
	bus     *events.Bus
	telemetry *broadcast.Bus

	chainNode   chainclient.ChainNode
	priceOracle chainclient.PriceOracle

	workers *analysisPool
	scratch *scratchPool

	cron *cron.Cron

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New assembles every component from cfg and deps but does not start
// any background task; call Start for that.
func New(cfg config.Config, deps Deps) (*CoreContext, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clk := clock.New()
	metrics := ringmetrics.New(deps.Registerer)
	pools := market.New()
	hist := returns.New(0)
	snap := mempool.New(cfg.Detection.MempoolAnalysisDepth)
	reg := opportunity.NewRegistry(0)
	bus := events.New(logger)
	telemetry := broadcast.New(logger)

	breakerConfigs := defaultBreakerConfigs(cfg.RiskLimits)

	// breakers.liquidateAll must call the risk Manager that is
	// constructed below, which in turn needs breakers for its
	// AnyTripped check: break the cycle with a forwarding closure over
	// the not-yet-assigned risk variable rather than constructing the
	// Manager twice.
	var risk *riskmgr.Manager
	breakers, err := breaker.NewArray(breakerConfigs, func(reason string) { risk.LiquidateAll(reason) })
	if err != nil {
		return nil, err
	}
	risk = riskmgr.New(logger, translateLimits(cfg.RiskLimits, cfg.Concurrency.MonitoringFrequency), breakers, bus, clk)
	breakers.Subscribe(func(t breaker.Type, tripped bool) {
		if tripped {
			metrics.IncCircuitBreakerTrips()
		}
		metrics.SetCircuitBreakerTrips(breakers.TrippedCount())
	})

	dcfg := detection.Config{
		MinProfitUSD:                 cfg.Detection.MinProfitUSD,
		MinConfidence:                cfg.Detection.MinConfidence,
		MaxGasCostRatio:              cfg.Detection.MaxGasCostRatio,
		SandwichWindowBlocks:         cfg.Detection.SandwichWindowBlocks,
		ArbitrageWindowBlocks:        cfg.Detection.ArbitrageWindowBlocks,
		EthPriceUSD:                  3000,
		ProtectionThreatThresholdUSD: cfg.Detection.ProtectionThreatThresholdUSD,
	}
	stores := detection.Stores{Pools: pools, Returns: hist, Mempool: snap}
	kernel := detection.NewKernel(detection.DefaultDetectors(nil), stores, dcfg, reg, clk.NowNanos, clk.NewOpportunityID)

	router := protection.New(protection.Config{
		PreferredStrategies:  translateStrategies(cfg.Protection.PreferredStrategies),
		MaxProtectionCostUSD: cfg.Protection.MaxProtectionCostUSD,
		MaxTimingDelay:       cfg.Stealth.MaxTimingDelay,
		StealthEnabled:       cfg.Stealth.StealthEnabled,
	}, deps.Relays, deps.RelayOrder)

	workers, err := newAnalysisPool(cfg.Concurrency.WorkerThreadCount, logger)
	if err != nil {
		return nil, err
	}

	reg.Subscribe(func(o opportunity.Opportunity) {
		metrics.IncThreatsDetected()
		bus.PublishThreat(events.ThreatEvent{
			OpportunityID:      o.ID,
			Type:               string(o.Type),
			ConfidenceScore:    o.ConfidenceScore,
			EstimatedProfitUSD: o.EstimatedProfitUSD,
			DetectedAt:         clk.Now(),
		})
		telemetry.PublishAlert(o)
	})

	return &CoreContext{
		logger:      logger,
		cfg:         cfg,
		clk:         clk,
		metrics:     metrics,
		pools:       pools,
		hist:        hist,
		snap:        snap,
		kernel:      kernel,
		reg:         reg,
		router:      router,
		risk:        risk,
		breakers:    breakers,
		bus:         bus,
		telemetry:   telemetry,
		chainNode:   deps.ChainNode,
		priceOracle: deps.PriceOracle,
		workers:     workers,
		scratch:     newScratchPool(cfg.Concurrency.WorkerThreadCount),
		cron:        cron.New(),
		stopCh:      make(chan struct{}),
	}, nil
}

func translateLimits(rl config.RiskLimits, monitoringFrequency time.Duration) riskmgr.Limits {
	blacklist := make(map[string]bool, len(rl.BlacklistedSymbols))
	for _, s := range rl.BlacklistedSymbols {
		blacklist[s] = true
	}
	return riskmgr.Limits{
		MaxPortfolioValue:   rl.MaxPortfolioValue,
		MaxDailyLoss:        rl.MaxDailyLoss,
		MaxDrawdownPct:      rl.MaxDrawdownPct,
		MaxPositionSizeUSD:  rl.MaxPositionSizeUSD,
		MaxPositionSizePct:  rl.MaxPositionSizePct,
		MaxPortfolioVaR:     rl.MaxPortfolioVaR,
		MaxLeverageRatio:    rl.MaxLeverageRatio,
		MaxConcentrationPct: rl.MaxConcentrationPct,
		MaxSingleTradeUSD:   rl.MaxSingleTradeUSD,
		BlacklistedSymbols:  blacklist,
		MonitoringFrequency: monitoringFrequency,
	}
}

func translateStrategies(names []string) []protection.Strategy {
	out := make([]protection.Strategy, 0, len(names))
	for _, n := range names {
		out = append(out, protection.Strategy(n))
	}
	return out
}

// defaultBreakerConfigs installs the nine breaker types at thresholds
// derived from the risk limit surface. portfolio_drawdown, daily_loss,
// and margin_call carry EmergencyLiquidation-adjacent severity (the
// first two trip EmergencyLiquidation directly; margin_call watches
// the same drawdown signal at a far higher bar) and are left
// AutoReset false: once the portfolio has been liquidated or has come
// that close, resuming needs an operator's explicit ManualReset, not a
// timer. The other six auto-rearm once their value clears the reset
// threshold for a full cooldown window.
func defaultBreakerConfigs(rl config.RiskLimits) []breaker.Config {
	return []breaker.Config{
		{Type: breaker.PortfolioDrawdown, Enabled: true, TriggerThreshold: rl.MaxDrawdownPct, ResetThreshold: rl.MaxDrawdownPct * 0.5, TimeoutDuration: 5 * time.Minute, MaxTriggersPerDay: 3, EmergencyLiquidation: true},
		{Type: breaker.DailyLoss, Enabled: true, TriggerThreshold: rl.MaxDailyLoss, ResetThreshold: rl.MaxDailyLoss * 0.5, TimeoutDuration: 5 * time.Minute, MaxTriggersPerDay: 1, EmergencyLiquidation: true},
		{Type: breaker.PositionSize, Enabled: true, TriggerThreshold: rl.MaxPositionSizeUSD, ResetThreshold: rl.MaxPositionSizeUSD * 0.8, TimeoutDuration: time.Minute, MaxTriggersPerDay: 10, AutoReset: true},
		{Type: breaker.Volatility, Enabled: true, TriggerThreshold: 0.5, ResetThreshold: 0.3, TimeoutDuration: time.Minute, MaxTriggersPerDay: 10, AutoReset: true},
		{Type: breaker.Correlation, Enabled: true, TriggerThreshold: 0.9, ResetThreshold: 0.7, TimeoutDuration: time.Minute, MaxTriggersPerDay: 10, AutoReset: true},
		{Type: breaker.Liquidity, Enabled: true, TriggerThreshold: 0.8, ResetThreshold: 0.5, TimeoutDuration: time.Minute, MaxTriggersPerDay: 10, AutoReset: true},
		{Type: breaker.Concentration, Enabled: true, TriggerThreshold: rl.MaxConcentrationPct, ResetThreshold: rl.MaxConcentrationPct * 0.6, TimeoutDuration: time.Minute, MaxTriggersPerDay: 10, AutoReset: true},
		{Type: breaker.Leverage, Enabled: true, TriggerThreshold: rl.MaxLeverageRatio, ResetThreshold: rl.MaxLeverageRatio * 0.7, TimeoutDuration: time.Minute, MaxTriggersPerDay: 10, AutoReset: true},
		{Type: breaker.MarginCall, Enabled: true, TriggerThreshold: 0.9, ResetThreshold: 0.6, TimeoutDuration: time.Minute, MaxTriggersPerDay: 10},
	}
}
