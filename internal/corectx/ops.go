package corectx

import (
	"context"

	"github.com/hydraflowx/mevcore/internal/errtax"
	"github.com/hydraflowx/mevcore/internal/events"
	"github.com/hydraflowx/mevcore/internal/opportunity"
	"github.com/hydraflowx/mevcore/internal/protection"
	"github.com/hydraflowx/mevcore/internal/riskmgr"
	"github.com/hydraflowx/mevcore/internal/ringmetrics"
	"github.com/hydraflowx/mevcore/internal/tx"
)

// Analyze runs the detection kernel over a single candidate
// transaction and returns the surviving opportunities (§6
// "analyze(tx) → list<O>").
func (c *CoreContext) Analyze(t tx.Transaction) []opportunity.Opportunity {
	return c.kernel.Analyze(t)
}

// AnalyzeBatch runs Analyze over every transaction in ts, in order,
// concatenating the results (§6 "analyze_batch"). The accumulator is
// borrowed from a recycled scratch pool since a batch call repeats
// this allocation on every invocation.
func (c *CoreContext) AnalyzeBatch(ts []tx.Transaction) []opportunity.Opportunity {
	buf := c.scratch.get()
	defer c.scratch.put(buf)

	for _, t := range ts {
		*buf = append(*buf, c.Analyze(t)...)
	}

	out := make([]opportunity.Opportunity, len(*buf))
	copy(out, *buf)
	return out
}

// Protect applies a protection strategy to an outbound transaction
// under the given level (§6 "protect(tx, level) → ProtectionResult").
// chain defaults to "Ethereum" when empty.
func (c *CoreContext) Protect(ctx context.Context, t tx.Transaction, threatType opportunity.Type, chain string, level protection.Level) protection.Result {
	if chain == "" {
		chain = "Ethereum"
	}
	res := c.router.Protect(ctx, t, threatType, chain, level)

	c.metrics.IncProtectionsApplied()
	if res.Successful {
		c.metrics.IncSuccessfulProtections()
	} else {
		c.metrics.IncFailedProtections()
	}
	c.metrics.AddProtectionCost(res.ProtectionCostUSD)

	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}
	c.bus.PublishProtection(events.ProtectionEvent{
		TxHash:            t.Hash.Hex(),
		StrategyUsed:      string(res.Strategy),
		Successful:        res.Successful,
		ProtectionCostUSD: res.ProtectionCostUSD,
		ErrorMessage:      errMsg,
	})
	return res
}

// ValidateTrade is the pre-trade gate (§6 "validate_trade").
func (c *CoreContext) ValidateTrade(symbol string, quantity, price float64) (bool, *riskmgr.RiskAlert) {
	allow, alert := c.risk.ValidateTrade(symbol, quantity, price)
	if !allow {
		c.metrics.IncRejectedTrades()
	}
	return allow, alert
}

// RecordPositionOpen applies a position mutation (§6 "record_position_*").
func (c *CoreContext) RecordPositionOpen(symbol string, quantityDelta, price float64) {
	c.risk.AddPosition(symbol, quantityDelta, price)
}

// UpdateMarketData marks symbol to the given price, feeding both the
// risk manager's unrealized P&L and the historical returns series used
// for volatility scoring (§6 "update_market_data").
func (c *CoreContext) UpdateMarketData(symbol string, price float64) {
	c.risk.UpdateMarketData(symbol, price)
	c.hist.For(symbol).AddPrice(price)
}

// ClosePosition fully closes symbol (§6 "close_position").
func (c *CoreContext) ClosePosition(symbol string, closePrice float64) float64 {
	return c.risk.ClosePosition(symbol, closePrice)
}

// GetMetricsSnapshot returns the current portfolio risk metrics (§6
// "get_metrics_snapshot").
func (c *CoreContext) GetMetricsSnapshot() riskmgr.RiskMetrics {
	return c.risk.RecomputeMetrics()
}

// GetPerformanceSnapshot returns the current Metrics Ring snapshot, the
// counterpart telemetry view to GetMetricsSnapshot's portfolio view.
func (c *CoreContext) GetPerformanceSnapshot() ringmetrics.PerformanceSnapshot {
	return c.metrics.Snapshot(c.clk.NowNanos())
}

// GetOpportunities returns every registry entry of the given type at or
// above minTier (§6 "get_opportunities(filter)"). An empty typ returns
// every type at or above minTier.
func (c *CoreContext) GetOpportunities(typ opportunity.Type, minTier opportunity.ConfidenceTier) []opportunity.Opportunity {
	if typ == "" {
		return c.reg.ByMinConfidence(minTier)
	}
	var out []opportunity.Opportunity
	for _, o := range c.reg.ByType(typ) {
		if o.ConfidenceTier >= minTier {
			out = append(out, o)
		}
	}
	return out
}

func (c *CoreContext) SubscribeThreats(h events.ThreatHandler)         { c.bus.SubscribeThreats(h) }
func (c *CoreContext) SubscribeProtections(h events.ProtectionHandler) { c.bus.SubscribeProtections(h) }
func (c *CoreContext) SubscribePositions(h events.PositionHandler)     { c.bus.SubscribePositions(h) }
func (c *CoreContext) SubscribeMetrics(h events.MetricsHandler)        { c.bus.SubscribeMetrics(h) }
func (c *CoreContext) SubscribeAlerts(h events.AlertHandler)           { c.bus.SubscribeAlerts(h) }

// EmergencyStop halts all new trade admission independent of Stop (§6
// "emergency_stop(reason)").
func (c *CoreContext) EmergencyStop(reason string) {
	c.risk.EmergencyStop(reason)
}

// ResumeTrading clears the emergency-stop flag.
func (c *CoreContext) ResumeTrading() {
	c.risk.ResumeTrading()
}

// LiquidateAll books every active position closed at its last known
// price and sets the emergency-stop flag (§6 "liquidate_all(reason)").
func (c *CoreContext) LiquidateAll(reason string) {
	c.risk.LiquidateAll(reason)
}

// PauseSymbol blocks new trades for symbol (§6 "pause_symbol(sym)").
func (c *CoreContext) PauseSymbol(symbol string) { c.risk.PauseSymbol(symbol) }

// ResumeSymbol lifts a pause on symbol (§6 "resume_symbol(sym)").
func (c *CoreContext) ResumeSymbol(symbol string) { c.risk.ResumeSymbol(symbol) }

// SpotPrice consults the configured PriceOracle, falling back to the
// Pool & Price Store when no oracle is wired or the oracle has no
// quote, and reports DataStale when neither source has a fresh price.
func (c *CoreContext) SpotPrice(ctx context.Context, token tx.Transaction) (float64, error) {
	if c.priceOracle != nil {
		if p, ok := c.priceOracle.Spot(ctx, token.To); ok {
			return p, nil
		}
	}
	if !c.pools.Fresh(token.To) {
		return 0, errtax.New(errtax.DataStale, "no fresh price for token").WithDetail("token", token.To.Hex())
	}
	pr, ok := c.pools.PriceOf(token.To)
	if !ok {
		return 0, errtax.New(errtax.DataStale, "no price record for token").WithDetail("token", token.To.Hex())
	}
	return pr.USDPrice, nil
}
