package corectx

import (
	"context"
	"math"
	"time"

	"github.com/hydraflowx/mevcore/internal/breaker"
	"github.com/hydraflowx/mevcore/internal/tx"
	"go.uber.org/zap"
)

// pollBackoff is the wait between FetchPendingTxs attempts when the
// chain node returns an error, matching the "bounded blocking wait"
// suspension point the spec names for the poller task.
const pollBackoff = 200 * time.Millisecond

// Start launches the mempool poller (if a ChainNode is configured),
// the metrics/risk-recompute ticker, and the daily breaker-counter
// reset cron. It is an error to call Start twice without an
// intervening Stop.
func (c *CoreContext) Start(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	c.stopCh = make(chan struct{})

	if c.chainNode != nil {
		c.wg.Add(1)
		go c.pollMempool(ctx)
	}

	c.wg.Add(1)
	go c.runTicker()

	c.cron.AddFunc("@midnight", c.breakers.DailyReset)
	c.cron.Start()

	c.logger.Info("corectx started",
		zap.Int("worker_thread_count", c.cfg.Concurrency.WorkerThreadCount),
		zap.Duration("monitoring_frequency", c.cfg.Concurrency.MonitoringFrequency))
	return nil
}

// Stop signals every background task to exit, waits for them (bounded
// by the caller's ctx), stops the cron scheduler, and releases the
// worker pool. Emergency-stop state is independent of Stop and is not
// touched here.
func (c *CoreContext) Stop(ctx context.Context) error {
	if !c.running.CompareAndSwap(true, false) {
		return ErrNotRunning
	}
	close(c.stopCh)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.logger.Warn("corectx stop: background tasks did not exit before deadline")
	}

	cronCtx := c.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}

	c.workers.Release()
	c.telemetry.Close()
	c.logger.Info("corectx stopped")
	return nil
}

func (c *CoreContext) pollMempool(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		txs, err := c.chainNode.FetchPendingTxs(ctx)
		if err != nil {
			c.logger.Warn("mempool poll failed", zap.Error(err))
			time.Sleep(pollBackoff)
			continue
		}
		for _, t := range txs {
			c.snap.Admit(t)
			c.metrics.IncTotalTransactions()
			c.submitAnalysis(t)
		}
	}
}

// submitAnalysis hands a candidate transaction to the shared worker
// pool for detection; a full pool falls back to running the analysis
// inline rather than dropping the transaction, since a rejected
// candidate would never get another chance once evicted from the
// mempool snapshot.
func (c *CoreContext) submitAnalysis(t tx.Transaction) {
	task := func() {
		started := time.Now()
		c.Analyze(t)
		c.metrics.ObserveDetectionLatency(time.Since(started))
	}
	if err := c.workers.Submit(task); err != nil {
		task()
	}
}

func (c *CoreContext) runTicker() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cfg.Concurrency.MonitoringFrequency)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick feeds every installed breaker type a fresh observed value. Four
// of the nine (position_size, volatility, correlation, liquidity) have
// no single metrics-struct field to read directly, so each is derived
// here from the position book, historical returns, and mempool snapshot
// this core already maintains; margin_call reuses a metrics field:
//   - position_size: the largest active position's market value.
//   - volatility: mean trailing return volatility across active
//     symbols (the same Historical Returns series the detection
//     kernel reads for token volatility).
//   - correlation: largest_position_pct / top5_pct, a concentration
//     proxy — near 1 means the top-5 exposure is really one position,
//     i.e. nothing left to diversify away.
//   - liquidity: mempool admission-window fullness, a stand-in for how
//     congested exit execution currently is.
//   - margin_call: current drawdown again, at the array's separately
//     configured (and far higher) margin_call threshold — the same
//     underlying signal as portfolio_drawdown, escalated.
func (c *CoreContext) tick() {
	m := c.risk.RecomputeMetrics()
	now := time.Now()
	c.breakers.Observe(breaker.PortfolioDrawdown, m.CurrentDrawdown, now)
	c.breakers.Observe(breaker.DailyLoss, -m.DailyPnL, now)
	c.breakers.Observe(breaker.Concentration, m.Top5Pct, now)
	c.breakers.Observe(breaker.Leverage, m.LeverageRatio, now)
	c.breakers.Observe(breaker.MarginCall, m.CurrentDrawdown, now)

	positions := c.risk.Positions()

	var maxPositionUSD, volSum float64
	for _, p := range positions {
		if v := math.Abs(p.MarketValue()); v > maxPositionUSD {
			maxPositionUSD = v
		}
		volSum += c.hist.For(p.Symbol).Volatility(0)
	}
	c.breakers.Observe(breaker.PositionSize, maxPositionUSD, now)
	if len(positions) > 0 {
		c.breakers.Observe(breaker.Volatility, volSum/float64(len(positions)), now)
	} else {
		c.breakers.Observe(breaker.Volatility, 0, now)
	}

	correlation := 0.0
	if m.Top5Pct > 0 {
		correlation = m.LargestPositionPct / m.Top5Pct
	}
	c.breakers.Observe(breaker.Correlation, correlation, now)

	liquidity := 0.0
	if c.snap.Depth() > 0 {
		liquidity = float64(c.snap.Len()) / float64(c.snap.Depth())
	}
	c.breakers.Observe(breaker.Liquidity, liquidity, now)

	c.telemetry.PublishMetrics(c.metrics.Snapshot(c.clk.NowNanos()))
	c.reg.SweepExpired(c.clk.NowNanos())
}
