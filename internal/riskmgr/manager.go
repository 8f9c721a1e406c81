package riskmgr

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hydraflowx/mevcore/internal/breaker"
	"github.com/hydraflowx/mevcore/internal/events"
	"github.com/hydraflowx/mevcore/internal/returns"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Manager owns the active position book, the risk limits, the circuit
// breaker array, and metrics recomputation. It is the single writer of
// portfolio state; all mutation methods serialize through its own
// locking, matching the "single-owner accumulator" design note for
// P&L (§9).
type Manager struct {
	logger *zap.Logger
	clk    interface{ NowNanos() uint64 }

	limitsMu sync.RWMutex
	limits   Limits

	positions *PositionBook
	breakers  *breaker.Array
	bus       *events.Bus

	dailyPnL *returns.Series

	pauseMu sync.RWMutex
	paused  map[string]bool

	histMu          sync.Mutex
	portfolioValues []float64
	peakValue       float64

	emergencyStop atomic.Bool
}

// New constructs a Manager. breakers and bus may be nil (a Manager with
// no breaker array never denies for BreakerTripped; one with no bus
// silently drops alerts instead of publishing them).
func New(logger *zap.Logger, limits Limits, breakers *breaker.Array, bus *events.Bus, clk interface{ NowNanos() uint64 }) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:    logger,
		clk:       clk,
		limits:    limits,
		positions: NewPositionBook(),
		breakers:  breakers,
		bus:       bus,
		dailyPnL:  returns.New(0).For("portfolio"),
		paused:    make(map[string]bool),
	}
}

// Limits returns a copy of the currently installed risk limits.
func (m *Manager) Limits() Limits {
	m.limitsMu.RLock()
	defer m.limitsMu.RUnlock()
	return m.limits
}

// SetLimits replaces the installed risk limits.
func (m *Manager) SetLimits(l Limits) {
	m.limitsMu.Lock()
	defer m.limitsMu.Unlock()
	m.limits = l
}

// PauseSymbol blocks new trades for symbol without affecting others.
func (m *Manager) PauseSymbol(symbol string) {
	m.pauseMu.Lock()
	defer m.pauseMu.Unlock()
	m.paused[symbol] = true
}

// ResumeSymbol lifts a pause on symbol.
func (m *Manager) ResumeSymbol(symbol string) {
	m.pauseMu.Lock()
	defer m.pauseMu.Unlock()
	delete(m.paused, symbol)
}

func (m *Manager) isPaused(symbol string) bool {
	m.pauseMu.RLock()
	defer m.pauseMu.RUnlock()
	return m.paused[symbol]
}

// EmergencyStop sets the global emergency-stop flag, blocking all new
// trade admission until explicitly resumed. Independent of shutdown
// (§5).
func (m *Manager) EmergencyStop(reason string) {
	m.emergencyStop.Store(true)
	m.raiseAlert(RiskAlert{
		Level:       Emergency,
		Type:        AlertEmergencyStop,
		Description: reason,
		Timestamp:   time.Now(),
	})
}

// ResumeTrading clears the global emergency-stop flag.
func (m *Manager) ResumeTrading() {
	m.emergencyStop.Store(false)
}

// IsEmergencyStopped reports the current emergency-stop flag.
func (m *Manager) IsEmergencyStopped() bool {
	return m.emergencyStop.Load()
}

func (m *Manager) raiseAlert(a RiskAlert) {
	if m.bus == nil {
		return
	}
	m.bus.PublishAlert(events.AlertEvent{
		Level:          a.Level.String(),
		Type:           string(a.Type),
		Description:    a.Description,
		AffectedSymbol: a.AffectedSymbol,
		CurrentValue:   a.CurrentValue,
		ThresholdValue: a.ThresholdValue,
		Timestamp:      a.Timestamp,
	})
}

// ValidateTrade is the pre-trade gate (C12). It returns (allow, alert)
// where alert is non-nil exactly when allow is false.
func (m *Manager) ValidateTrade(symbol string, quantity, price float64) (bool, *RiskAlert) {
	tradeValue := math.Abs(quantity * price)
	limits := m.Limits()

	deny := func(level AlertLevel, typ AlertType, desc string, current, threshold float64) (bool, *RiskAlert) {
		a := RiskAlert{
			Level: level, Type: typ, Description: desc,
			AffectedSymbol: symbol, CurrentValue: current, ThresholdValue: threshold,
			Timestamp: time.Now(),
		}
		m.raiseAlert(a)
		return false, &a
	}

	if m.emergencyStop.Load() {
		return deny(Emergency, AlertEmergencyStop, "global emergency stop active", 1, 0)
	}
	if m.isPaused(symbol) {
		return deny(High, AlertSymbolPaused, "symbol is paused", 1, 0)
	}
	if limits.BlacklistedSymbols[symbol] {
		return deny(High, AlertSymbolBlacklisted, "symbol is blacklisted", 1, 0)
	}
	if limits.MaxSingleTradeUSD > 0 && tradeValue > limits.MaxSingleTradeUSD {
		return deny(High, AlertTradeSizeExceeded, "trade value exceeds max single trade limit", tradeValue, limits.MaxSingleTradeUSD)
	}

	existing, _ := m.positions.Position(symbol)
	resultingQty := existing.Quantity + quantity
	resultingValue := math.Abs(resultingQty * price)
	if limits.MaxPositionSizeUSD > 0 && resultingValue > limits.MaxPositionSizeUSD {
		return deny(High, AlertPositionSizeExceeded, "resulting position exceeds max position size", resultingValue, limits.MaxPositionSizeUSD)
	}

	portfolioValue := m.portfolioValue()
	if limits.MaxPortfolioValue > 0 && portfolioValue+tradeValue > limits.MaxPortfolioValue {
		return deny(High, AlertPortfolioValueExceeded, "trade would exceed max portfolio value", portfolioValue+tradeValue, limits.MaxPortfolioValue)
	}

	if m.breakers != nil && m.breakers.AnyTripped() {
		return deny(Critical, AlertBreakerTripped, "a circuit breaker is currently tripped", 1, 0)
	}

	return true, nil
}

func (m *Manager) portfolioValue() float64 {
	var total float64
	for _, p := range m.positions.All() {
		total += math.Abs(p.MarketValue())
	}
	return total
}

// AddPosition applies a position mutation and publishes a
// position-updated event.
func (m *Manager) AddPosition(symbol string, quantityDelta, price float64) {
	now := time.Now()
	m.positions.AddPosition(symbol, quantityDelta, price, now)
	m.publishPosition(symbol)
}

// UpdateMarketData marks symbol to price, recomputing unrealized P&L.
func (m *Manager) UpdateMarketData(symbol string, price float64) {
	now := time.Now()
	m.positions.UpdatePosition(symbol, price, now)
	m.publishPosition(symbol)
}

// ClosePosition fully closes symbol at closePrice.
func (m *Manager) ClosePosition(symbol string, closePrice float64) float64 {
	realized := m.positions.ClosePosition(symbol, closePrice, time.Now())
	m.publishPosition(symbol)
	return realized
}

func (m *Manager) publishPosition(symbol string) {
	if m.bus == nil {
		return
	}
	pos, ok := m.positions.Position(symbol)
	if !ok {
		m.bus.PublishPosition(events.PositionEvent{Symbol: symbol})
		return
	}
	m.bus.PublishPosition(events.PositionEvent{
		Symbol:        pos.Symbol,
		Quantity:      pos.Quantity,
		AvgEntryPrice: pos.AvgEntryPrice,
		RealizedPnL:   pos.RealizedPnL,
		UnrealizedPnL: pos.UnrealizedPnL,
	})
}

// Positions returns a copy of every active position.
func (m *Manager) Positions() []Position {
	return m.positions.All()
}

// RecomputeMetrics runs the full metrics recomputation described in
// §4.7 and publishes the resulting snapshot. It must run on every
// market update and at minimum once per MonitoringFrequency.
func (m *Manager) RecomputeMetrics() RiskMetrics {
	positions := m.positions.All()

	var totalValue, gross, net, unrealized float64
	for _, p := range positions {
		mv := p.MarketValue()
		totalValue += math.Abs(mv)
		gross += math.Abs(mv)
		net += mv
		unrealized += p.UnrealizedPnL
	}
	realized := m.positions.RealizedPnL()

	largest, top5 := concentration(positions, totalValue)

	m.histMu.Lock()
	m.portfolioValues = append(m.portfolioValues, totalValue)
	if len(m.portfolioValues) > returns.DefaultCapacity {
		m.portfolioValues = m.portfolioValues[len(m.portfolioValues)-returns.DefaultCapacity:]
	}
	if totalValue > m.peakValue {
		m.peakValue = totalValue
	}
	maxDD, curDD := drawdown(m.portfolioValues)
	history := append([]float64(nil), m.portfolioValues...)
	m.histMu.Unlock()

	dailyPnL := realized + unrealized
	m.dailyPnL.AddReturn(dailyPnL)

	var1, cvar := m.dailyPnL.VaR(0.95, 0), m.dailyPnL.CVaR(0.95, 0)
	sharpe, sortino := performanceRatios(history)

	leverage := 0.0
	if totalValue > 0 {
		leverage = gross / totalValue
	}

	snap := RiskMetrics{
		Timestamp:          time.Now(),
		TotalValue:          totalValue,
		GrossExposure:       gross,
		NetExposure:         net,
		UnrealizedPnL:       unrealized,
		RealizedPnL:         realized,
		DailyPnL:            dailyPnL,
		LargestPositionPct:  largest,
		Top5Pct:             top5,
		VaR95:               var1,
		CVaR95:              cvar,
		SharpeRatio:         sharpe,
		SortinoRatio:        sortino,
		MaxDrawdown:         maxDD,
		CurrentDrawdown:     curDD,
		LeverageRatio:       leverage,
	}

	if m.bus != nil {
		m.bus.PublishMetrics(events.MetricsEvent{
			Timestamp:     snap.Timestamp,
			TotalValue:    snap.TotalValue,
			DailyPnL:      snap.DailyPnL,
			VaR95:         snap.VaR95,
			LeverageRatio: snap.LeverageRatio,
		})
	}
	return snap
}

func concentration(positions []Position, totalValue float64) (largest, top5 float64) {
	if totalValue <= 0 || len(positions) == 0 {
		return 0, 0
	}
	values := make([]float64, len(positions))
	for i, p := range positions {
		values[i] = math.Abs(p.MarketValue())
	}
	// selection sort descending; position counts are small (tens, not
	// millions), so O(n*5) beats pulling in a sort for five elements.
	for i := 0; i < len(values) && i < 5; i++ {
		maxIdx := i
		for j := i + 1; j < len(values); j++ {
			if values[j] > values[maxIdx] {
				maxIdx = j
			}
		}
		values[i], values[maxIdx] = values[maxIdx], values[i]
	}
	if len(values) > 0 {
		largest = values[0] / totalValue
	}
	var top5Sum float64
	for i := 0; i < len(values) && i < 5; i++ {
		top5Sum += values[i]
	}
	top5 = top5Sum / totalValue
	return largest, top5
}

func drawdown(history []float64) (maxDD, curDD float64) {
	if len(history) == 0 {
		return 0, 0
	}
	peak := history[0]
	for _, v := range history {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	last := history[len(history)-1]
	if peak > 0 {
		curDD = (peak - last) / peak
	}
	return maxDD, curDD
}

func performanceRatios(portfolioValues []float64) (sharpe, sortino float64) {
	if len(portfolioValues) < 2 {
		return 0, 0
	}
	dailyReturns := make([]float64, 0, len(portfolioValues)-1)
	for i := 1; i < len(portfolioValues); i++ {
		prev := portfolioValues[i-1]
		if prev == 0 {
			continue
		}
		dailyReturns = append(dailyReturns, (portfolioValues[i]-prev)/prev)
	}
	if len(dailyReturns) < 2 {
		return 0, 0
	}
	mean, std := stat.MeanStdDev(dailyReturns, nil)
	if std > 0 {
		sharpe = (mean*252 - 0) / (std * math.Sqrt(252))
	}

	var downsideSq float64
	var n int
	for _, r := range dailyReturns {
		if r < 0 {
			downsideSq += r * r
			n++
		}
	}
	if n > 0 {
		downsideDev := math.Sqrt(downsideSq / float64(n))
		if downsideDev > 0 {
			sortino = (mean * 252) / (downsideDev * math.Sqrt(252))
		}
	}
	return sharpe, sortino
}

// LiquidateAll is the emergency-liquidation path (§4.7): sets the
// emergency flag, books realized P&L for every active position at its
// last known price, clears the active map, and raises an Emergency
// alert. Installed as the breaker.LiquidateAllFunc for any breaker
// configured with EmergencyLiquidation.
func (m *Manager) LiquidateAll(reason string) {
	m.emergencyStop.Store(true)
	m.positions.LiquidateAll()
	m.raiseAlert(RiskAlert{
		Level:       Emergency,
		Type:        AlertEmergencyStop,
		Description: "emergency liquidation: " + reason,
		Timestamp:   time.Now(),
	})
}
