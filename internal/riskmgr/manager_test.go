package riskmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, limits Limits) *Manager {
	t.Helper()
	return New(nil, limits, nil, nil, nil)
}

func TestScenario5RiskDenial(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxSingleTradeUSD = 100
	m := newTestManager(t, limits)

	allow, alert := m.ValidateTrade("PEPE", 10_000_000, 0.000012)
	require.False(t, allow)
	require.NotNil(t, alert)
	assert.Equal(t, High, alert.Level)
	assert.Equal(t, AlertTradeSizeExceeded, alert.Type)
}

func TestAddPositionCloseLeavesNoActivePositionZeroPnL(t *testing.T) {
	m := newTestManager(t, DefaultLimits())
	m.AddPosition("WETH", 10, 3000)
	realized := m.ClosePosition("WETH", 3000)
	assert.Equal(t, 0.0, realized)

	_, ok := m.positions.Position("WETH")
	assert.False(t, ok)
}

func TestRealizedPnLRoundTrip(t *testing.T) {
	m := newTestManager(t, DefaultLimits())
	m.AddPosition("WETH", 10, 100)
	realized := m.ClosePosition("WETH", 110)
	assert.InDelta(t, 100.0, realized, 1e-9) // 10 * (110-100)
}

func TestSignFlipBooksPartialRealizedPnL(t *testing.T) {
	m := newTestManager(t, DefaultLimits())
	m.AddPosition("WETH", 10, 100) // long 10 @ 100
	m.positions.AddPosition("WETH", -15, 120, time.Now()) // flip to short 5 @ 120

	pos, ok := m.positions.Position("WETH")
	require.True(t, ok)
	assert.Equal(t, -5.0, pos.Quantity)
	assert.Equal(t, 120.0, pos.AvgEntryPrice)
	assert.InDelta(t, 200.0, pos.RealizedPnL, 1e-9) // 10 * (120-100)
}

func TestQuantityNeverZeroInActiveMap(t *testing.T) {
	m := newTestManager(t, DefaultLimits())
	m.AddPosition("WETH", 10, 100)
	m.AddPosition("WETH", -10, 105)
	for _, p := range m.Positions() {
		assert.NotEqual(t, 0.0, p.Quantity)
	}
}

func TestValidateTradeDeterministicUnchangedState(t *testing.T) {
	m := newTestManager(t, DefaultLimits())
	a1, _ := m.ValidateTrade("WETH", 1, 3000)
	a2, _ := m.ValidateTrade("WETH", 1, 3000)
	assert.Equal(t, a1, a2)
}

func TestEmergencyStopBlocksTrades(t *testing.T) {
	m := newTestManager(t, DefaultLimits())
	m.EmergencyStop("test")
	allow, alert := m.ValidateTrade("WETH", 1, 3000)
	require.False(t, allow)
	assert.Equal(t, Emergency, alert.Level)
}

func TestLiquidateAllClearsBook(t *testing.T) {
	m := newTestManager(t, DefaultLimits())
	m.AddPosition("WETH", 10, 100)
	m.UpdateMarketData("WETH", 120)
	m.LiquidateAll("breaker tripped")

	assert.True(t, m.IsEmergencyStopped())
	assert.Empty(t, m.Positions())
}
