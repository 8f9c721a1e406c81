package returns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesCapacityBounded(t *testing.T) {
	s := newSeries(5)
	for i := 0; i < 20; i++ {
		s.AddReturn(float64(i) * 0.001)
	}
	assert.Equal(t, 5, s.Len())
}

func TestVolatilityRequiresTwoPoints(t *testing.T) {
	s := newSeries(DefaultCapacity)
	assert.Equal(t, 0.0, s.Volatility(0))
	s.AddReturn(0.01)
	assert.Equal(t, 0.0, s.Volatility(0))
	s.AddReturn(-0.01)
	assert.NotEqual(t, 0.0, s.Volatility(0))
}

func TestVaRBelowMinimumObservationsIsZero(t *testing.T) {
	s := newSeries(DefaultCapacity)
	for i := 0; i < 9; i++ {
		s.AddReturn(-0.05)
	}
	assert.Equal(t, 0.0, s.VaR(0.95, 0))
}

func TestVaRAndCVaRPositiveOnLosses(t *testing.T) {
	s := newSeries(DefaultCapacity)
	returns := []float64{0.01, -0.02, 0.015, -0.05, 0.02, -0.01, 0.03, -0.08, 0.005, -0.03}
	for _, r := range returns {
		s.AddReturn(r)
	}
	v := s.VaR(0.95, 0)
	cv := s.CVaR(0.95, 0)
	require.GreaterOrEqual(t, cv, v)
	assert.Greater(t, v, 0.0)
}

func TestStoreForCreatesOncePerSymbol(t *testing.T) {
	st := New(0)
	a := st.For("WETH")
	b := st.For("WETH")
	assert.Same(t, a, b)
}

func TestAddPriceDerivesReturns(t *testing.T) {
	s := newSeries(DefaultCapacity)
	s.AddPrice(100)
	s.AddPrice(110)
	assert.Equal(t, 1, s.Len())
}

func TestRSINeutralBelowMinimumHistory(t *testing.T) {
	s := newSeries(DefaultCapacity)
	s.AddPrice(100)
	assert.Equal(t, 50.0, s.RSI(14))
}

func TestRSIRisesOnSustainedGains(t *testing.T) {
	s := newSeries(DefaultCapacity)
	price := 100.0
	for i := 0; i < 20; i++ {
		price += 1
		s.AddPrice(price)
	}
	assert.Greater(t, s.RSI(14), 50.0)
}
