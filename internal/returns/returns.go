// Package returns implements the Historical Returns store (C4): a
// bounded per-symbol deque of arithmetic and log returns with
// volatility/VaR/CVaR queries. Statistical machinery is delegated to
// gonum's stat package rather than hand-rolled, matching how the
// reference corpus (both the teacher and aristath-sentinel) leans on
// gonum for portfolio math.
package returns

import (
	"math"
	"sort"
	"sync"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// DefaultCapacity is the default bounded deque length (spec: cap = 252,
// one trading year of daily returns).
const DefaultCapacity = 252

// Series is a single symbol's bounded return history.
type Series struct {
	mu         sync.RWMutex
	capacity   int
	prices     []float64
	arithmetic []float64
	logReturns []float64
}

func newSeries(capacity int) *Series {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Series{capacity: capacity}
}

// AddPrice appends a new observed price, deriving and appending the
// arithmetic and log return versus the prior price. The first price in
// a series produces no return.
func (s *Series) AddPrice(price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.prices) > 0 {
		prev := s.prices[len(s.prices)-1]
		if prev != 0 {
			s.arithmetic = appendBounded(s.arithmetic, (price-prev)/prev, s.capacity)
		}
		if prev > 0 && price > 0 {
			s.logReturns = appendBounded(s.logReturns, math.Log(price/prev), s.capacity)
		}
	}
	s.prices = appendBounded(s.prices, price, s.capacity)
}

// AddReturn appends an already-computed arithmetic return directly,
// for callers (e.g. the risk manager's daily P&L series) that do not
// have a price series to derive returns from.
func (s *Series) AddReturn(r float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.arithmetic = appendBounded(s.arithmetic, r, s.capacity)
}

func appendBounded(buf []float64, v float64, capacity int) []float64 {
	buf = append(buf, v)
	if len(buf) > capacity {
		buf = buf[len(buf)-capacity:]
	}
	return buf
}

// Len returns the number of arithmetic returns currently held.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arithmetic)
}

// window returns the last n arithmetic returns (or all of them if
// n <= 0 or n exceeds the series length).
func (s *Series) window(n int) []float64 {
	if n <= 0 || n > len(s.arithmetic) {
		n = len(s.arithmetic)
	}
	out := make([]float64, n)
	copy(out, s.arithmetic[len(s.arithmetic)-n:])
	return out
}

// Volatility returns the sample standard deviation of arithmetic
// returns over the trailing window (0 = whole series).
func (s *Series) Volatility(window int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := s.window(window)
	if len(w) < 2 {
		return 0
	}
	_, std := stat.MeanStdDev(w, nil)
	return std
}

// VaR returns the historical-method Value at Risk at the given
// confidence (e.g. 0.95) over the trailing window, expressed as a
// positive loss fraction. Returns 0 if fewer than 10 observations are
// available, per the spec's "length >= 10" minimum.
func (s *Series) VaR(confidence float64, window int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := s.window(window)
	if len(w) < 10 {
		return 0
	}
	sorted := append([]float64(nil), w...)
	sort.Float64s(sorted)
	idx := int((1 - confidence) * float64(len(sorted)))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := sorted[idx]
	if v > 0 {
		return 0
	}
	return -v
}

// CVaR returns the historical-method Conditional Value at Risk (the
// mean loss beyond the VaR cutoff) at the given confidence over the
// trailing window.
func (s *Series) CVaR(confidence float64, window int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w := s.window(window)
	if len(w) < 10 {
		return 0
	}
	sorted := append([]float64(nil), w...)
	sort.Float64s(sorted)
	idx := int((1 - confidence) * float64(len(sorted)))
	if idx < 1 {
		idx = 1
	}
	if idx > len(sorted) {
		idx = len(sorted)
	}
	tail := sorted[:idx]
	mean := stat.Mean(tail, nil)
	if mean > 0 {
		return 0
	}
	return -mean
}

// RSI returns the latest Relative Strength Index over the trailing
// price series (period+1 closes minimum), using go-talib the same way
// the reference corpus's indicator calculator does. 50 (neutral) is
// returned when there is not yet enough price history.
func (s *Series) RSI(period int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.prices) < period+1 {
		return 50
	}
	out := talib.Rsi(s.prices, period)
	return out[len(out)-1]
}

// Store is the process-wide per-symbol Historical Returns store.
type Store struct {
	mu       sync.RWMutex
	series   map[string]*Series
	capacity int
}

// New returns an empty Store using the given per-symbol capacity (0 =
// DefaultCapacity).
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{series: make(map[string]*Series), capacity: capacity}
}

// For returns (creating if necessary) the Series for symbol.
func (st *Store) For(symbol string) *Series {
	st.mu.RLock()
	s, ok := st.series[symbol]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.series[symbol]; ok {
		return s
	}
	s = newSeries(st.capacity)
	st.series[symbol] = s
	return s
}
