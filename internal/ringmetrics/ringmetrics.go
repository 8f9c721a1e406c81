// Package ringmetrics implements the Metrics Ring (C2): lock-free named
// counters plus a fixed-capacity ring of PerformanceSnapshot values.
// Prometheus exposition is layered on top of the same atomics, adapted
// from internal/hft/metrics.BaselineMetrics in the reference corpus —
// the histograms/gauges/counters there become this package's
// externally-scraped view, while the ring and percentile reservoir are
// the spec's own addition with no teacher analogue.
package ringmetrics

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RingCapacity is the maximum number of PerformanceSnapshot values kept.
const RingCapacity = 10000

// ReservoirSize bounds the sample reservoir used for latency
// percentiles.
const ReservoirSize = 1000

// PerformanceSnapshot is an atomically-read-out view of every counter
// at one instant. Composite consistency across counters is not
// guaranteed, only documented (spec §5).
type PerformanceSnapshot struct {
	TakenAtNs            uint64
	TotalTransactions    int64
	ThreatsDetected      int64
	ProtectionsApplied   int64
	SuccessfulProtections int64
	FailedProtections    int64
	CircuitBreakerTrips  int64
	RejectedTrades       int64
	TotalProtectionCostUSD float64
	TotalMEVSavedUSD     float64
	P50LatencyNs         int64
	P95LatencyNs         int64
	P99LatencyNs         int64
	P999LatencyNs        int64
}

// Ring is the process-wide Metrics Ring singleton.
type Ring struct {
	totalTransactions     int64
	threatsDetected       int64
	protectionsApplied    int64
	successfulProtections int64
	failedProtections     int64
	circuitBreakerTrips   int64
	rejectedTrades        int64

	costMu          sync.Mutex
	totalProtectionCostUSD float64
	totalMEVSavedUSD       float64

	latMu      sync.Mutex
	reservoir  []int64
	reservoirN int64

	snapMu sync.Mutex
	snaps  []PerformanceSnapshot
	rng    *rand.Rand

	prom *promMetrics
}

type promMetrics struct {
	detectionLatency  prometheus.Histogram
	protectionLatency prometheus.Histogram
	riskCheckLatency  prometheus.Histogram
	threatsDetected   prometheus.Counter
	txAnalyzed        prometheus.Counter
	breakerTrips      prometheus.Gauge
}

// New returns an empty Ring. registerer may be nil to skip Prometheus
// registration (e.g. in tests, where a fresh registry per test avoids
// collisions).
func New(registerer prometheus.Registerer) *Ring {
	r := &Ring{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if registerer == nil {
		return r
	}
	factory := promauto.With(registerer)
	r.prom = &promMetrics{
		detectionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mev_detection_latency_microseconds",
			Help:    "Detection kernel end-to-end latency in microseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
		}),
		protectionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mev_protection_latency_microseconds",
			Help:    "Protection router end-to-end latency in microseconds",
			Buckets: []float64{1000, 5000, 10000, 25000, 50000, 100000, 250000, 500000, 1000000},
		}),
		riskCheckLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mev_risk_check_latency_microseconds",
			Help:    "validate_trade latency in microseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		threatsDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "mev_threats_detected_total",
			Help: "Total number of opportunities/threats detected",
		}),
		txAnalyzed: factory.NewCounter(prometheus.CounterOpts{
			Name: "mev_transactions_analyzed_total",
			Help: "Total number of transactions analyzed",
		}),
		breakerTrips: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mev_circuit_breakers_tripped",
			Help: "Number of currently tripped circuit breakers",
		}),
	}
	return r
}

func (r *Ring) IncTotalTransactions() {
	atomic.AddInt64(&r.totalTransactions, 1)
	if r.prom != nil {
		r.prom.txAnalyzed.Inc()
	}
}

func (r *Ring) IncThreatsDetected() {
	atomic.AddInt64(&r.threatsDetected, 1)
	if r.prom != nil {
		r.prom.threatsDetected.Inc()
	}
}

func (r *Ring) IncProtectionsApplied()    { atomic.AddInt64(&r.protectionsApplied, 1) }
func (r *Ring) IncSuccessfulProtections() { atomic.AddInt64(&r.successfulProtections, 1) }
func (r *Ring) IncFailedProtections()     { atomic.AddInt64(&r.failedProtections, 1) }
func (r *Ring) IncRejectedTrades()        { atomic.AddInt64(&r.rejectedTrades, 1) }

func (r *Ring) SetCircuitBreakerTrips(n int64) {
	atomic.StoreInt64(&r.circuitBreakerTrips, n)
	if r.prom != nil {
		r.prom.breakerTrips.Set(float64(n))
	}
}

func (r *Ring) IncCircuitBreakerTrips() { atomic.AddInt64(&r.circuitBreakerTrips, 1) }

func (r *Ring) AddProtectionCost(usd float64) {
	r.costMu.Lock()
	r.totalProtectionCostUSD += usd
	r.costMu.Unlock()
}

func (r *Ring) AddMEVSaved(usd float64) {
	r.costMu.Lock()
	r.totalMEVSavedUSD += usd
	r.costMu.Unlock()
}

// ObserveDetectionLatency records a detection-path latency sample into
// both the Prometheus histogram and the percentile reservoir.
func (r *Ring) ObserveDetectionLatency(d time.Duration) {
	micros := float64(d.Nanoseconds()) / 1000.0
	if r.prom != nil {
		r.prom.detectionLatency.Observe(micros)
	}
	r.sample(d.Nanoseconds())
}

func (r *Ring) ObserveProtectionLatency(d time.Duration) {
	if r.prom != nil {
		r.prom.protectionLatency.Observe(float64(d.Nanoseconds()) / 1000.0)
	}
}

func (r *Ring) ObserveRiskCheckLatency(d time.Duration) {
	if r.prom != nil {
		r.prom.riskCheckLatency.Observe(float64(d.Nanoseconds()) / 1000.0)
	}
}

// sample implements reservoir sampling (Algorithm R) for latency
// percentiles, bounded at ReservoirSize regardless of run length.
func (r *Ring) sample(ns int64) {
	r.latMu.Lock()
	defer r.latMu.Unlock()

	r.reservoirN++
	if len(r.reservoir) < ReservoirSize {
		r.reservoir = append(r.reservoir, ns)
		return
	}
	j := r.rng.Int63n(r.reservoirN)
	if j < int64(ReservoirSize) {
		r.reservoir[j] = ns
	}
}

func percentile(sorted []int64, p float64) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Snapshot atomically reads every counter and appends (then returns) a
// PerformanceSnapshot, evicting the oldest entry if the ring is full.
func (r *Ring) Snapshot(nowNs uint64) PerformanceSnapshot {
	r.latMu.Lock()
	sorted := append([]int64(nil), r.reservoir...)
	r.latMu.Unlock()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	r.costMu.Lock()
	cost := r.totalProtectionCostUSD
	saved := r.totalMEVSavedUSD
	r.costMu.Unlock()

	snap := PerformanceSnapshot{
		TakenAtNs:              nowNs,
		TotalTransactions:      atomic.LoadInt64(&r.totalTransactions),
		ThreatsDetected:        atomic.LoadInt64(&r.threatsDetected),
		ProtectionsApplied:     atomic.LoadInt64(&r.protectionsApplied),
		SuccessfulProtections:  atomic.LoadInt64(&r.successfulProtections),
		FailedProtections:      atomic.LoadInt64(&r.failedProtections),
		CircuitBreakerTrips:    atomic.LoadInt64(&r.circuitBreakerTrips),
		RejectedTrades:         atomic.LoadInt64(&r.rejectedTrades),
		TotalProtectionCostUSD: cost,
		TotalMEVSavedUSD:       saved,
		P50LatencyNs:           percentile(sorted, 0.50),
		P95LatencyNs:           percentile(sorted, 0.95),
		P99LatencyNs:           percentile(sorted, 0.99),
		P999LatencyNs:          percentile(sorted, 0.999),
	}

	r.snapMu.Lock()
	r.snaps = append(r.snaps, snap)
	if len(r.snaps) > RingCapacity {
		r.snaps = r.snaps[len(r.snaps)-RingCapacity:]
	}
	r.snapMu.Unlock()

	return snap
}

// History returns a copy of every retained snapshot, oldest first.
func (r *Ring) History() []PerformanceSnapshot {
	r.snapMu.Lock()
	defer r.snapMu.Unlock()
	out := make([]PerformanceSnapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}
