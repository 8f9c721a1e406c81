// Package events implements the Event Bus (C13): a single registration
// point for four callback kinds (threat-detected, protection-applied,
// position-updated, metrics-updated), plus the risk alert fanout §4.7
// routes through the same bus. Adapted from the synchronous, in-order,
// lock-copied-before-iteration dispatch pattern of
// internal/messaging/unified_dispatcher.go in the reference corpus, but
// deliberately stripped of that file's async queue/worker-pool plumbing:
// the spec's contract is synchronous on the producer's task, so the
// Event Bus here is a plain mutex + slice fanout, not a buffered
// dispatcher. Payloads are self-contained structs rather than references
// to the owning packages' domain types, so this package has no internal
// dependencies and the data handed to subscribers is always a copy —
// this is the "tagged variant ... registry of plain function-typed
// subscribers" design called out for replacing the original's
// shared-pointer callback graph.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// ThreatEvent is published whenever the detection kernel registers a
// new (or improved-confidence) opportunity.
type ThreatEvent struct {
	OpportunityID   string
	Type            string
	ConfidenceScore float64
	EstimatedProfitUSD float64
	DetectedAt      time.Time
}

// ProtectionEvent is published whenever the protection router finishes
// handling an outbound transaction.
type ProtectionEvent struct {
	TxHash          string
	StrategyUsed    string
	Successful      bool
	ProtectionCostUSD float64
	ErrorMessage    string
}

// PositionEvent is published on every position mutation.
type PositionEvent struct {
	Symbol        string
	Quantity      float64
	AvgEntryPrice float64
	RealizedPnL   float64
	UnrealizedPnL float64
}

// MetricsEvent is published on every risk-metrics recomputation tick.
type MetricsEvent struct {
	Timestamp     time.Time
	TotalValue    float64
	DailyPnL      float64
	VaR95         float64
	LeverageRatio float64
}

// AlertEvent is published on every RiskAlert raised by the validator or
// the circuit breaker array.
type AlertEvent struct {
	Level          string
	Type           string
	Description    string
	AffectedSymbol string
	CurrentValue   float64
	ThresholdValue float64
	Timestamp      time.Time
}

type (
	ThreatHandler    func(ThreatEvent)
	ProtectionHandler func(ProtectionEvent)
	PositionHandler  func(PositionEvent)
	MetricsHandler   func(MetricsEvent)
	AlertHandler     func(AlertEvent)
)

// Bus is the process-wide Event Bus singleton.
type Bus struct {
	logger *zap.Logger

	mu         sync.Mutex
	threats    []ThreatHandler
	protections []ProtectionHandler
	positions  []PositionHandler
	metrics    []MetricsHandler
	alerts     []AlertHandler
}

// New returns an empty Bus. logger may be nil, in which case a no-op
// logger is used.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{logger: logger}
}

func (b *Bus) SubscribeThreats(h ThreatHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.threats = append(b.threats, h)
}

func (b *Bus) SubscribeProtections(h ProtectionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.protections = append(b.protections, h)
}

func (b *Bus) SubscribePositions(h PositionHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.positions = append(b.positions, h)
}

func (b *Bus) SubscribeMetrics(h MetricsHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metrics = append(b.metrics, h)
}

func (b *Bus) SubscribeAlerts(h AlertHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.alerts = append(b.alerts, h)
}

// safeCall recovers a panicking handler, logs it, and lets the caller
// continue to the next subscriber — a single bad handler must not stop
// the fanout (§4.9).
func (b *Bus) safeCall(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", zap.String("kind", kind), zap.Any("recover", r))
		}
	}()
	fn()
}

func (b *Bus) PublishThreat(e ThreatEvent) {
	b.mu.Lock()
	hs := append([]ThreatHandler(nil), b.threats...)
	b.mu.Unlock()
	for _, h := range hs {
		h := h
		b.safeCall("threat", func() { h(e) })
	}
}

func (b *Bus) PublishProtection(e ProtectionEvent) {
	b.mu.Lock()
	hs := append([]ProtectionHandler(nil), b.protections...)
	b.mu.Unlock()
	for _, h := range hs {
		h := h
		b.safeCall("protection", func() { h(e) })
	}
}

func (b *Bus) PublishPosition(e PositionEvent) {
	b.mu.Lock()
	hs := append([]PositionHandler(nil), b.positions...)
	b.mu.Unlock()
	for _, h := range hs {
		h := h
		b.safeCall("position", func() { h(e) })
	}
}

func (b *Bus) PublishMetrics(e MetricsEvent) {
	b.mu.Lock()
	hs := append([]MetricsHandler(nil), b.metrics...)
	b.mu.Unlock()
	for _, h := range hs {
		h := h
		b.safeCall("metrics", func() { h(e) })
	}
}

func (b *Bus) PublishAlert(e AlertEvent) {
	b.mu.Lock()
	hs := append([]AlertHandler(nil), b.alerts...)
	b.mu.Unlock()
	for _, h := range hs {
		h := h
		b.safeCall("alert", func() { h(e) })
	}
}
