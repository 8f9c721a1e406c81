// Package relay implements the Relay Adapters (C9): one HTTP-backed
// adapter per configured relay (Flashbots, Jito, private-mempool
// relays), each guarded by its own consecutive-failure circuit breaker
// and request-rate limiter, submitting gzip-compressed bundle payloads.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/segmentio/ksuid"
	"github.com/sony/gobreaker"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"
)

// Adapter is the narrow interface the protection router consumes,
// matching spec.md §6's Relay.submit_bundle/submit_private surface.
type Adapter interface {
	Name() string
	SubmitBundle(ctx context.Context, bundle []byte) (string, error)
	SubmitPrivate(ctx context.Context, rawTx []byte) (string, error)
	Health() Health
}

// Health is the relay connection state spec.md §4.8 names explicitly.
type Health struct {
	Connected         bool
	LastSuccessNs     uint64
	FailuresInWindow  int
	BreakerOpen       bool
}

// HTTPRelay submits bundles/raw transactions to a single relay endpoint
// over HTTP, behind a consecutive-failure circuit breaker and a
// request-rate limiter.
type HTTPRelay struct {
	name       string
	bundleURL  string
	privateURL string
	client     *http.Client
	logger     *zap.Logger

	breaker *gobreaker.CircuitBreaker
	limiter *limiter.Limiter
	now     func() uint64

	mu               sync.Mutex
	lastSuccessNs    uint64
	failuresInWindow int
}

// Config tunes one relay adapter.
type Config struct {
	Name                 string
	BundleURL            string
	PrivateURL            string
	Timeout              time.Duration
	ConsecutiveFailures  uint32        // ReadyToTrip threshold
	OpenBackoff          time.Duration // Timeout before half-open probe
	RequestsPerSecond    int64
}

// New returns an HTTPRelay wired with a per-relay gobreaker circuit
// (opens after ConsecutiveFailures in a row, half-open probe after
// OpenBackoff) and an in-memory token-bucket rate limiter.
func New(cfg Config, logger *zap.Logger) (*HTTPRelay, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	if cfg.OpenBackoff <= 0 {
		cfg.OpenBackoff = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}

	store := memory.NewStore()
	rate := limiter.Rate{Period: time.Second, Limit: cfg.RequestsPerSecond}
	rl := limiter.New(store, rate)

	r := &HTTPRelay{
		name:       cfg.Name,
		bundleURL:  cfg.BundleURL,
		privateURL: cfg.PrivateURL,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		limiter:    rl,
		now:        func() uint64 { return uint64(time.Now().UnixNano()) },
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenBackoff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("relay breaker state change",
					zap.String("relay", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			}
		},
	})

	return r, nil
}

func (r *HTTPRelay) Name() string { return r.name }

func gzipCompress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *HTTPRelay) post(ctx context.Context, url string, payload []byte) error {
	ctxKey := r.name
	lctx, err := r.limiter.Get(ctx, ctxKey)
	if err != nil {
		return fmt.Errorf("relay %s: rate limiter: %w", r.name, err)
	}
	if lctx.Reached {
		return fmt.Errorf("relay %s: rate limit reached", r.name)
	}

	compressed, err := gzipCompress(payload)
	if err != nil {
		return fmt.Errorf("relay %s: compress bundle: %w", r.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Encoding", "gzip")
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("relay %s: status %d", r.name, resp.StatusCode)
	}
	return nil
}

// SubmitBundle submits a bundle payload, returning a correlation id
// (ksuid, sortable and time-embedded so a dashboard can order
// submissions without a separate timestamp field).
func (r *HTTPRelay) SubmitBundle(ctx context.Context, bundle []byte) (string, error) {
	id := ksuid.New().String()
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.post(ctx, r.bundleURL, bundle)
	})
	r.recordOutcome(err, r.now())
	if err != nil {
		return "", err
	}
	return id, nil
}

// SubmitPrivate submits a raw signed transaction to the private
// mempool endpoint, returning a correlation id (a plain UUID; no
// ordering requirement for single-tx submissions).
func (r *HTTPRelay) SubmitPrivate(ctx context.Context, rawTx []byte) (string, error) {
	id := uuid.NewString()
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.post(ctx, r.privateURL, rawTx)
	})
	r.recordOutcome(err, r.now())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *HTTPRelay) recordOutcome(err error, nowNs uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failuresInWindow++
		return
	}
	r.failuresInWindow = 0
	r.lastSuccessNs = nowNs
}

// Health reports the relay's current connection state.
func (r *HTTPRelay) Health() Health {
	r.mu.Lock()
	failures := r.failuresInWindow
	lastSuccess := r.lastSuccessNs
	r.mu.Unlock()

	state := r.breaker.State()
	return Health{
		Connected:        state != gobreaker.StateOpen,
		LastSuccessNs:    lastSuccess,
		FailuresInWindow: failures,
		BreakerOpen:      state == gobreaker.StateOpen,
	}
}
