// Package broadcast implements a lock-free-feeding telemetry fanout
// distinct from the synchronous, in-order Event Bus (internal/events):
// it carries the PerformanceSnapshot/RiskMetrics stream to subscribers
// that can tolerate buffering and async delivery, built on
// github.com/ThreeDotsLabs/watermill's in-process gochannel transport,
// with an optional NATS-backed publisher for fanning the same stream
// out to other processes.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

const (
	topicMetrics  = "mevcore.metrics"
	topicAlerts   = "mevcore.alerts"
	bufferSize    = 1024
)

// Bus fans telemetry out over an in-process pub/sub channel. Unlike
// the Event Bus, publishes here never block on subscriber work.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger *zap.Logger
	nats   message.Publisher // optional, nil unless WithNATS is used
}

// New returns a Bus backed by an in-process gochannel transport.
func New(logger *zap.Logger) *Bus {
	wmLogger := watermill.NewStdLogger(false, false)
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: int64(bufferSize),
			Persistent:          false,
		},
		wmLogger,
	)
	return &Bus{pubsub: pubsub, logger: logger}
}

// WithNATS attaches an additional publisher (typically a
// watermill-nats Publisher) that every PublishMetrics/PublishAlert
// call also fans out to, for cross-process telemetry consumers.
func (b *Bus) WithNATS(pub message.Publisher) {
	b.nats = pub
}

// SubscribeMetrics returns a channel of raw JSON-encoded
// ringmetrics.PerformanceSnapshot payloads. The channel closes when
// ctx is cancelled.
func (b *Bus) SubscribeMetrics(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topicMetrics)
}

// SubscribeAlerts returns a channel of raw JSON-encoded
// riskmgr.RiskAlert payloads.
func (b *Bus) SubscribeAlerts(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topicAlerts)
}

// PublishMetrics fans out a metrics snapshot. Marshal failures are
// logged and swallowed: telemetry must never block or fail the
// recompute path that produced the snapshot.
func (b *Bus) PublishMetrics(snapshot interface{}) {
	b.publish(topicMetrics, snapshot)
}

// PublishAlert fans out a risk alert.
func (b *Bus) PublishAlert(alert interface{}) {
	b.publish(topicAlerts, alert)
}

func (b *Bus) publish(topic string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("broadcast: marshal payload", zap.String("topic", topic), zap.Error(err))
		}
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), raw)

	if err := b.pubsub.Publish(topic, msg); err != nil {
		if b.logger != nil {
			b.logger.Error("broadcast: publish", zap.String("topic", topic), zap.Error(err))
		}
	}
	if b.nats != nil {
		if err := b.nats.Publish(topic, msg); err != nil {
			if b.logger != nil {
				b.logger.Error("broadcast: nats publish", zap.String("topic", topic), zap.Error(err))
			}
		}
	}
}

// Close releases the underlying gochannel transport.
func (b *Bus) Close() error {
	if err := b.pubsub.Close(); err != nil {
		return fmt.Errorf("broadcast: close: %w", err)
	}
	return nil
}
