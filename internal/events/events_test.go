package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishThreatInRegistrationOrder(t *testing.T) {
	b := New(nil)
	var order []int
	b.SubscribeThreats(func(ThreatEvent) { order = append(order, 1) })
	b.SubscribeThreats(func(ThreatEvent) { order = append(order, 2) })
	b.PublishThreat(ThreatEvent{OpportunityID: "mev_1"})
	assert.Equal(t, []int{1, 2}, order)
}

func TestPanickingHandlerDoesNotStopFanout(t *testing.T) {
	b := New(nil)
	second := false
	b.SubscribeAlerts(func(AlertEvent) { panic("boom") })
	b.SubscribeAlerts(func(AlertEvent) { second = true })
	b.PublishAlert(AlertEvent{Type: "TEST"})
	assert.True(t, second)
}

func TestNoSubscribersIsNoOp(t *testing.T) {
	b := New(nil)
	assert.NotPanics(t, func() { b.PublishMetrics(MetricsEvent{}) })
}
