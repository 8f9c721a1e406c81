package broadcast

import (
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
)

// NewNATSPublisher returns a watermill Publisher backed by NATS core
// pub/sub, for attaching to a Bus via WithNATS when telemetry needs to
// reach consumers outside this process.
func NewNATSPublisher(url string) (message.Publisher, error) {
	return nats.NewPublisher(
		nats.PublisherConfig{
			URL:       url,
			Marshaler: &nats.GobMarshaler{},
		},
		watermill.NewStdLogger(false, false),
	)
}
