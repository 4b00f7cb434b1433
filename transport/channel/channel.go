// Package channel provides the in-memory transport used for local runs and
// tests. Envelopes and results never leave the process.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/drblury/csvflow/transport"
)

const TransportName = "channel"

// OutputBuffer is the per-subscriber channel buffer.
const OutputBuffer = 64

// Factory creates the shared pub/sub; tests may replace it.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	transport.Register(TransportName, Build)
}

// Build returns a publisher and subscriber backed by the same Go channel
// pub/sub, so results published by the converter can be consumed in-process.
func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	pub, sub := Factory(gochannel.Config{OutputChannelBuffer: OutputBuffer}, logger)
	return transport.Transport{
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}
