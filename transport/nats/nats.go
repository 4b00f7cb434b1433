// Package nats provides the core NATS transport. Subscribers join a queue
// group so each envelope is converted by exactly one running instance.
package nats

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"

	"github.com/drblury/csvflow/transport"
)

const TransportName = "nats"

// QueueGroupPrefix prefixes the per-topic queue group.
const QueueGroupPrefix = "csvflow"

var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

func init() {
	transport.Register(TransportName, Build)
}

func connectionOptions() []nc.Option {
	return []nc.Option{
		nc.Name("csvflow"),
		nc.MaxReconnects(-1),
	}
}

func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	url := cfg.GetNATSURL()
	if url == "" {
		return transport.Transport{}, errors.New("nats: URL is required")
	}
	marshaler := &nats.NATSMarshaler{}
	coreOnly := nats.JetStreamConfig{Disabled: true}

	publisher, err := PublisherFactory(nats.PublisherConfig{
		URL:         url,
		NatsOptions: connectionOptions(),
		Marshaler:   marshaler,
		JetStream:   coreOnly,
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(nats.SubscriberConfig{
		URL:              url,
		NatsOptions:      connectionOptions(),
		QueueGroupPrefix: QueueGroupPrefix,
		Unmarshaler:      marshaler,
		JetStream:        coreOnly,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
