// Package kafka provides the Kafka transport. Results are keyed by envelope
// ID so every conversion of one envelope lands on the same partition.
package kafka

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/csvflow/internal/runtime/metadata"
	"github.com/drblury/csvflow/transport"
)

const TransportName = "kafka"

// DefaultClientID identifies csvflow to the brokers when none is configured.
const DefaultClientID = "csvflow"

var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	transport.Register(TransportName, Build)
}

// PartitionKey keys a message by its envelope ID, falling back to the
// message UUID for messages that carry no envelope.
func PartitionKey(topic string, msg *message.Message) (string, error) {
	if id := msg.Metadata.Get(metadata.KeyEnvelopeID); id != "" {
		return id, nil
	}
	return msg.UUID, nil
}

func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	brokers := cfg.GetKafkaBrokers()
	if len(brokers) == 0 {
		return transport.Transport{}, errors.New("kafka: brokers are required")
	}
	clientID := cfg.GetKafkaClientID()
	if clientID == "" {
		clientID = DefaultClientID
	}

	marshaler := kafka.NewWithPartitioningMarshaler(PartitionKey)

	pubSarama := kafka.DefaultSaramaSyncPublisherConfig()
	pubSarama.ClientID = clientID
	publisher, err := PublisherFactory(kafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             marshaler,
		OverwriteSaramaConfig: pubSarama,
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	subSarama := kafka.DefaultSaramaSubscriberConfig()
	subSarama.ClientID = clientID
	subscriber, err := SubscriberFactory(kafka.SubscriberConfig{
		Brokers:               brokers,
		Unmarshaler:           marshaler,
		ConsumerGroup:         cfg.GetKafkaConsumerGroup(),
		OverwriteSaramaConfig: subSarama,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: publisher, Subscriber: subscriber}, nil
}
