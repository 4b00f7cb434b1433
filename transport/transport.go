// Package transport connects the csvflow service to its message
// infrastructure. Each transport lives in its own sub-package and registers a
// Builder under the name used for Config.PubSubSystem.
package transport

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// DefaultName is used when the configuration does not name a transport.
const DefaultName = "channel"

// Transport pairs the publisher for conversion results with the subscriber
// for incoming envelopes.
type Transport struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder creates a transport from configuration.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Transport, error)

// Config is the subset of the service configuration that transports read.
type Config interface {
	GetPubSubSystem() string

	GetKafkaBrokers() []string
	GetKafkaClientID() string
	GetKafkaConsumerGroup() string

	GetRabbitMQURL() string

	GetNATSURL() string

	GetHTTPServerAddress() string
	GetHTTPPublisherURL() string

	GetIOFile() string

	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	// GetAWSEndpoint optionally points to LocalStack or another emulator.
	GetAWSEndpoint() string
}
