// Package http provides the HTTP transport: envelopes are POSTed to
// <server address>/<topic> and results are POSTed to
// <publisher URL>/<topic>.
package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/csvflow/transport"
)

const TransportName = "http"

var PublisherFactory = func(config http.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return http.NewPublisher(config, logger)
}

var SubscriberFactory = func(addr string, config http.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return http.NewSubscriber(addr, config, logger)
}

func init() {
	transport.Register(TransportName, Build)
}

// TopicURL joins the publisher base URL and the topic.
func TopicURL(base, topic string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(topic, "/")
}

func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	serverAddr := cfg.GetHTTPServerAddress()
	publisherURL := cfg.GetHTTPPublisherURL()
	if publisherURL == "" {
		return transport.Transport{}, errors.New("http: publisher URL is required")
	}

	publisher, err := PublisherFactory(http.PublisherConfig{
		MarshalMessageFunc: func(topic string, msg *message.Message) (*nethttp.Request, error) {
			return http.DefaultMarshalMessageFunc(TopicURL(publisherURL, topic), msg)
		},
	}, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	subscriber, err := SubscriberFactory(serverAddr, http.SubscriberConfig{
		UnmarshalMessageFunc: http.DefaultUnmarshalMessageFunc,
	}, logger)
	if err != nil {
		_ = publisher.Close()
		return transport.Transport{}, err
	}

	return transport.Transport{
		Publisher:  publisher,
		Subscriber: &serverStartingSubscriber{Subscriber: subscriber, logger: logger},
	}, nil
}

type httpServer interface {
	StartHTTPServer() error
}

// serverStartingSubscriber starts the HTTP server once the first topic is
// subscribed; the watermill HTTP subscriber only routes topics registered
// before the server starts.
type serverStartingSubscriber struct {
	message.Subscriber
	logger watermill.LoggerAdapter
	once   sync.Once
}

func (s *serverStartingSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	msgs, err := s.Subscriber.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}
	server, ok := s.Subscriber.(httpServer)
	if !ok {
		return msgs, nil
	}
	s.once.Do(func() {
		go func() {
			if err := server.StartHTTPServer(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
				s.logger.Error("HTTP subscriber server stopped", err, watermill.LogFields{"topic": topic})
			}
		}()
	})
	return msgs, nil
}
