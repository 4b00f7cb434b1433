package http

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	watermillhttp "github.com/ThreeDotsLabs/watermill-http/v2/pkg/http"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/csvflow/transport"
	"github.com/drblury/csvflow/transport/transporttest"
)

type startableSubscriber struct {
	transporttest.Subscriber
	started chan struct{}
	starts  atomic.Int32
}

func (s *startableSubscriber) StartHTTPServer() error {
	if s.starts.Add(1) == 1 {
		close(s.started)
	}
	return nil
}

func stubFactories(t *testing.T, sub message.Subscriber, pubErr, subErr error) (*transporttest.Publisher, *watermillhttp.PublisherConfig) {
	t.Helper()
	origPub, origSub := PublisherFactory, SubscriberFactory
	t.Cleanup(func() {
		PublisherFactory = origPub
		SubscriberFactory = origSub
	})

	pub := &transporttest.Publisher{}
	var got watermillhttp.PublisherConfig
	PublisherFactory = func(config watermillhttp.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
		got = config
		return pub, pubErr
	}
	SubscriberFactory = func(addr string, config watermillhttp.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
		assert.Equal(t, ":8090", addr)
		return sub, subErr
	}
	return pub, &got
}

var testConfig = &transporttest.Config{
	HTTPServerAddress: ":8090",
	HTTPPublisherURL:  "http://results.local/ingest/",
}

func TestRegisteredWithDefaultRegistry(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
}

func TestBuildPublishesToTopicURL(t *testing.T) {
	_, got := stubFactories(t, transporttest.Subscriber{}, nil, nil)

	_, err := Build(context.Background(), testConfig, watermill.NopLogger{})
	require.NoError(t, err)

	req, err := got.MarshalMessageFunc("converted", message.NewMessage("m1", []byte("{}")))
	require.NoError(t, err)
	assert.Equal(t, "http://results.local/ingest/converted", req.URL.String())
}

func TestSubscribeStartsServerOnce(t *testing.T) {
	sub := &startableSubscriber{started: make(chan struct{})}
	stubFactories(t, sub, nil, nil)

	tr, err := Build(context.Background(), testConfig, watermill.NopLogger{})
	require.NoError(t, err)

	_, err = tr.Subscriber.Subscribe(context.Background(), "envelopes")
	require.NoError(t, err)
	_, err = tr.Subscriber.Subscribe(context.Background(), "more")
	require.NoError(t, err)

	<-sub.started
	assert.Equal(t, int32(1), sub.starts.Load())
}

func TestBuildErrors(t *testing.T) {
	_, err := Build(context.Background(), &transporttest.Config{}, watermill.NopLogger{})
	assert.Error(t, err)

	stubFactories(t, nil, errors.New("publisher error"), nil)
	_, err = Build(context.Background(), testConfig, watermill.NopLogger{})
	assert.ErrorContains(t, err, "publisher error")

	pub, _ := stubFactories(t, nil, nil, errors.New("subscriber error"))
	_, err = Build(context.Background(), testConfig, watermill.NopLogger{})
	assert.ErrorContains(t, err, "subscriber error")
	assert.True(t, pub.Closed)
}

func TestTopicURL(t *testing.T) {
	assert.Equal(t, "http://h/a/t", TopicURL("http://h/a", "t"))
	assert.Equal(t, "http://h/a/t", TopicURL("http://h/a/", "/t"))
}
