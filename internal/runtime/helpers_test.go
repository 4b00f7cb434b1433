package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	"github.com/drblury/csvflow/internal/convert"
	"github.com/drblury/csvflow/internal/envelope"
	configpkg "github.com/drblury/csvflow/internal/runtime/config"
	loggingpkg "github.com/drblury/csvflow/internal/runtime/logging"
)

type testPublisher struct {
	mu       sync.Mutex
	messages map[string][]*message.Message
	err      error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.messages == nil {
		p.messages = make(map[string][]*message.Message)
	}
	p.messages[topic] = append(p.messages[topic], messages...)
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) On(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.messages[topic]...)
}

type testSubscriber struct{}

func (testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (testSubscriber) Close() error { return nil }

// sampleEnvelope carries two columns, a STRING and an INTEGER.
func sampleEnvelope(id, csv string) *envelope.Envelope {
	return &envelope.Envelope{
		ID:       id,
		Position: "7",
		Topic:    "kortdata",
		Items: map[string]envelope.Item{
			envelope.ItemEntry: {
				Data: []byte(csv),
				Metadata: map[string]any{
					"fields": []any{
						map[string]any{"mapped-name": "name", "data-type": "STRING"},
						map[string]any{"mapped-name": "count", "data-type": "INTEGER"},
					},
				},
			},
		},
		Manifest: map[string]any{"source": "sftp"},
	}
}

func initialisedConverter(t *testing.T) *convert.Converter {
	t.Helper()
	c := convert.New(convert.Options{})
	require.NoError(t, c.Init([]*envelope.Envelope{sampleEnvelope("sample", "")}))
	return c
}

// newTestService builds a Service around a bare router, without transport
// or default middlewares.
func newTestService(t *testing.T) *Service {
	t.Helper()
	log := loggingpkg.Discard()
	wmLogger := loggingpkg.NewWatermillAdapter(log)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	require.NoError(t, err)
	return &Service{
		Conf: &configpkg.Config{
			ConsumeQueue: "envelopes",
			PublishQueue: "converted",
		},
		Logger:     log,
		wmLogger:   wmLogger,
		router:     router,
		converter:  initialisedConverter(t),
		publisher:  &testPublisher{},
		subscriber: testSubscriber{},
	}
}

func envelopeMessage(t *testing.T, env *envelope.Envelope) *message.Message {
	t.Helper()
	msg, err := envelope.ToMessage(env)
	require.NoError(t, err)
	return msg
}
