package runtime

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/csvflow/internal/envelope"
	errspkg "github.com/drblury/csvflow/internal/runtime/errors"
	metadatapkg "github.com/drblury/csvflow/internal/runtime/metadata"
)

// PublishEnvelope encodes env and publishes it to topic. Extra metadata, such
// as a correlation ID, is added to the envelope headers.
func PublishEnvelope(ctx context.Context, publisher message.Publisher, topic string, env *envelope.Envelope, extra metadatapkg.Metadata) error {
	if publisher == nil {
		return errspkg.ErrPublisherRequired
	}
	if topic == "" {
		return errspkg.ErrConsumeQueueRequired
	}
	if env == nil {
		return errspkg.ErrEnvelopeRequired
	}

	msg, err := envelope.ToMessage(env)
	if err != nil {
		return err
	}
	metadatapkg.Apply(msg, extra)
	if ctx != nil {
		msg.SetContext(ctx)
	}
	return publisher.Publish(topic, msg)
}

// SubmitEnvelope queues env for conversion on the consume queue.
func (s *Service) SubmitEnvelope(ctx context.Context, env *envelope.Envelope, extra metadatapkg.Metadata) error {
	if s == nil {
		return errors.New("csvflow: service is nil")
	}
	return PublishEnvelope(ctx, s.publisher, s.Conf.ConsumeQueue, env, extra)
}
