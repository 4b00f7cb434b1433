package runtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/proto"

	"github.com/drblury/csvflow/internal/convert"
	"github.com/drblury/csvflow/internal/convert/intercept"
	"github.com/drblury/csvflow/internal/envelope"
	configpkg "github.com/drblury/csvflow/internal/runtime/config"
	errspkg "github.com/drblury/csvflow/internal/runtime/errors"
	idspkg "github.com/drblury/csvflow/internal/runtime/ids"
	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/csvflow/internal/runtime/metadata"
)

// ConverterHandlerName names the router handler that converts envelopes.
const ConverterHandlerName = "csvflow-converter"

// Content types of published results.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/x-protobuf"
)

func (s *Service) registerConverterHandler() error {
	if s.converter == nil {
		return errspkg.ErrConverterRequired
	}
	if s.publisher == nil {
		return errspkg.ErrPublisherRequired
	}

	stats := newHandlerStats(s.getResourceTracker())
	info := &HandlerInfo{
		Name:         ConverterHandlerName,
		ConsumeQueue: s.Conf.ConsumeQueue,
		PublishQueue: s.Conf.PublishQueue,
		Stats:        stats,
	}
	s.handlersMu.Lock()
	s.handlers = append(s.handlers, info)
	s.handlersMu.Unlock()

	s.router.AddHandler(
		ConverterHandlerName,
		s.Conf.ConsumeQueue,
		s.subscriber,
		s.Conf.PublishQueue,
		s.publisher,
		s.handleEnvelope(stats),
	)
	return nil
}

// Handlers returns the registered handlers with their live stats.
func (s *Service) Handlers() []*HandlerInfo {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	out := make([]*HandlerInfo, len(s.handlers))
	copy(out, s.handlers)
	return out
}

func (s *Service) handleEnvelope(stats *HandlerStats) message.HandlerFunc {
	classifier := s.getErrorClassifier()
	topic := s.converter.Topic()

	return func(msg *message.Message) ([]*message.Message, error) {
		hc := ConversionContext{
			HandlerName:   ConverterHandlerName,
			Topic:         s.Conf.ConsumeQueue,
			MessageUUID:   msg.UUID,
			EnvelopeID:    msg.Metadata.Get(metadatapkg.KeyEnvelopeID),
			CorrelationID: msg.Metadata.Get(metadatapkg.KeyCorrelationID),
			Context:       msg.Context(),
			StartedAt:     time.Now(),
		}
		s.hooks.start(hc)

		out, res, err := s.convertMessage(msg)
		hc.Duration = time.Since(hc.StartedAt)

		if err != nil {
			stats.record(hc.Duration, 0, err, classifier)
			s.metrics.RecordFailed(topic, classifier(err))
			s.hooks.failed(hc, err)
			return nil, err
		}

		stats.record(hc.Duration, res.Rows, nil, classifier)
		s.metrics.RecordConverted(topic, res.Rows)
		s.hooks.converted(hc, res)
		return []*message.Message{out}, nil
	}
}

// convertMessage decodes the envelope carried by msg, converts it and encodes
// the result message. Input that can never convert or encode is reported as
// an *UnprocessableEventError.
func (s *Service) convertMessage(msg *message.Message) (*message.Message, *convert.Result, error) {
	env, err := envelope.FromMessage(msg)
	if err != nil {
		return nil, nil, &UnprocessableEventError{
			EnvelopeID: msg.Metadata.Get(metadatapkg.KeyEnvelopeID),
			Err:        err,
		}
	}

	res, err := s.converter.Convert(msg.Context(), env)
	if err != nil {
		if isTransientConversionError(err) {
			return nil, nil, err
		}
		return nil, nil, &UnprocessableEventError{EnvelopeID: env.ID, Err: err}
	}

	out, err := s.resultMessage(msg, env, res)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

// isTransientConversionError reports failures that may succeed on retry:
// a failing interceptor stage, such as an unreachable pseudonymizer, or a
// cancelled context.
func isTransientConversionError(err error) bool {
	var stageErr *intercept.Error
	return errors.As(err, &stageErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (s *Service) resultMessage(in *message.Message, env *envelope.Envelope, res *convert.Result) (*message.Message, error) {
	payload, contentType, err := encodeResult(res, s.Conf.OutputFormatOrDefault())
	if err != nil {
		return nil, &UnprocessableEventError{
			EnvelopeID: env.ID,
			Err:        fmt.Errorf("encode result %s: %w", env.PosAndID(), err),
		}
	}

	out := message.NewMessage(idspkg.CreateULID(), payload)
	md := env.Headers().WithAll(metadatapkg.New(
		metadatapkg.KeyContentType, contentType,
		metadatapkg.KeyRows, strconv.Itoa(res.Rows),
		metadatapkg.KeySchemaNamespace, res.Schema.Namespace,
	))
	if cid := in.Metadata.Get(metadatapkg.KeyCorrelationID); cid != "" {
		md[metadatapkg.KeyCorrelationID] = cid
	}
	metadatapkg.Apply(out, md)
	out.SetContext(in.Context())
	return out, nil
}

func encodeResult(res *convert.Result, format string) ([]byte, string, error) {
	switch format {
	case configpkg.OutputProtobuf:
		st, err := res.ToStruct()
		if err != nil {
			return nil, "", err
		}
		payload, err := proto.Marshal(st)
		return payload, ContentTypeProtobuf, err
	default:
		payload, err := jsoncodec.Marshal(res)
		return payload, ContentTypeJSON, err
	}
}
