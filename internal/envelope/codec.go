package envelope

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"

	idspkg "github.com/drblury/csvflow/internal/runtime/ids"
	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
	metadatapkg "github.com/drblury/csvflow/internal/runtime/metadata"
)

// Headers returns the message metadata mirroring the envelope header.
func (e *Envelope) Headers() metadatapkg.Metadata {
	md := metadatapkg.New(metadatapkg.KeyEnvelopeID, e.ID)
	if e.Position != "" {
		md[metadatapkg.KeyEnvelopePosition] = e.Position
	}
	if e.Topic != "" {
		md[metadatapkg.KeyEnvelopeTopic] = e.Topic
	}
	return md
}

// Decode parses a JSON envelope. Message metadata fills header fields the
// body leaves empty. Numbers in the manifest and item metadata decode as
// json.Number so large integers pass through unchanged.
func Decode(payload []byte, md metadatapkg.Metadata) (*Envelope, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedInput)
	}
	env := &Envelope{}
	if err := jsoncodec.UnmarshalNumbers(payload, env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if env.ID == "" {
		env.ID = md[metadatapkg.KeyEnvelopeID]
	}
	if env.Position == "" {
		env.Position = md[metadatapkg.KeyEnvelopePosition]
	}
	if env.Topic == "" {
		env.Topic = md[metadatapkg.KeyEnvelopeTopic]
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// FromMessage decodes the envelope carried by msg.
func FromMessage(msg *message.Message) (*Envelope, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: nil message", ErrMalformedInput)
	}
	return Decode(msg.Payload, metadatapkg.FromWatermill(msg.Metadata))
}

// ToMessage encodes e as a Watermill message with a fresh ULID.
func ToMessage(e *Envelope) (*message.Message, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	payload, err := jsoncodec.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("envelope: encode %s: %w", e.PosAndID(), err)
	}
	msg := message.NewMessage(idspkg.CreateULID(), payload)
	msg.Metadata = metadatapkg.ToWatermill(e.Headers())
	return msg, nil
}

// LoadSamples reads sample envelopes from a file holding either a JSON array
// of envelopes or one envelope per line.
func LoadSamples(path string) ([]*Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("envelope: open samples: %w", err)
	}
	defer f.Close()
	return ReadSamples(f)
}

// ReadSamples is LoadSamples over a reader.
func ReadSamples(r io.Reader) ([]*Envelope, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("envelope: read samples: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	if raw[0] == '[' {
		var samples []*Envelope
		if err := jsoncodec.UnmarshalNumbers(raw, &samples); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		return validated(samples)
	}

	var samples []*Envelope
	for i, line := range bytes.Split(raw, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		env := &Envelope{}
		if err := jsoncodec.UnmarshalNumbers(line, env); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, i+1, err)
		}
		samples = append(samples, env)
	}
	return validated(samples)
}

func validated(samples []*Envelope) ([]*Envelope, error) {
	var errs []error
	for i, env := range samples {
		if err := env.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("sample %d: %w", i, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return samples, nil
}
