// Package io provides a file-backed transport. Every message is stored as one
// JSON line tagged with its topic, so a single file can hold the incoming
// envelopes and the conversion results side by side.
package io

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/drblury/csvflow/internal/runtime/jsoncodec"
	"github.com/drblury/csvflow/transport"
)

const TransportName = "io"

// PollInterval is how long the subscriber waits at end of file before
// checking for appended lines.
var PollInterval = 50 * time.Millisecond

// ErrFileRequired is returned by Build when no file is configured.
var ErrFileRequired = errors.New("io transport: file is required")

var PublisherFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return &Publisher{filePath: filePath, logger: logger}, nil
}

var SubscriberFactory = func(filePath string, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return &Subscriber{filePath: filePath, logger: logger}, nil
}

func init() {
	transport.Register(TransportName, Build)
}

func Build(ctx context.Context, cfg transport.Config, logger watermill.LoggerAdapter) (transport.Transport, error) {
	filePath := cfg.GetIOFile()
	if filePath == "" {
		return transport.Transport{}, ErrFileRequired
	}

	pub, err := PublisherFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}
	sub, err := SubscriberFactory(filePath, logger)
	if err != nil {
		return transport.Transport{}, err
	}

	return transport.Transport{Publisher: pub, Subscriber: sub}, nil
}

// line is the stored form of one message.
type line struct {
	Topic    string            `json:"topic"`
	UUID     string            `json:"uuid"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Payload  []byte            `json:"payload"`
}

// Publisher appends messages to the file.
type Publisher struct {
	filePath string
	logger   watermill.LoggerAdapter

	mu     sync.Mutex
	closed bool
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("io transport: publisher closed")
	}

	f, err := os.OpenFile(p.filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("io transport: open %s: %w", p.filePath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, msg := range messages {
		b, err := jsoncodec.Marshal(line{
			Topic:    topic,
			UUID:     msg.UUID,
			Metadata: msg.Metadata,
			Payload:  msg.Payload,
		})
		if err != nil {
			return err
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Subscriber tails the file and delivers the lines of one topic, waiting for
// each message to be acked or nacked before reading the next.
type Subscriber struct {
	filePath string
	logger   watermill.LoggerAdapter
}

func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	f, err := os.OpenFile(s.filePath, os.O_RDONLY|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("io transport: open %s: %w", s.filePath, err)
	}

	out := make(chan *message.Message)
	go func() {
		defer close(out)
		defer f.Close()
		s.tail(ctx, f, topic, out)
	}()
	return out, nil
}

func (s *Subscriber) Close() error {
	return nil
}

func (s *Subscriber) tail(ctx context.Context, f *os.File, topic string, out chan<- *message.Message) {
	reader := bufio.NewReader(f)
	var pending []byte

	for {
		if ctx.Err() != nil {
			return
		}

		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if errors.Is(err, io.EOF) {
			// partial line: keep it and wait for the writer to finish
			select {
			case <-ctx.Done():
				return
			case <-time.After(PollInterval):
			}
			continue
		}
		if err != nil {
			s.logger.Error("Failed to read io transport file", err, watermill.LogFields{"file": s.filePath})
			return
		}

		raw := pending
		pending = nil
		if !s.deliver(ctx, out, raw, topic) {
			return
		}
	}
}

func (s *Subscriber) deliver(ctx context.Context, out chan<- *message.Message, raw []byte, topic string) bool {
	var stored line
	if err := jsoncodec.Unmarshal(raw, &stored); err != nil {
		s.logger.Error("Skipping malformed io transport line", err, watermill.LogFields{"file": s.filePath})
		return true
	}
	if stored.Topic != topic {
		return true
	}

	msg := message.NewMessage(stored.UUID, stored.Payload)
	if stored.Metadata != nil {
		msg.Metadata = stored.Metadata
	}

	for {
		select {
		case out <- msg:
		case <-ctx.Done():
			return false
		}

		select {
		case <-msg.Acked():
			return true
		case <-msg.Nacked():
			s.logger.Debug("Message nacked, redelivering", watermill.LogFields{"uuid": msg.UUID})
			msg = msg.Copy()
			select {
			case <-time.After(PollInterval):
			case <-ctx.Done():
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}
