// Package consumer projects note and commit change events from Kafka into Postgres.
package consumer

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/2tpaud/commit-push/internal/events"
)

// frameHeaderLen is the registry framing ahead of the JSON body: magic byte plus schema id.
const frameHeaderLen = 5

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler applies one routed change event. Returning a *SkipError acknowledges
// the event without a write; any other error leaves the offset uncommitted.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a framed change event that passed header validation and topic routing.
type Message struct {
	Topic     string
	Kind      events.Kind
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	UserID    string
	SchemaID  int
	Payload   json.RawMessage
}

// SkipError marks an event that can never be applied. The processor commits it
// and counts it under Reason.
type SkipError struct {
	Reason string
	Err    error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *SkipError) Unwrap() error { return e.Err }

// Skip wraps err as a SkipError with the given reason.
func Skip(reason string, err error) error {
	return &SkipError{Reason: reason, Err: err}
}

// frameError is a record that never reached the handler because its framing or
// headers are unusable.
type frameError struct {
	reason string
	err    error
}

func (e *frameError) Error() string {
	return fmt.Sprintf("%s: %v", e.reason, e.err)
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors and skipped events.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRoutes replaces the topic to kind table. Records from topics missing in
// routes are skipped.
func WithRoutes(routes map[string]events.Kind) Option {
	return func(p *Processor) {
		p.routes = routes
	}
}

// Processor pulls change events from Kafka, routes them by topic and hands them
// to a Handler. Offsets are committed for every record except those whose
// handler failed with a retryable error.
type Processor struct {
	reader  Reader
	handler Handler
	routes  map[string]events.Kind
	logger  *log.Logger
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		routes:  events.DefaultRoutes(),
		logger:  log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}
		p.process(ctx, record)
	}
}

func (p *Processor) process(ctx context.Context, record kafka.Message) {
	msg, err := decodeMessage(record)
	if err != nil {
		reason := "undecodable"
		var fe *frameError
		if errors.As(err, &fe) {
			reason = fe.reason
		}
		recordDecodeError(record.Topic, reason)
		p.logger.Printf("dropping record (topic=%s, partition=%d, offset=%d): %v", record.Topic, record.Partition, record.Offset, err)
		p.commit(ctx, record)
		return
	}

	err = p.route(&msg)
	if err == nil {
		err = p.handler.Handle(ctx, msg)
	}

	var skip *SkipError
	switch {
	case err == nil:
		if p.commit(ctx, record) {
			recordProcessed(msg)
		}
	case errors.As(err, &skip):
		recordSkipped(msg.Topic, msg.EventType, skip.Reason)
		p.logger.Printf("skipping event (type=%s, topic=%s, offset=%d, reason=%s): %v", msg.EventType, msg.Topic, msg.Offset, skip.Reason, skip.Err)
		p.commit(ctx, record)
	default:
		recordHandlerError(msg)
		p.logger.Printf("handler error (type=%s, user=%s, offset=%d): %v", msg.EventType, msg.UserID, msg.Offset, err)
	}
}

// route resolves the kind of msg's topic and rejects event types that belong
// to another kind.
func (p *Processor) route(msg *Message) error {
	topicKind, ok := p.routes[msg.Topic]
	if !ok {
		return Skip("unknown_topic", fmt.Errorf("topic %q is not routed", msg.Topic))
	}
	eventKind, ok := events.KindOf(msg.EventType)
	if !ok {
		return Skip("unknown_type", fmt.Errorf("unhandled event type %q", msg.EventType))
	}
	if eventKind != topicKind {
		return Skip("wrong_topic", fmt.Errorf("%s event on %s topic %q", eventKind, topicKind, msg.Topic))
	}
	msg.Kind = topicKind
	return nil
}

func (p *Processor) commit(ctx context.Context, record kafka.Message) bool {
	if err := p.reader.CommitMessages(ctx, record); err != nil {
		p.logger.Printf("commit error (topic=%s, offset=%d): %v", record.Topic, record.Offset, err)
		return false
	}
	return true
}

// decodeMessage unwraps the registry framing (magic byte 0, big-endian schema
// id, JSON body) and validates the routing headers. Every change event names
// its author in user_id.
func decodeMessage(record kafka.Message) (Message, error) {
	if len(record.Value) < frameHeaderLen {
		return Message{}, &frameError{"short_frame", fmt.Errorf("value is %d bytes", len(record.Value))}
	}
	if record.Value[0] != 0 {
		return Message{}, &frameError{"unknown_magic", fmt.Errorf("magic byte %d", record.Value[0])}
	}

	eventType := headerValue(record, "event_type")
	if eventType == "" {
		return Message{}, &frameError{"missing_event_type", errors.New("no event_type header")}
	}
	userID := headerValue(record, "user_id")
	if userID == "" {
		return Message{}, &frameError{"missing_user", errors.New("no user_id header")}
	}
	if _, err := uuid.Parse(userID); err != nil {
		return Message{}, &frameError{"invalid_user", fmt.Errorf("user_id %q: %w", userID, err)}
	}

	return Message{
		Topic:     record.Topic,
		Partition: record.Partition,
		Offset:    record.Offset,
		Timestamp: record.Time,
		EventType: eventType,
		UserID:    userID,
		SchemaID:  int(binary.BigEndian.Uint32(record.Value[1:frameHeaderLen])),
		Payload:   json.RawMessage(append([]byte(nil), record.Value[frameHeaderLen:]...)),
	}, nil
}

func headerValue(record kafka.Message, key string) string {
	for _, header := range record.Headers {
		if header.Key == key {
			return string(header.Value)
		}
	}
	return ""
}
