package consumer

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/2tpaud/commit-push/internal/events"
)

const testUserID = "7b0e3c6a-4f2d-4b8e-9c1a-2d3e4f5a6b7c"

func framed(schemaID uint32, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], schemaID)
	copy(value[5:], payload)
	return value
}

func changeMessage(topic, eventType string, offset int64, value []byte) kafka.Message {
	return kafka.Message{
		Topic:  topic,
		Offset: offset,
		Time:   time.Now().UTC(),
		Value:  value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "user_id", Value: []byte(testUserID)},
		},
	}
}

func runProcessor(t *testing.T, handler Handler, records ...kafka.Message) (*stubReader, string) {
	t.Helper()
	reader := &stubReader{messages: records}
	var logs bytes.Buffer
	processor := NewProcessor(reader, handler, WithLogger(log.New(&logs, "", 0)))
	require.ErrorIs(t, processor.Run(context.Background()), context.Canceled)
	return reader, logs.String()
}

func TestProcessorRoutesAndCommits(t *testing.T) {
	payload := []byte(`{"note_id":"n-1"}`)
	handler := &stubHandler{}

	reader, _ := runProcessor(t, handler, changeMessage(events.TopicNotes, events.TypeNoteCreated, 10, framed(42, payload)))

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, events.KindNote, handler.last.Kind)
	require.Equal(t, events.TypeNoteCreated, handler.last.EventType)
	require.Equal(t, testUserID, handler.last.UserID)
	require.Equal(t, events.TopicNotes, handler.last.Topic)
	require.EqualValues(t, 10, handler.last.Offset)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorLeavesOffsetOnHandlerError(t *testing.T) {
	handler := &stubHandler{err: errors.New("boom")}

	reader, logs := runProcessor(t, handler, changeMessage(events.TopicCommits, events.TypeCommitCreated, 20, framed(99, []byte(`{}`))))

	require.Equal(t, 1, handler.calls)
	require.Zero(t, reader.commitCalls)
	require.Contains(t, logs, "handler error (type=commit.created")
}

func TestProcessorCommitsHandlerSkips(t *testing.T) {
	handler := &stubHandler{err: Skip("missing_timestamp", errors.New("no created_at"))}

	reader, logs := runProcessor(t, handler, changeMessage(events.TopicCommits, events.TypeCommitCreated, 21, framed(1, []byte(`{}`))))

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Contains(t, logs, "reason=missing_timestamp")
}

func TestProcessorRejectsEventsOutsideTheirTopic(t *testing.T) {
	cases := map[string]struct {
		record kafka.Message
		reason string
	}{
		"commit on note topic": {
			record: changeMessage(events.TopicNotes, events.TypeCommitCreated, 1, framed(1, []byte(`{}`))),
			reason: "wrong_topic",
		},
		"note on commit topic": {
			record: changeMessage(events.TopicCommits, events.TypeNoteDeleted, 2, framed(1, []byte(`{}`))),
			reason: "wrong_topic",
		},
		"unknown type": {
			record: changeMessage(events.TopicNotes, "note.archived", 3, framed(1, []byte(`{}`))),
			reason: "unknown_type",
		},
		"unrouted topic": {
			record: changeMessage("billing_events", events.TypeNoteCreated, 4, framed(1, []byte(`{}`))),
			reason: "unknown_topic",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler := &stubHandler{}
			reader, logs := runProcessor(t, handler, tc.record)

			require.Zero(t, handler.calls)
			require.Equal(t, 1, reader.commitCalls)
			require.Contains(t, logs, "reason="+tc.reason)
		})
	}
}

func TestProcessorHonoursCustomRoutes(t *testing.T) {
	handler := &stubHandler{}
	reader := &stubReader{messages: []kafka.Message{
		changeMessage("prod.commits", events.TypeCommitDeleted, 5, framed(1, []byte(`{}`))),
	}}

	processor := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithRoutes(map[string]events.Kind{"prod.commits": events.KindCommit}))
	require.ErrorIs(t, processor.Run(context.Background()), context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, events.KindCommit, handler.last.Kind)
}

func TestProcessorCommitsUndecodableRecords(t *testing.T) {
	noType := changeMessage(events.TopicNotes, events.TypeNoteCreated, 1, framed(1, []byte(`{}`)))
	noType.Headers = noType.Headers[1:]

	noUser := changeMessage(events.TopicNotes, events.TypeNoteCreated, 1, framed(1, []byte(`{}`)))
	noUser.Headers = noUser.Headers[:1]

	badUser := changeMessage(events.TopicNotes, events.TypeNoteCreated, 1, framed(1, []byte(`{}`)))
	badUser.Headers[1].Value = []byte("user-7")

	badMagic := framed(1, []byte(`{}`))
	badMagic[0] = 1

	cases := map[string]struct {
		record kafka.Message
		reason string
	}{
		"short value":   {changeMessage(events.TopicNotes, events.TypeNoteCreated, 1, []byte{0, 0}), "short_frame"},
		"unknown magic": {changeMessage(events.TopicNotes, events.TypeNoteCreated, 1, badMagic), "unknown_magic"},
		"missing type":  {noType, "missing_event_type"},
		"missing user":  {noUser, "missing_user"},
		"non uuid user": {badUser, "invalid_user"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := decodeMessage(tc.record)
			var fe *frameError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tc.reason, fe.reason)

			handler := &stubHandler{}
			reader, logs := runProcessor(t, handler, tc.record)

			require.Zero(t, handler.calls)
			require.Equal(t, 1, reader.commitCalls)
			require.Contains(t, logs, "dropping record")
		})
	}
}

func TestProcessorStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := &stubReader{messages: []kafka.Message{
		changeMessage(events.TopicNotes, events.TypeNoteCreated, 1, framed(1, []byte(`{}`))),
	}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, handler.calls)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

type stubHandler struct {
	calls int
	err   error
	last  Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	return h.err
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
