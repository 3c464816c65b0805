package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func framed(schemaID int, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], payload)
	return value
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"cuadre_id":"c-1","status":"approved"}`)
	msg := kafka.Message{
		Topic:     "cuadre_review_events",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     framed(42, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("cuadre.reviewed")},
			{Key: "aggregate_id", Value: []byte("c-1")},
			{Key: "schema_subject", Value: []byte("cuadre_review_events-value")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(zerolog.NewTestWriter(t))))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "cuadre.reviewed", handler.last.EventType)
	require.Equal(t, "c-1", handler.last.AggregateID)
	require.Equal(t, "cuadre_review_events-value", handler.last.SchemaSubject)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func TestProcessorSkipsCommitOnHandlerError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := kafka.Message{
		Topic:  "cuadre_transactions",
		Offset: 20,
		Time:   time.Now().UTC(),
		Value:  framed(99, []byte(`{"transaction_id":"t-1"}`)),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("transaction.recorded")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}

	processor := NewProcessor(reader, handler, WithLogger(zerolog.New(zerolog.NewTestWriter(t))))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "sync_requests", Value: []byte{0, 1}},
			{Topic: "sync_requests", Value: framed(1, []byte(`{}`))},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(zerolog.Nop()))
	require.ErrorIs(t, processor.Run(ctx), context.Canceled)

	require.Zero(t, handler.calls, "short payload and missing event_type are both rejected")
	require.Equal(t, 2, reader.commitCalls)
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

func contextCanceled() error { return context.Canceled }

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

func TestCommittedEventsFeedDomainCounters(t *testing.T) {
	decisions := reviewDecisionsCounter.WithLabelValues("pending", "rejected")
	amounts := recordedAmountCounter.WithLabelValues("sale", "VES")
	syncs := syncRequestsCounter.WithLabelValues("scheduled")
	beforeDecisions, beforeAmounts, beforeSyncs := testutil.ToFloat64(decisions), testutil.ToFloat64(amounts), testutil.ToFloat64(syncs)

	recordProcessed(Message{Topic: "cuadre_review_events", EventType: "cuadre.reviewed",
		Payload: []byte(`{"cuadre_id":"c-1","from_status":"pending","status":"rejected","observations":"faltante"}`)})
	recordProcessed(Message{Topic: "cuadre_transactions", EventType: "transaction.recorded",
		Payload: []byte(`{"transaction_id":"t-1","kind":"sale","currency":"VES","amount":150000}`)})
	recordProcessed(Message{Topic: "sync_requests", EventType: "sync.requested",
		Payload: []byte(`{"request_id":"s-1","reason":"scheduled"}`)})
	recordProcessed(Message{Topic: "cuadre_review_events", EventType: "cuadre.reviewed", Payload: []byte(`not json`)})

	require.InDelta(t, beforeDecisions+1, testutil.ToFloat64(decisions), 0.0001)
	require.InDelta(t, beforeAmounts+150000, testutil.ToFloat64(amounts), 0.0001)
	require.InDelta(t, beforeSyncs+1, testutil.ToFloat64(syncs), 0.0001)
}
