package outbox

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func reviewedMessage(id int64, cuadreID string) Message {
	return Message{
		EventID:       id,
		AggregateType: "cuadre",
		AggregateID:   cuadreID,
		EventType:     "cuadre.reviewed",
		Topic:         "cuadre_review_events",
		SchemaSubject: "cuadre_review_events-value",
		PartitionKey:  cuadreID,
		Payload:       []byte(`{"cuadre_id":"` + cuadreID + `","status":"approved"}`),
	}
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestDeliverFramesPayloadAndSetsHeaders(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	d := &Dispatcher{producer: producer, registry: registry}

	require.NoError(t, d.deliver(context.Background(), []Message{reviewedMessage(1, "c-1")}))

	require.Len(t, producer.writes, 1)
	require.Equal(t, "cuadre_review_events", producer.writes[0].topic)
	record := producer.writes[0].messages[0]
	require.Equal(t, "c-1", string(record.Key))
	require.Equal(t, byte(0), record.Value[0])
	require.Equal(t, uint32(42), binary.BigEndian.Uint32(record.Value[1:5]))
	require.JSONEq(t, `{"cuadre_id":"c-1","status":"approved"}`, string(record.Value[5:]))
	require.Equal(t, "cuadre.reviewed", header(record, "event_type"))
	require.Equal(t, "c-1", header(record, "aggregate_id"))
	require.Equal(t, "cuadre_review_events-value", header(record, "schema_subject"))
}

func TestDeliverCachesSchemaIDsAndGroupsByTopic(t *testing.T) {
	producer := &stubProducer{}
	registry := &stubRegistry{id: 21}
	d := &Dispatcher{producer: producer, registry: registry}

	sync := Message{
		EventID:       3,
		AggregateType: "sync_request",
		AggregateID:   "s-1",
		EventType:     "sync.requested",
		Topic:         "sync_requests",
		SchemaSubject: "sync_requests-value",
		PartitionKey:  "s-1",
		Payload:       []byte(`{"request_id":"s-1"}`),
	}
	require.NoError(t, d.deliver(context.Background(), []Message{reviewedMessage(1, "c-1"), reviewedMessage(2, "c-2"), sync}))

	require.Len(t, producer.writes, 2)
	require.Equal(t, "cuadre_review_events", producer.writes[0].topic)
	require.Len(t, producer.writes[0].messages, 2)
	require.Equal(t, "sync_requests", producer.writes[1].topic)
	require.Len(t, registry.calls, 2, "one registry call per subject")

	require.NoError(t, d.deliver(context.Background(), []Message{reviewedMessage(4, "c-3")}))
	require.Len(t, registry.calls, 2, "cached across batches")
}

func TestDeliverFailures(t *testing.T) {
	unknown := reviewedMessage(1, "c-1")
	unknown.EventType = "cuadre.unknown"
	d := &Dispatcher{producer: &stubProducer{}, registry: &stubRegistry{}}
	err := d.deliver(context.Background(), []Message{unknown})
	require.ErrorContains(t, err, "no schema metadata for event_type=cuadre.unknown")

	d = &Dispatcher{producer: &stubProducer{}, registry: &stubRegistry{err: errors.New("registry down")}}
	require.ErrorContains(t, d.deliver(context.Background(), []Message{reviewedMessage(1, "c-1")}), "registry down")

	d = &Dispatcher{producer: &stubProducer{err: errors.New("kafka write failed")}, registry: &stubRegistry{}}
	require.ErrorContains(t, d.deliver(context.Background(), []Message{reviewedMessage(1, "c-1")}), "kafka write failed")
}

func TestEveryCatalogEntryHasSchema(t *testing.T) {
	for eventType, entry := range schemaCatalog {
		require.NotEmpty(t, entry.Schema, eventType)
	}
}

func TestBackoffDelayIsExponentialAndCapped(t *testing.T) {
	m := NewDLQManager(nil, 0, 0)
	require.Equal(t, 5, m.maxRetries)
	require.Equal(t, time.Minute, m.backoffDelay(1))
	require.Equal(t, 4*time.Minute, m.backoffDelay(3))
	require.Equal(t, time.Hour, m.backoffDelay(8))
	require.Equal(t, time.Hour, m.backoffDelay(40))
	require.Equal(t, time.Second, retryBackoff(time.Second, 0))
}

func TestDispatcherDLQBaseDelayOption(t *testing.T) {
	d := NewDispatcher(nil, &stubProducer{}, &stubRegistry{}, time.Second, 10)
	require.Equal(t, defaultDLQBaseDelay, d.dlq.baseDelay)

	d = NewDispatcher(nil, &stubProducer{}, &stubRegistry{}, time.Second, 10, WithDLQBaseDelay(30*time.Second))
	require.Equal(t, 30*time.Second, d.dlq.baseDelay)
}

func TestPrimeSchemasSkipsRegistryLookups(t *testing.T) {
	registry := &stubRegistry{id: 99}
	d := NewDispatcher(nil, &stubProducer{}, registry, time.Second, 10)
	d.PrimeSchemas(map[string]int{"cuadre.reviewed": 12, "activity.created": 1})

	id, err := d.schemaID(context.Background(), "cuadre_review_events-value", cuadreReviewedSchema)
	require.NoError(t, err)
	require.Equal(t, 12, id)
	require.Empty(t, registry.calls)
}
