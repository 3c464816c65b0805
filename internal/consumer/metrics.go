package consumer

import (
	"encoding/json"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/events"
)

const namespace = "cuadres_service"

var (
	processedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "messages_processed_total",
		Help:      "Kafka records handled and committed.",
	}, []string{"topic", "event_type"})

	handlerErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "handler_errors_total",
		Help:      "Handler failures by topic and event type.",
	}, []string{"topic", "event_type"})

	decodeErrorCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "decode_errors_total",
		Help:      "Records skipped because they were not Confluent framed.",
	}, []string{"topic"})

	lastMessageGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "last_message_timestamp_seconds",
		Help:      "Unix timestamp of the newest committed record per topic.",
	}, []string{"topic"})

	reviewDecisionsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "review_decisions_total",
		Help:      "Cuadre review decisions seen on the review topic by transition.",
	}, []string{"from_status", "status"})

	recordedAmountCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "recorded_amount_minor_total",
		Help:      "Sum of recorded transaction amounts in minor units by kind and currency.",
	}, []string{"kind", "currency"})

	syncRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "sync_requests_total",
		Help:      "Sync requests seen by reason.",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(processedCounter, handlerErrorCounter, decodeErrorCounter, lastMessageGauge,
		reviewDecisionsCounter, recordedAmountCounter, syncRequestsCounter)
}

func recordProcessed(msg Message) {
	processedCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
	if !msg.Timestamp.IsZero() {
		lastMessageGauge.WithLabelValues(msg.Topic).Set(float64(msg.Timestamp.Unix()))
	}
	observeDomainEvent(msg)
}

// observeDomainEvent feeds the business counters from a committed record. Payloads that do not
// decode are already in the event log and are not counted.
func observeDomainEvent(msg Message) {
	switch msg.EventType {
	case events.TypeCuadreReviewed:
		var e events.CuadreReviewed
		if json.Unmarshal(msg.Payload, &e) == nil && e.Status != "" {
			reviewDecisionsCounter.WithLabelValues(e.FromStatus, e.Status).Inc()
		}
	case events.TypeTransactionRecorded:
		var e events.TransactionRecorded
		if json.Unmarshal(msg.Payload, &e) == nil && e.Amount > 0 {
			recordedAmountCounter.WithLabelValues(e.Kind, e.Currency).Add(float64(e.Amount))
		}
	case events.TypeSyncRequested:
		var e events.SyncRequested
		if json.Unmarshal(msg.Payload, &e) == nil {
			syncRequestsCounter.WithLabelValues(e.Reason).Inc()
		}
	}
}

func recordHandlerError(msg Message) {
	handlerErrorCounter.WithLabelValues(msg.Topic, msg.EventType).Inc()
}

func recordDecodeError(topic string) {
	decodeErrorCounter.WithLabelValues(topic).Inc()
}
