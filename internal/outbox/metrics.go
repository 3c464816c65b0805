package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/events"
)

const namespace = "cuadres_service"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Outbox events published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Outbox events that failed to publish and were routed to the DLQ.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering and marking one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "outbox",
		Name:      "events_dlq_total",
		Help:      "Outbox events routed to the DLQ by topic.",
	}, []string{"topic"})

	producedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "producer",
		Name:      "records_total",
		Help:      "Kafka records written by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	produceDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "producer",
		Name:      "write_duration_seconds",
		Help:      "Latency of one Kafka write call by topic.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"topic"})

	dlqRequeuedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dlq",
		Name:      "messages_requeued_total",
		Help:      "DLQ entries reinserted into the outbox for replay.",
	}, []string{"topic", "event_type"})

	dlqQuarantinedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dlq",
		Name:      "messages_quarantined_total",
		Help:      "DLQ entries quarantined after exhausting replays.",
	}, []string{"topic", "event_type"})

	dlqRetryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "dlq",
		Name:      "retry_scheduled_total",
		Help:      "DLQ entries whose replay could not be queued and was rescheduled.",
	}, []string{"topic", "event_type"})

	dlqReplayAttempts = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "dlq",
		Name:      "replay_attempts",
		Help:      "Replays already spent by an entry when it is requeued or quarantined.",
		Buckets:   prometheus.LinearBuckets(0, 1, 8),
	}, []string{"event_type"})

	dlqBacklogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "dlq",
		Name:      "queued_messages",
		Help:      "Entries waiting in the DLQ by topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(
		deliveredCounter, failedCounter, batchDuration, dlqCounter,
		producedCounter, produceDuration,
		dlqRequeuedCounter, dlqQuarantinedCounter, dlqRetryCounter, dlqReplayAttempts, dlqBacklogGauge,
	)
}

func recordProduced(topic string, msgs []kafka.Message, took time.Duration, err error) {
	produceDuration.WithLabelValues(topic).Observe(took.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	for _, msg := range msgs {
		producedCounter.WithLabelValues(topic, eventTypeHeader(msg), outcome).Inc()
	}
}

func recordDLQRequeued(entry dlqEntry) {
	dlqRequeuedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
	dlqReplayAttempts.WithLabelValues(entry.EventType).Observe(float64(entry.RetryCount))
}

func recordDLQQuarantined(entry dlqEntry) {
	dlqQuarantinedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
	dlqReplayAttempts.WithLabelValues(entry.EventType).Observe(float64(entry.RetryCount))
}

func recordDLQRetry(entry dlqEntry) {
	dlqRetryCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
}

// updateBacklogGauge refreshes the per-topic backlog. Catalog topics without entries read zero.
func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	rows, err := pool.Query(ctx, `SELECT topic, COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL GROUP BY topic`)
	if err != nil {
		return
	}
	defer rows.Close()

	counts := make(map[string]int, len(events.Topics()))
	for _, topic := range events.Topics() {
		counts[topic] = 0
	}
	for rows.Next() {
		var topic string
		var count int
		if err := rows.Scan(&topic, &count); err != nil {
			return
		}
		counts[topic] = count
	}
	if rows.Err() != nil {
		return
	}
	for topic, count := range counts {
		dlqBacklogGauge.WithLabelValues(topic).Set(float64(count))
	}
}
