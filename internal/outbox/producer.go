package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/events"
)

// ErrUnknownTopic is returned when writing to a topic outside the event catalog.
var ErrUnknownTopic = errors.New("topic not in event catalog")

// KafkaProducer keeps one writer per catalog topic. Ordered topics hash the record key so every
// event of a cuadre lands on the same partition; the rest spread by load.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to a catalog topic, creating its writer on first use.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	writer, err := p.writerForTopic(topic)
	if err != nil {
		return err
	}
	start := time.Now()
	err = writer.WriteMessages(ctx, msgs...)
	recordProduced(topic, msgs, time.Since(start), err)
	return err
}

func (p *KafkaProducer) writerForTopic(topic string) (*kafka.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer, nil
	}
	desc, ok := events.ForTopic(topic)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}
	writer := newTopicWriter(p.brokers, desc)
	p.writers[topic] = writer
	return writer, nil
}

func newTopicWriter(brokers []string, desc events.Descriptor) *kafka.Writer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        desc.Topic,
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 20 * time.Millisecond,
	}
	if desc.Ordered {
		writer.Balancer = &kafka.Hash{}
		writer.MaxAttempts = 5
	} else {
		writer.Balancer = &kafka.LeastBytes{}
		writer.BatchSize = 1
	}
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("close %s writer: %w", topic, err))
		}
		delete(p.writers, topic)
	}
	return errs
}

func eventTypeHeader(msg kafka.Message) string {
	for _, h := range msg.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return "unknown"
}
