package events

// Event types written to the outbox.
const (
	TypeTransactionRecorded = "transaction.recorded"
	TypeCuadreReviewed      = "cuadre.reviewed"
	TypeSyncRequested       = "sync.requested"
)

// Kafka topics the events are published on.
const (
	TopicTransactions = "cuadre_transactions"
	TopicReviews      = "cuadre_review_events"
	TopicSync         = "sync_requests"
)

// Descriptor routes one event type.
type Descriptor struct {
	Type          string
	Topic         string
	AggregateType string
	// Ordered events share a partition per key, so consumers see them in commit order.
	Ordered bool
}

// Subject is the Schema Registry value subject for the descriptor's topic.
func (d Descriptor) Subject() string {
	return Subject(d.Topic)
}

// Subject returns the value subject for topic.
func Subject(topic string) string {
	return topic + "-value"
}

var catalog = []Descriptor{
	{Type: TypeTransactionRecorded, Topic: TopicTransactions, AggregateType: "cuadre", Ordered: true},
	{Type: TypeCuadreReviewed, Topic: TopicReviews, AggregateType: "cuadre", Ordered: true},
	{Type: TypeSyncRequested, Topic: TopicSync, AggregateType: "sync_request"},
}

// Catalog lists every published event.
func Catalog() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds the descriptor for an event type.
func Lookup(eventType string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.Type == eventType {
			return d, true
		}
	}
	return Descriptor{}, false
}

// ForTopic finds the descriptor publishing on topic.
func ForTopic(topic string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.Topic == topic {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Topics lists the topics in catalog order.
func Topics() []string {
	out := make([]string, 0, len(catalog))
	for _, d := range catalog {
		out = append(out, d.Topic)
	}
	return out
}
