package events

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCatalogRoutesEveryEvent(t *testing.T) {
	d, ok := Lookup(TypeCuadreReviewed)
	require.True(t, ok)
	require.Equal(t, TopicReviews, d.Topic)
	require.Equal(t, "cuadre_review_events-value", d.Subject())
	require.True(t, d.Ordered)

	d, ok = ForTopic(TopicSync)
	require.True(t, ok)
	require.Equal(t, TypeSyncRequested, d.Type)
	require.False(t, d.Ordered)

	_, ok = Lookup("activity.created")
	require.False(t, ok)
	require.Equal(t, []string{TopicTransactions, TopicReviews, TopicSync}, Topics())
}
