package drafts

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

func TestMemoryStoreSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)
	key := Key{UserID: "taq-1", Context: "sales", Date: testDate}

	_, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save(ctx, key, json.RawMessage(`{"amount":"1500"}`)))
	draft, ok, err := store.Load(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"amount":"1500"}`, string(draft))

	other := Key{UserID: "taq-2", Context: "sales", Date: testDate}
	_, ok, err = store.Load(ctx, other)
	require.NoError(t, err)
	require.False(t, ok, "drafts are scoped per user")

	require.NoError(t, store.Clear(ctx, key))
	_, ok, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreExpires(t *testing.T) {
	ctx := context.Background()
	now := testDate
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }
	key := Key{UserID: "taq-1", Context: "expenses", Date: testDate}

	require.NoError(t, store.Save(ctx, key, json.RawMessage(`{}`)))
	now = now.Add(59 * time.Minute)
	_, ok, _ := store.Load(ctx, key)
	require.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = store.Load(ctx, key)
	require.False(t, ok)
}

func TestStoreRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	require.ErrorIs(t, store.Save(ctx, Key{Context: "sales", Date: testDate}, json.RawMessage(`{}`)), ErrInvalidKey)
	require.ErrorIs(t, store.Save(ctx, Key{UserID: "u", Context: "../x", Date: testDate}, json.RawMessage(`{}`)), ErrInvalidKey)
	require.ErrorIs(t, store.Save(ctx, Key{UserID: "u", Context: "sales"}, json.RawMessage(`{}`)), ErrInvalidKey)
	require.ErrorIs(t, store.Save(ctx, Key{UserID: "u", Context: "sales", Date: testDate}, json.RawMessage(`[1]`)), ErrInvalidDraft)
	require.ErrorIs(t, store.Save(ctx, Key{UserID: "u", Context: "sales", Date: testDate}, json.RawMessage(`null`)), ErrInvalidDraft)
}

func TestKeyString(t *testing.T) {
	require.Equal(t, "drafts:taq-1:mobile_payments:2025-03-10", Key{UserID: "taq-1", Context: "mobile_payments", Date: testDate}.String())
}
