package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GabrielVelasquez7/lanavetest-sub002/internal/domain"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &domain.Cursor{BusinessDate: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC), ID: "c-42"}
	out, err := DecodeCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestDecodeCursorEdgeCases(t *testing.T) {
	c, err := DecodeCursor("  ")
	require.NoError(t, err)
	require.Nil(t, c)
	require.Empty(t, EncodeCursor(nil))

	_, err = DecodeCursor("!!!")
	require.Error(t, err)

	_, err = DecodeCursor("bm8tc2VwYXJhdG9y")
	require.Error(t, err)
}
