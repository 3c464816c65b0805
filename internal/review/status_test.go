package review

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseStatusDefaultsToPending(t *testing.T) {
	require.Equal(t, StatusApproved, ParseStatus("APPROVED"))
	require.Equal(t, StatusRejected, ParseStatus(" rejected "))
	require.Equal(t, StatusPending, ParseStatus(""))
	require.Equal(t, StatusPending, ParseStatus("en revision"))
	require.Equal(t, StatusPending, ParseStatusPtr(nil))
}

func TestBadgeForEveryStatus(t *testing.T) {
	require.Equal(t, "Aprobado", BadgeFor(StatusApproved).Label)
	require.Equal(t, "Rechazado", BadgeFor(StatusRejected).Label)
	require.Equal(t, "Pendiente", BadgeFor(StatusPending).Label)
	require.Equal(t, StatusPending, BadgeFor(Status("weird")).Status)
}

func TestSnapshotValidate(t *testing.T) {
	now := time.Now()

	require.NoError(t, Snapshot{Status: StatusPending}.Validate())
	require.NoError(t, Snapshot{Status: StatusApproved, ReviewedBy: "u", ReviewedAt: &now}.Validate())
	require.ErrorIs(t, Snapshot{Status: StatusApproved, ReviewedBy: "u"}.Validate(), ErrReviewerMismatch)
	require.ErrorIs(t, Snapshot{Status: StatusApproved, ReviewedAt: &now}.Validate(), ErrReviewerMismatch)
	require.ErrorIs(t, Snapshot{Status: StatusPending, ReviewedBy: "u", ReviewedAt: &now}.Validate(), ErrReviewerMismatch)
	require.ErrorIs(t, Snapshot{Status: StatusRejected, ReviewedBy: "u", ReviewedAt: &now, Observations: NoteEmpty()}.Validate(), ErrObservationsRequired)
}

func TestNoteTriState(t *testing.T) {
	require.True(t, NoteAbsent().IsAbsent())
	require.Nil(t, NoteAbsent().Ptr())

	empty := NoteText("  ")
	require.False(t, empty.IsAbsent())
	require.False(t, empty.HasText())
	require.Equal(t, "", *empty.Ptr())
	require.True(t, empty.ForwardApproval().IsAbsent())

	text := NoteText(" sobrante ")
	require.Equal(t, "sobrante", text.Text())
	require.Equal(t, text, text.ForwardApproval())

	var decoded struct {
		Observations Note `json:"observations"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"observations":null}`), &decoded))
	require.True(t, decoded.Observations.IsAbsent())
	require.NoError(t, json.Unmarshal([]byte(`{"observations":""}`), &decoded))
	require.False(t, decoded.Observations.IsAbsent())
	require.False(t, decoded.Observations.HasText())

	out, err := json.Marshal(struct {
		Observations Note `json:"observations"`
	}{NoteText("ok")})
	require.NoError(t, err)
	require.JSONEq(t, `{"observations":"ok"}`, string(out))
}
