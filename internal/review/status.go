// Package review implements the cuadre review workflow: the record status model, the
// per-record approve/reject interaction and the status badge mapping.
package review

import (
	"errors"
	"strings"
	"time"
)

// Status is the review state persisted on a cuadre.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ParseStatus normalises a stored status. Missing or unknown values are pending.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusApproved:
		return StatusApproved
	case StatusRejected:
		return StatusRejected
	default:
		return StatusPending
	}
}

// ParseStatusPtr treats a NULL column as pending.
func ParseStatusPtr(raw *string) Status {
	if raw == nil {
		return StatusPending
	}
	return ParseStatus(*raw)
}

// Terminal reports whether a review decision has been recorded.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s Status) String() string { return string(s) }

var (
	// ErrReviewerMismatch is returned when only one of reviewed_by/reviewed_at is set, or
	// they are set on a pending record.
	ErrReviewerMismatch = errors.New("reviewed_by and reviewed_at must be set together on reviewed records only")
	// ErrObservationsRequired is returned when a rejection carries no observation text.
	ErrObservationsRequired = errors.New("observations are required when rejecting")
)

// Snapshot is the read-only view of a reviewable record.
type Snapshot struct {
	Status       Status
	ReviewedBy   string
	ReviewedAt   *time.Time
	Observations Note
}

// Validate checks the record invariants.
func (s Snapshot) Validate() error {
	hasReviewer := strings.TrimSpace(s.ReviewedBy) != ""
	hasTime := s.ReviewedAt != nil && !s.ReviewedAt.IsZero()
	if hasReviewer != hasTime {
		return ErrReviewerMismatch
	}
	if hasReviewer && !s.Status.Terminal() {
		return ErrReviewerMismatch
	}
	if s.Status == StatusRejected && !s.Observations.HasText() {
		return ErrObservationsRequired
	}
	return nil
}
