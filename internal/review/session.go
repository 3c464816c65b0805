package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Action is a review decision a caller may request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction validates a requested action.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(raw))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
	}
}

// Target is the status an action moves the record to.
func (a Action) Target() Status {
	if a == ActionReject {
		return StatusRejected
	}
	return StatusApproved
}

// State is the interaction state of a Session.
type State int

const (
	StateIdle State = iota
	StateChoosing
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateChoosing:
		return "choosing_action"
	case StateSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

var (
	ErrUnknownAction    = errors.New("unknown review action")
	ErrDisabled         = errors.New("review actions are disabled for this record")
	ErrActionNotOffered = errors.New("review action not offered for current status")
	ErrBusy             = errors.New("a review action is already open")
	ErrNotChoosing      = errors.New("no review action is open")
	ErrInFlight         = errors.New("review submission in flight")
	ErrNoteRequired     = errors.New("a note is required to reject")
	// ErrReviewFailed wraps any failure returned by the Reviewer.
	ErrReviewFailed = errors.New("review submission failed")
)

// Reviewer performs the persisted transition. Implementations report any failure as an error;
// the session does not inspect it.
type Reviewer interface {
	Approve(ctx context.Context, observations Note) error
	Reject(ctx context.Context, observations Note) error
}

// ReviewerFuncs adapts two functions to Reviewer.
type ReviewerFuncs struct {
	ApproveFunc func(ctx context.Context, observations Note) error
	RejectFunc  func(ctx context.Context, observations Note) error
}

// Approve implements Reviewer.
func (f ReviewerFuncs) Approve(ctx context.Context, observations Note) error {
	return f.ApproveFunc(ctx, observations)
}

// Reject implements Reviewer.
func (f ReviewerFuncs) Reject(ctx context.Context, observations Note) error {
	return f.RejectFunc(ctx, observations)
}

// Option configures a Session.
type Option func(*Session)

// WithActor records the reviewing user on the snapshot after a successful submission.
func WithActor(id string) Option {
	return func(s *Session) {
		s.actor = id
	}
}

// WithClock overrides the time source used for reviewed_at.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// Session holds the approve/reject interaction for one record. All methods are safe for
// concurrent use; at most one reviewer call is outstanding at a time.
type Session struct {
	mu       sync.Mutex
	reviewer Reviewer
	disabled bool
	actor    string
	now      func() time.Time

	snapshot Snapshot
	state    State
	action   Action
	note     string
}

// NewSession builds an idle session for the given record.
func NewSession(snapshot Snapshot, reviewer Reviewer, disabled bool, opts ...Option) *Session {
	s := &Session{
		reviewer: reviewer,
		disabled: disabled,
		now:      func() time.Time { return time.Now().UTC() },
		snapshot: snapshot,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Offered lists the actions available from the current status.
func (s *Session) Offered() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offeredLocked()
}

func (s *Session) offeredLocked() []Action {
	if s.disabled {
		return nil
	}
	out := make([]Action, 0, 2)
	if s.snapshot.Status != StatusApproved {
		out = append(out, ActionApprove)
	}
	if s.snapshot.Status != StatusRejected {
		out = append(out, ActionReject)
	}
	return out
}

func (s *Session) offersLocked(action Action) bool {
	for _, a := range s.offeredLocked() {
		if a == action {
			return true
		}
	}
	return false
}

// Open starts choosing an action and pre-fills the note with existing observations.
func (s *Session) Open(action Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disabled {
		return ErrDisabled
	}
	if s.state != StateIdle {
		return ErrBusy
	}
	if !s.offersLocked(action) {
		return fmt.Errorf("%w: %s on %s record", ErrActionNotOffered, action, s.snapshot.Status)
	}
	s.state = StateChoosing
	s.action = action
	s.note = s.snapshot.Observations.Text()
	return nil
}

// SetNote replaces the note text while an action is open.
func (s *Session) SetNote(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateSubmitting:
		return ErrInFlight
	case StateIdle:
		return ErrNotChoosing
	}
	s.note = text
	return nil
}

// Confirm submits the open action. A rejection with a blank note never reaches the Reviewer.
// On failure the action stays open and the note is kept for a retry.
func (s *Session) Confirm(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateSubmitting:
		s.mu.Unlock()
		return ErrInFlight
	case StateIdle:
		s.mu.Unlock()
		return ErrNotChoosing
	}

	action := s.action
	note := NoteText(s.note)
	if action == ActionReject && !note.HasText() {
		s.mu.Unlock()
		return ErrNoteRequired
	}
	if action == ActionApprove {
		note = note.ForwardApproval()
	}
	s.state = StateSubmitting
	s.mu.Unlock()

	var err error
	if action == ActionReject {
		err = s.reviewer.Reject(ctx, note)
	} else {
		err = s.reviewer.Approve(ctx, note)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateChoosing
		return fmt.Errorf("%w: %w", ErrReviewFailed, err)
	}

	s.snapshot.Status = action.Target()
	s.snapshot.Observations = note
	if s.actor != "" {
		at := s.now()
		s.snapshot.ReviewedBy = s.actor
		s.snapshot.ReviewedAt = &at
	}
	s.state = StateIdle
	s.action = ""
	s.note = ""
	return nil
}

// Cancel closes the open action. It has no effect while a submission is in flight.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateSubmitting {
		return ErrInFlight
	}
	s.state = StateIdle
	s.action = ""
	s.note = ""
	return nil
}

// State returns the current interaction state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Action returns the open action, empty when idle.
func (s *Session) Action() Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.action
}

// Note returns the note text as entered.
func (s *Session) Note() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.note
}

// NoteRequired reports whether the open action needs a note.
func (s *Session) NoteRequired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateIdle && s.action == ActionReject
}

// CanConfirm reports whether Confirm would reach the Reviewer.
func (s *Session) CanConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateChoosing {
		return false
	}
	return s.action != ActionReject || strings.TrimSpace(s.note) != ""
}

// Snapshot returns the record as last known by the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Badge renders the current record status.
func (s *Session) Badge() Badge {
	return BadgeFor(s.Snapshot().Status)
}

// Registry tracks live sessions per record so at most one interaction per record is open.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open builds a session for id and opens action on it as one step under the registry lock.
// It returns ErrBusy while another caller holds an open or submitting session for id. The new
// session is installed only when Open succeeds.
func (r *Registry) Open(id string, action Action, build func() *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[id]; ok && existing.State() != StateIdle {
		return nil, ErrBusy
	}
	s := build()
	if err := s.Open(action); err != nil {
		return nil, err
	}
	r.sessions[id] = s
	return s, nil
}

// Release drops the session for id if it is still the given idle session.
func (r *Registry) Release(id string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.sessions[id]; ok && current == s && s.State() == StateIdle {
		delete(r.sessions, id)
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
