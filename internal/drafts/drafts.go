// Package drafts keeps in-progress form input so a cashier does not lose it on reload.
// Drafts are keyed by user, form context and business date, and are cleared only after
// the form has been submitted successfully.
package drafts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var (
	// ErrInvalidKey is returned for keys with missing or malformed parts.
	ErrInvalidKey = errors.New("invalid draft key")
	// ErrInvalidDraft is returned when the payload is not a JSON object.
	ErrInvalidDraft = errors.New("draft must be a JSON object")
)

var contextPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// Key scopes a draft.
type Key struct {
	UserID  string
	Context string
	Date    time.Time
}

// Validate checks every part of the key.
func (k Key) Validate() error {
	if k.UserID == "" {
		return fmt.Errorf("%w: user is required", ErrInvalidKey)
	}
	if !contextPattern.MatchString(k.Context) {
		return fmt.Errorf("%w: context %q", ErrInvalidKey, k.Context)
	}
	if k.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidKey)
	}
	return nil
}

// String renders the storage key.
func (k Key) String() string {
	return fmt.Sprintf("drafts:%s:%s:%s", k.UserID, k.Context, k.Date.Format(time.DateOnly))
}

// Store is the draft persistence capability.
type Store interface {
	// Load returns the saved draft; ok is false when none exists.
	Load(ctx context.Context, key Key) (draft json.RawMessage, ok bool, err error)
	Save(ctx context.Context, key Key, draft json.RawMessage) error
	Clear(ctx context.Context, key Key) error
}

func validateDraft(draft json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(draft, &obj); err != nil || obj == nil {
		return ErrInvalidDraft
	}
	return nil
}
