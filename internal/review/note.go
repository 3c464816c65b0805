package review

import (
	"encoding/json"
	"strings"
)

type noteKind uint8

const (
	noteAbsent noteKind = iota
	noteEmpty
	noteText
)

// Note is the observation attached to a review decision. It distinguishes a note that was
// never supplied (Absent) from one supplied blank (Empty) and one carrying text.
type Note struct {
	kind noteKind
	text string
}

// NoteAbsent returns a note that was not supplied.
func NoteAbsent() Note { return Note{kind: noteAbsent} }

// NoteEmpty returns a supplied but blank note.
func NoteEmpty() Note { return Note{kind: noteEmpty} }

// NoteText builds a note from user input. Blank input yields Empty.
func NoteText(text string) Note {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return NoteEmpty()
	}
	return Note{kind: noteText, text: trimmed}
}

// NoteFromPtr maps a nullable column or optional JSON field onto a Note.
func NoteFromPtr(text *string) Note {
	if text == nil {
		return NoteAbsent()
	}
	return NoteText(*text)
}

// IsAbsent reports whether no note was supplied.
func (n Note) IsAbsent() bool { return n.kind == noteAbsent }

// HasText reports whether the note carries non-blank text.
func (n Note) HasText() bool { return n.kind == noteText }

// Text returns the note text; empty for Absent and Empty.
func (n Note) Text() string { return n.text }

// Ptr returns nil for Absent, a pointer to "" for Empty and the text otherwise.
func (n Note) Ptr() *string {
	switch n.kind {
	case noteAbsent:
		return nil
	case noteEmpty:
		empty := ""
		return &empty
	default:
		text := n.text
		return &text
	}
}

// ForwardApproval collapses blank notes to Absent before they reach the persistence layer.
func (n Note) ForwardApproval() Note {
	if n.HasText() {
		return n
	}
	return NoteAbsent()
}

func (n Note) String() string {
	switch n.kind {
	case noteAbsent:
		return "<absent>"
	case noteEmpty:
		return "<empty>"
	default:
		return n.text
	}
}

// MarshalJSON encodes Absent as null.
func (n Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Ptr())
}

// UnmarshalJSON decodes null as Absent.
func (n *Note) UnmarshalJSON(data []byte) error {
	var text *string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*n = NoteFromPtr(text)
	return nil
}
