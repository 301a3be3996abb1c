package participant

import "github.com/google/uuid"

// ID is an opaque identifier for a participant, unique within a pipe
// (spec.md §3). It is string-convertible so it can be used directly as a
// YAML/JSON map key and a Go map key.
type ID string

// Default is the reserved sentinel meaning "no participant". It must
// never appear as a live participant in a ParticipantsDatabase.
const Default ID = ""

// NewID generates a fresh, practically-unique ID for callers that don't
// assign one from configuration (e.g. ad-hoc test participants).
func NewID() ID {
	return ID(uuid.NewString())
}

func (id ID) String() string {
	return string(id)
}

// IsDefault reports whether id is the reserved "no participant" sentinel.
func (id ID) IsDefault() bool {
	return id == Default
}
