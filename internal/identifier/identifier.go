// Package identifier generates and validates the random identifiers
// assigned to users and todos.
package identifier

import "github.com/google/uuid"

// canonicalLength is the length of the 8-4-4-4-12 textual form.
const canonicalLength = 36

// Generator produces a new identifier on every call.
type Generator func() string

// New returns a fresh random (version 4) identifier in canonical lowercase form.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether s is an identifier in the canonical 8-4-4-4-12
// hexadecimal form with an RFC 4122 variant and a version between 1 and 5.
// The nil identifier is accepted too. URN, braced and undashed forms are not.
func IsValid(s string) bool {
	if len(s) != canonicalLength {
		return false
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}

	if id == uuid.Nil {
		return true
	}

	return id.Variant() == uuid.RFC4122 && id.Version() >= 1 && id.Version() <= 5
}
