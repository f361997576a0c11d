// Package id provides identifiers for every persisted record, tenants included.
package id

import (
	"github.com/google/uuid"
)

// ID is a UUID. Records use time-ordered UUIDv7 so inserts stay index-friendly.
type ID = uuid.UUID

// Nil is the zero ID.
var Nil = uuid.Nil

// New generates a UUIDv7, falling back to v4 if the clock source fails.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == Nil
}
