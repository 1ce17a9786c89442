package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a random ID with the given prefix.
func NewID(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, uuid.NewString())
}

func NewSessionID() string {
	return NewID("session")
}

func NewRequestID() string {
	return NewID("req")
}

// NewGUID returns a bare random UUID, the format the remote service uses for
// point-of-interest identifiers.
func NewGUID() string {
	return uuid.NewString()
}

// IsGUID reports whether s parses as a UUID.
func IsGUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
