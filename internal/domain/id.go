package domain

import (
	"github.com/google/uuid"
)

// NewQueryID generates a time-ordered UUIDv7 identifying one compilation.
func NewQueryID() string {
	return uuid.Must(uuid.NewV7()).String()
}
