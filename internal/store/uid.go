package store

import "github.com/google/uuid"

// NewUID generates the globally unique external message identifier backed
// into every row at insert time (added by migration 06).
func NewUID() string {
	return uuid.NewString()
}
