package session

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a sortable per-process session identifier, sent with every
// API request so server logs can correlate one client run.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// fallback to a random v4 with a timestamp prefix if the v7 clock read fails
		return time.Now().UTC().Format("20060102-150405") + "-" + uuid.NewString()
	}
	return id.String()
}
