package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random UUID string for subscribers and requests.
func NewID() string {
	id, err := uuid.NewRandom()
	if err == nil {
		return id.String()
	}

	// Fallback to timestamp if the random source is unavailable.
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}
