package request

import "github.com/google/uuid"

// NewID returns a fresh random upload id.
func NewID() string {
	return uuid.NewString()
}
