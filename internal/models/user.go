package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered chat user. The numeric UID is the identity
// used throughout the messaging core and its index keys; the handle is the
// opaque reference handed to external systems.
type User struct {
	UID       int64     `json:"uid"`
	Handle    uuid.UUID `json:"handle"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
