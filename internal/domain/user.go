package domain

import (
	"time"
)

// User represents a registered user. The ID is an opaque identifier issued
// by the external sign-in provider, not a UUID generated by this service.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
