package types

import "time"

// User is the read-only cached view of the identity provider's user. The
// provider owns the record entirely.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
