package tokens

import "github.com/google/uuid"

// NewRefreshToken returns an opaque refresh token: two random v4 UUIDs joined
// with a dash, 244 bits of entropy.
func NewRefreshToken() string {
	return uuid.NewString() + "-" + uuid.NewString()
}

func NewJTI() string { return uuid.NewString() }
