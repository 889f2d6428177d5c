package tokens

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of an access token. Roles serialize as a
// "role" array with one entry per assigned role.
type AccessClaims struct {
	Email     string           `json:"email"`
	GivenName string           `json:"given_name"`
	Roles     jwt.ClaimStrings `json:"role"`
	jwt.RegisteredClaims
}

// HasAnyRole reports whether the claims carry at least one of the given roles.
// Comparison is case-sensitive.
func (c *AccessClaims) HasAnyRole(roles ...string) bool {
	for _, r := range c.Roles {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

// Identity is what the issuer needs to know about an account to mint a token.
type Identity struct {
	AccountID string
	Email     string
	Username  string
	Roles     []string
}
