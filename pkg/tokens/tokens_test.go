package tokens

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return NewIssuer([]byte("test-jwt-key"), "https://issuer.test/", "https://audience.test/", 15*time.Minute)
}

func testIdentity() Identity {
	return Identity{
		AccountID: uuid.NewString(),
		Email:     "reader@example.com",
		Username:  "reader",
		Roles:     []string{"Reader", "Writer"},
	}
}

func TestIssuer_Issue_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	id := testIdentity()
	jti := NewJTI()

	token, exp, err := iss.Issue(id, jti)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 2*time.Second)

	claims, err := iss.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, id.Email, claims.Email)
	assert.Equal(t, id.Username, claims.GivenName)
	assert.ElementsMatch(t, id.Roles, []string(claims.Roles))
	assert.Equal(t, id.AccountID, claims.Subject)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, "https://issuer.test/", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"https://audience.test/"}, claims.Audience)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
}

func TestIssuer_Issue_RoleClaimIsArray(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	id := testIdentity()
	id.Roles = []string{"Admin"}

	token, _, err := iss.Issue(id, NewJTI())
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, []any{"Admin"}, raw["role"])
	assert.Equal(t, "reader@example.com", raw["email"])
	assert.Equal(t, "reader", raw["given_name"])
}

func TestIssuer_Issue_EmptyKey(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(nil, "iss", "aud", time.Minute)
	_, _, err := iss.Issue(testIdentity(), NewJTI())
	require.Error(t, err)
}

func TestIssuer_Verify_Rejects(t *testing.T) {
	t.Parallel()

	base := newTestIssuer()
	token, _, err := base.Issue(testIdentity(), NewJTI())
	require.NoError(t, err)

	tests := []struct {
		name   string
		issuer *Issuer
		token  string
		target error
	}{
		{
			name:   "wrong key",
			issuer: NewIssuer([]byte("other-key"), base.Issuer, base.Audience, base.TTL),
			token:  token,
			target: jwt.ErrTokenSignatureInvalid,
		},
		{
			name:   "wrong issuer",
			issuer: NewIssuer(base.Key, "https://evil.test/", base.Audience, base.TTL),
			token:  token,
			target: jwt.ErrTokenInvalidIssuer,
		},
		{
			name:   "wrong audience",
			issuer: NewIssuer(base.Key, base.Issuer, "https://other.test/", base.TTL),
			token:  token,
			target: jwt.ErrTokenInvalidAudience,
		},
		{
			name: "expired",
			issuer: &Issuer{
				Key: base.Key, Issuer: base.Issuer, Audience: base.Audience, TTL: base.TTL,
				Now: func() time.Time { return time.Now().Add(16 * time.Minute) },
			},
			token:  token,
			target: jwt.ErrTokenExpired,
		},
		{
			name:   "garbage",
			issuer: base,
			token:  "not-a-jwt",
			target: jwt.ErrTokenMalformed,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := tt.issuer.Verify(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestIssuer_Verify_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	claims := AccessClaims{
		Roles: jwt.ClaimStrings{"Admin"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss.Issuer,
			Audience:  jwt.ClaimStrings{iss.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = iss.Verify(unsigned)
	require.Error(t, err)
}

func TestAccessClaims_HasAnyRole_CaseSensitive(t *testing.T) {
	t.Parallel()

	c := &AccessClaims{Roles: jwt.ClaimStrings{"Reader"}}
	assert.True(t, c.HasAnyRole("Reader", "Admin"))
	assert.False(t, c.HasAnyRole("reader"))
	assert.False(t, c.HasAnyRole("Writer", "Admin"))
	assert.False(t, (&AccessClaims{}).HasAnyRole("Reader"))
}

func TestExpiryUnverified(t *testing.T) {
	t.Parallel()

	iss := newTestIssuer()
	token, exp, err := iss.Issue(testIdentity(), NewJTI())
	require.NoError(t, err)

	got, err := ExpiryUnverified(token)
	require.NoError(t, err)
	assert.WithinDuration(t, exp, got, time.Second)

	_, err = ExpiryUnverified("garbage")
	require.Error(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ExpiryUnverified(noExp)
	assert.ErrorIs(t, err, ErrNoExpiry)
}

func TestNewRefreshToken_OpaqueAndUnique(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		tok := NewRefreshToken()
		assert.Len(t, tok, 73)
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}
