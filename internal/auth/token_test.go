package auth

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/account-service/internal/domain"
)

func testUser() *domain.User {
	return &domain.User{
		ID:    "42",
		Email: "alice@example.com",
		Role:  domain.RoleUser,
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	token, expiresAt, err := tm.Generate(testUser())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "42", claims.SubjectID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, domain.RoleUser, claims.Role)
}

func TestTokenExpired(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	// Sign a token whose expiry is already in the past with the same secret.
	claims := &Claims{
		SubjectID: "42",
		Email:     "alice@example.com",
		Role:      domain.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-25 * time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = tm.Parse(signed)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenWrongSecret(t *testing.T) {
	tm := NewTokenManager("right-secret", time.Hour)
	token, _, err := tm.Generate(testUser())
	require.NoError(t, err)

	other := NewTokenManager("wrong-secret", time.Hour)
	_, err = other.Parse(token)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenTampered(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	token, _, err := tm.Generate(testUser())
	require.NoError(t, err)

	// Flip one byte of the signature segment.
	idx := strings.LastIndex(token, ".") + 1
	b := []byte(token)
	if b[idx] == 'A' {
		b[idx] = 'B'
	} else {
		b[idx] = 'A'
	}

	claims, err := tm.Parse(string(b))
	require.Nil(t, claims)
	require.ErrorIs(t, err, ErrTokenSignature)
}

func TestTokenMalformed(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)

	for _, garbage := range []string{"", "not-a-jwt", "a.b", "a.b.c"} {
		claims, err := tm.Parse(garbage)
		require.Nil(t, claims)
		require.ErrorIs(t, err, ErrTokenMalformed, "input %q", garbage)
	}
}
