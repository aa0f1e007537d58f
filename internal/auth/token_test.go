package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/taskhub/internal/apperr"
)

var testKey = strings.Repeat("s", 64)

func TestTokens_IssueAndVerify(t *testing.T) {
	t.Parallel()
	tokens := NewTokens(testKey, time.Hour)

	raw, err := tokens.Issue("user-1")
	require.NoError(t, err)

	userID, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestTokens_DefaultTTL(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 7*24*time.Hour, NewTokens(testKey, 0).TTL())
}

func TestTokens_Expired(t *testing.T) {
	t.Parallel()
	tokens := NewTokens(testKey, time.Hour)
	issued := time.Now()
	tokens.now = func() time.Time { return issued }

	raw, err := tokens.Issue("user-1")
	require.NoError(t, err)

	tokens.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	assert.Contains(t, err.Error(), "expired")
}

func TestTokens_WrongKey(t *testing.T) {
	t.Parallel()

	raw, err := NewTokens(testKey, time.Hour).Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokens(strings.Repeat("x", 64), time.Hour).Verify(raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTokens_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()
	tokens := NewTokens(testKey, time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = tokens.Verify(raw)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestTokens_Garbage(t *testing.T) {
	t.Parallel()
	tokens := NewTokens(testKey, time.Hour)

	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := tokens.Verify(raw)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, raw)
	}
}
