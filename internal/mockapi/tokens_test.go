package mockapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	raw, err := issuer.Issue("70", "empresa")
	require.NoError(t, err)

	claims, err := issuer.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "70", claims.Subject)
	require.Equal(t, "empresa", claims.Role)
	require.NotEmpty(t, claims.ID)
}

func TestTokenExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return base }
	raw, err := issuer.Issue("31", "instructor")
	require.NoError(t, err)

	issuer.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = issuer.Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenWrongSecret(t *testing.T) {
	raw, err := NewTokenIssuer("one", 0).Issue("31", "instructor")
	require.NoError(t, err)

	_, err = NewTokenIssuer("two", 0).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := Claims{Role: "empresa", RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer, Subject: "70"}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret", 0).Verify(raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}
