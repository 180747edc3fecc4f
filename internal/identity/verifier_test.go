package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const projectID = "insurance-app"

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = "test-kid"
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims(provider string) jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":     "https://securetoken.google.com/" + projectID,
		"aud":     projectID,
		"sub":     "uid-123",
		"user_id": "uid-123",
		"email":   "ana@example.com",
		"iat":     now.Add(-time.Minute).Unix(),
		"exp":     now.Add(time.Hour).Unix(),
		"firebase": map[string]any{
			"sign_in_provider": provider,
		},
	}
}

func staticKey(pub *rsa.PublicKey) jwt.Keyfunc {
	return func(*jwt.Token) (interface{}, error) { return pub, nil }
}

func TestFirebaseVerifierAcceptsValidToken(t *testing.T) {
	key := generateTestKey(t)
	v := NewFirebaseVerifierWithKeyfunc(projectID, staticKey(&key.PublicKey))

	id, err := v.Verify(context.Background(), signToken(t, key, jwt.SigningMethodRS256, validClaims("password")))
	require.NoError(t, err)
	assert.Equal(t, &Identity{ExternalID: "uid-123", Email: "ana@example.com", Provider: "email"}, id)

	id, err = v.Verify(context.Background(), signToken(t, key, jwt.SigningMethodRS256, validClaims("google.com")))
	require.NoError(t, err)
	assert.Equal(t, "google", id.Provider)
}

func TestFirebaseVerifierRejects(t *testing.T) {
	key := generateTestKey(t)
	other := generateTestKey(t)
	v := NewFirebaseVerifierWithKeyfunc(projectID, staticKey(&key.PublicKey))

	expired := validClaims("password")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongAudience := validClaims("password")
	wrongAudience["aud"] = "someone-else"

	wrongIssuer := validClaims("password")
	wrongIssuer["iss"] = "https://accounts.example.com"

	noSubject := validClaims("password")
	delete(noSubject, "sub")

	tests := map[string]string{
		"garbage":        "not-a-token",
		"expired":        signToken(t, key, jwt.SigningMethodRS256, expired),
		"wrong audience": signToken(t, key, jwt.SigningMethodRS256, wrongAudience),
		"wrong issuer":   signToken(t, key, jwt.SigningMethodRS256, wrongIssuer),
		"no subject":     signToken(t, key, jwt.SigningMethodRS256, noSubject),
		"foreign key":    signToken(t, other, jwt.SigningMethodRS256, validClaims("password")),
		"wrong alg":      signToken(t, key, jwt.SigningMethodRS512, validClaims("password")),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestDevVerifierDecodesWithoutSignature(t *testing.T) {
	key := generateTestKey(t)
	claims := validClaims("google.com")
	claims["user_id"] = "dev-uid"
	// Expired and signed by an unknown key: the dev strategy does not care.
	claims["exp"] = time.Now().Add(-time.Hour).Unix()

	id, err := NewDevVerifier().Verify(context.Background(), signToken(t, key, jwt.SigningMethodRS256, claims))
	require.NoError(t, err)
	assert.Equal(t, "dev-uid", id.ExternalID)
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, "google", id.Provider)
}

func TestDevVerifierFallsBackToSubject(t *testing.T) {
	key := generateTestKey(t)
	claims := validClaims("password")
	delete(claims, "user_id")

	id, err := NewDevVerifier().Verify(context.Background(), signToken(t, key, jwt.SigningMethodRS256, claims))
	require.NoError(t, err)
	assert.Equal(t, "uid-123", id.ExternalID)
	assert.Equal(t, "email", id.Provider)
}

func TestDevVerifierOpaqueToken(t *testing.T) {
	v := &DevVerifier{now: func() time.Time { return time.UnixMilli(1700000000000) }}

	id, err := v.Verify(context.Background(), "opaque")
	require.NoError(t, err)
	assert.Equal(t, &Identity{ExternalID: "test-user-1700000000000", Email: "test@example.com", Provider: "email"}, id)
}

func TestDevVerifierRejectsMalformed(t *testing.T) {
	_, err := NewDevVerifier().Verify(context.Background(), "a.b")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIsAdminEligible(t *testing.T) {
	emailUser := &Identity{ExternalID: "u1", Provider: "email"}
	googleUser := &Identity{ExternalID: "u2", Provider: "google"}

	admin := Account{Role: "admin", Provider: "email"}

	assert.True(t, IsAdminEligible(emailUser, admin))
	assert.False(t, IsAdminEligible(emailUser, Account{Role: "user", Provider: "email"}))
	assert.False(t, IsAdminEligible(googleUser, admin), "google accounts can never be admins")
	assert.False(t, IsAdminEligible(emailUser, Account{Role: "admin", Provider: "google"}),
		"a stored google account is refused even with an email token")
	assert.False(t, IsAdminEligible(nil, admin))
}

func TestOwns(t *testing.T) {
	id := &Identity{ExternalID: "u1"}
	assert.True(t, id.Owns("u1"))
	assert.False(t, id.Owns("u2"))
	assert.False(t, (&Identity{}).Owns(""))

	var missing *Identity
	assert.False(t, missing.Owns("u1"))
}
