package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Verifier turns a raw bearer token into an Identity. The production and
// development strategies both implement it; config picks one at startup.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type firebaseClaims struct {
	Email    string `json:"email"`
	UserID   string `json:"user_id"`
	Firebase struct {
		SignInProvider string `json:"sign_in_provider"`
	} `json:"firebase"`
	jwt.RegisteredClaims
}

// FirebaseVerifier checks Firebase ID tokens: RS256 signature against the
// published keys, issuer and audience bound to the project, expiry.
type FirebaseVerifier struct {
	parser  *jwt.Parser
	keyfunc jwt.Keyfunc
	jwks    *keyfunc.JWKS
}

// NewFirebaseVerifier fetches the signing keys from jwksURL and keeps them
// refreshed in the background until Close.
func NewFirebaseVerifier(ctx context.Context, projectID, jwksURL string) (*FirebaseVerifier, error) {
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  5 * time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			slog.Error("firebase jwks refresh failed", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	v := NewFirebaseVerifierWithKeyfunc(projectID, jwks.Keyfunc)
	v.jwks = jwks
	return v, nil
}

// NewFirebaseVerifierWithKeyfunc builds a verifier over an explicit key source.
func NewFirebaseVerifierWithKeyfunc(projectID string, kf jwt.Keyfunc) *FirebaseVerifier {
	return &FirebaseVerifier{
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer("https://securetoken.google.com/"+projectID),
			jwt.WithAudience(projectID),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
		),
		keyfunc: kf,
	}
}

func (v *FirebaseVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	var claims firebaseClaims
	if _, err := v.parser.ParseWithClaims(token, &claims, v.keyfunc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}

	return &Identity{
		ExternalID: claims.Subject,
		Email:      claims.Email,
		Provider:   providerFromSignIn(claims.Firebase.SignInProvider),
	}, nil
}

// Close stops the background key refresh.
func (v *FirebaseVerifier) Close() {
	if v.jwks != nil {
		v.jwks.EndBackground()
	}
}

// DevVerifier reads token claims WITHOUT checking the signature. It exists for
// local development against the Firebase emulator and must never be selected
// in production; config.Validate refuses that combination.
type DevVerifier struct {
	now func() time.Time
}

func NewDevVerifier() *DevVerifier {
	return &DevVerifier{now: time.Now}
}

func (v *DevVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if !strings.Contains(token, ".") {
		return &Identity{
			ExternalID: "test-user-" + strconv.FormatInt(v.now().UnixMilli(), 10),
			Email:      "test@example.com",
			Provider:   providerFromSignIn(""),
		}, nil
	}

	var claims firebaseClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid := claims.UserID
	if uid == "" {
		uid = claims.Subject
	}
	if uid == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}

	return &Identity{
		ExternalID: uid,
		Email:      claims.Email,
		Provider:   providerFromSignIn(claims.Firebase.SignInProvider),
	}, nil
}
