// internal/auth/google.go
package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// GoogleClaims are the ID-token claims this app relies on.
type GoogleClaims struct {
	jwt.RegisteredClaims
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Nonce   string `json:"nonce"`
}

// GoogleVerifier validates Google ID tokens against the provider's JWKS.
// Keys are fetched and cached by key id; only RS256 signatures with this
// app's client id as audience are accepted.
type GoogleVerifier struct {
	keyfunc  jwt.Keyfunc
	audience string
}

// NewGoogleVerifier starts a background-refreshing JWKS client for the
// given endpoint.
func NewGoogleVerifier(ctx context.Context, jwksURL, clientID string) (*GoogleVerifier, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to load Google JWKS: %w", err)
	}
	return &GoogleVerifier{keyfunc: k.Keyfunc, audience: clientID}, nil
}

// Verify checks signature, algorithm and audience and returns the claims.
func (v *GoogleVerifier) Verify(idToken string) (*GoogleClaims, error) {
	claims := &GoogleClaims{}
	token, err := jwt.ParseWithClaims(idToken, claims, v.keyfunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("ID token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
