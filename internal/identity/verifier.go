package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"
)

var (
	// ErrTokenExpired signals a well-formed credential past its expiry.
	ErrTokenExpired = errors.New("identity: token expired")
	// ErrTokenInvalid signals a malformed credential or a failed signature,
	// issuer, or audience check.
	ErrTokenInvalid = errors.New("identity: token invalid")
)

// Claims is the verified identity extracted from a provider credential.
type Claims struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Verifier exchanges a bearer credential for verified claims.
type Verifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// FirebaseVerifier validates Firebase ID tokens against the provider's
// published signing keys. Verification is read-only: no provider round trip
// happens beyond the cached key fetch.
type FirebaseVerifier struct {
	projectID string
	keys      KeySource
}

var _ Verifier = (*FirebaseVerifier)(nil)

// NewFirebaseVerifier constructs a verifier for the given Firebase project.
func NewFirebaseVerifier(projectID string, keys KeySource) *FirebaseVerifier {
	return &FirebaseVerifier{projectID: projectID, keys: keys}
}

type tokenClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Verify checks signature, issuer, audience, and timestamps, and returns the
// decoded claims. Callers must treat any error as "not authenticated"; the
// only distinction surfaced is expired vs invalid.
func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Claims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.RS256})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: parse token", ErrTokenInvalid)
	}
	if len(parsed.Headers) == 0 || parsed.Headers[0].KeyID == "" {
		return Claims{}, fmt.Errorf("%w: missing key id", ErrTokenInvalid)
	}

	key, err := v.signingKey(ctx, parsed.Headers[0].KeyID)
	if err != nil {
		return Claims{}, err
	}

	var std gojwt.Claims
	var custom tokenClaims
	if err := parsed.Claims(key.Key, &std, &custom); err != nil {
		return Claims{}, fmt.Errorf("%w: verify signature", ErrTokenInvalid)
	}

	err = std.Validate(gojwt.Expected{
		Issuer:      "https://securetoken.google.com/" + v.projectID,
		AnyAudience: gojwt.Audience{v.projectID},
		Time:        time.Now().UTC(),
	})
	switch {
	case errors.Is(err, gojwt.ErrExpired):
		return Claims{}, ErrTokenExpired
	case err != nil:
		return Claims{}, fmt.Errorf("%w: validate claims", ErrTokenInvalid)
	}

	if strings.TrimSpace(std.Subject) == "" {
		return Claims{}, fmt.Errorf("%w: empty subject", ErrTokenInvalid)
	}

	return Claims{
		Subject: std.Subject,
		Email:   custom.Email,
		Name:    custom.Name,
		Picture: custom.Picture,
	}, nil
}

// signingKey resolves the key for kid, refreshing the cached set once when
// the provider has rotated keys since the last fetch.
func (v *FirebaseVerifier) signingKey(ctx context.Context, kid string) (gojose.JSONWebKey, error) {
	set, err := v.keys.Keys(ctx)
	if err != nil {
		return gojose.JSONWebKey{}, fmt.Errorf("load signing keys: %w", err)
	}
	if matches := set.Key(kid); len(matches) > 0 {
		return matches[0], nil
	}

	set, err = v.keys.Refresh(ctx)
	if err != nil {
		return gojose.JSONWebKey{}, fmt.Errorf("refresh signing keys: %w", err)
	}
	if matches := set.Key(kid); len(matches) > 0 {
		return matches[0], nil
	}

	return gojose.JSONWebKey{}, fmt.Errorf("%w: unknown signing key", ErrTokenInvalid)
}
