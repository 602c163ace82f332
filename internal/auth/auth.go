// Package auth verifies identity-provider tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eduresolve/support-platform/internal/lifecycle"
)

// ErrInvalidToken is returned for tokens that fail verification. It matches lifecycle.ErrUnauthorized.
var ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", lifecycle.ErrUnauthorized)

// Identity is what a verified token says about its bearer.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// Verifier checks an ID token and returns the identity it proves.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Provider selects a Verifier implementation.
type Provider string

const (
	ProviderFirebase Provider = "firebase"
	ProviderJWT      Provider = "jwt"
)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errors.New("authorization header must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}
