// Package session resolves the identity the journal runs as. The sync layer
// only sees the resulting user id.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/simaogato/tradejournal-backend/internal/logger"
)

// Provider yields the session token and the user id it belongs to
type Provider interface {
	Token(ctx context.Context) (string, error)
	UserID(ctx context.Context) (string, error)
}

// SubjectOf reads the user id of a token without verifying it.
// Verification is the server's job; clients only need the subject.
func SubjectOf(token string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: token has no subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// Static is a provider for a pre-issued token
type Static struct {
	token  string
	userID string
}

// NewStatic creates a provider for token
func NewStatic(token string) (*Static, error) {
	userID, err := SubjectOf(token)
	if err != nil {
		return nil, err
	}
	return &Static{token: token, userID: userID}, nil
}

// Token implements Provider
func (s *Static) Token(context.Context) (string, error) {
	return s.token, nil
}

// UserID implements Provider
func (s *Static) UserID(context.Context) (string, error) {
	return s.userID, nil
}

// SignInFunc obtains a token for a new anonymous identity
type SignInFunc func(ctx context.Context) (string, error)

// Anonymous signs in on first use and keeps that identity for the life of
// the process. A failed sign-in is not cached.
type Anonymous struct {
	signIn SignInFunc

	mu     sync.Mutex
	token  string
	userID string
}

// NewAnonymous creates a provider that signs in through signIn
func NewAnonymous(signIn SignInFunc) *Anonymous {
	return &Anonymous{signIn: signIn}
}

// Token implements Provider
func (a *Anonymous) Token(ctx context.Context) (string, error) {
	if err := a.resolve(ctx); err != nil {
		return "", err
	}
	return a.token, nil
}

// UserID implements Provider
func (a *Anonymous) UserID(ctx context.Context) (string, error) {
	if err := a.resolve(ctx); err != nil {
		return "", err
	}
	return a.userID, nil
}

func (a *Anonymous) resolve(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" {
		return nil
	}

	token, err := a.signIn(ctx)
	if err != nil {
		return fmt.Errorf("anonymous sign-in failed: %w", err)
	}
	userID, err := SubjectOf(token)
	if err != nil {
		return err
	}

	a.token, a.userID = token, userID
	logger.Info("Signed in anonymously as %s", userID)
	return nil
}

// Credentials adapts a Provider to grpc's PerRPCCredentials
type Credentials struct {
	Provider Provider
}

// GetRequestMetadata implements credentials.PerRPCCredentials
func (c Credentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	if c.Provider == nil {
		return nil, errors.New("no session provider")
	}
	token, err := c.Provider.Token(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"authorization": "Bearer " + token}, nil
}

// RequireTransportSecurity implements credentials.PerRPCCredentials.
// Tokens are also sent over plaintext connections in local setups.
func (c Credentials) RequireTransportSecurity() bool {
	return false
}
