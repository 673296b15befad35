package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer names the issuer claim of every session token
const TokenIssuer = "tradejournal"

var (
	// ErrInvalidToken is returned for tokens that fail verification
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims are the claims of a session token; Subject is the user id
type Claims struct {
	Anonymous bool `json:"anonymous,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 session tokens
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an issuer. A zero ttl issues tokens that never expire.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for userID. Anonymous tokens never expire: the token
// is the only credential of an anonymous identity and nothing can renew it.
func (i *Issuer) Issue(userID string, anonymous bool) (string, error) {
	if userID == "" {
		return "", errors.New("user id cannot be empty")
	}

	now := i.now()
	claims := &Claims{
		Anonymous: anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   TokenIssuer,
		},
	}
	if i.ttl > 0 && !anonymous {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(i.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// IssueAnonymous creates a new anonymous identity and signs a token for it
func (i *Issuer) IssueAnonymous() (token, userID string, err error) {
	userID = uuid.NewString()
	token, err = i.Issue(userID, true)
	return token, userID, err
}

// Verify checks the signature and expiry of token and returns its user id
func (i *Issuer) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
