package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 bearer tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier returns nil when secret is empty; a nil Verifier treats every caller
// as anonymous.
func NewVerifier(secret string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// Verify parses token into an authenticated Identity.
func (v *Verifier) Verify(token string) (Identity, error) {
	if v == nil {
		return Anonymous(), ErrInvalidToken
	}

	var c claims
	_, err := v.parser.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Anonymous(), fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Subject == "" {
		return Anonymous(), fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return Identity{
		UserID:          c.Subject,
		Role:            c.Role,
		Permissions:     c.Permissions,
		IsAuthenticated: true,
	}, nil
}

// FromHeader resolves an Authorization header value. Anything other than a valid
// "Bearer <jwt>" is anonymous.
func (v *Verifier) FromHeader(header string) Identity {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return Anonymous()
	}
	id, err := v.Verify(strings.TrimSpace(token))
	if err != nil {
		return Anonymous()
	}
	return id
}

// Sign issues a token for id. Only used by tooling and tests.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	if v == nil {
		return "", errors.New("no signing secret configured")
	}
	now := time.Now()
	c := claims{
		Role:        id.Role,
		Permissions: id.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(v.secret)
}
