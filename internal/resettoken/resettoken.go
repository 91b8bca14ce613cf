// Package resettoken issues signed password-reset tokens. Tokens are
// self-contained (HS256 JWT) and are never persisted.
package resettoken

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const purpose = "password_reset"

var ErrInvalidToken = errors.New("invalid reset token")

// Token is an issued reset token.
type Token struct {
	Value     string
	ID        string
	UserID    int
	ExpiresAt time.Time
}

type claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Issuer signs and parses reset tokens.
type Issuer struct {
	Secret []byte
	TTL    time.Duration

	now func() time.Time
}

func NewIssuer(secret []byte, ttl time.Duration) *Issuer {
	return &Issuer{Secret: secret, TTL: ttl, now: time.Now}
}

// Issue creates a token for userID with a random ID and the issuer's TTL.
func (i *Issuer) Issue(userID int) (Token, error) {
	now := i.clock()
	t := Token{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(i.TTL),
	}
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        t.ID,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(t.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.Secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign reset token: %w", err)
	}
	t.Value = signed
	return t, nil
}

// Parse validates signature, expiry and purpose and returns the user ID. It is the
// verification half of the reset flow; the redeem endpoint that sets a new password
// is not exposed yet.
func (i *Issuer) Parse(value string) (int, error) {
	var c claims
	_, err := jwt.ParseWithClaims(value, &c, func(t *jwt.Token) (interface{}, error) {
		return i.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Purpose != purpose {
		return 0, ErrInvalidToken
	}
	id, err := strconv.Atoi(c.Subject)
	if err != nil || id <= 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}

func (i *Issuer) clock() time.Time {
	if i.now == nil {
		return time.Now()
	}
	return i.now()
}
