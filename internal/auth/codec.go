// Package auth issues and validates the signed bearer tokens that carry a
// user's identity between requests.  Validation is stateless: nothing about an
// issued token is stored server side.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/weather-todo/internal/model"
)

// Identity is the authenticated caller reconstructed from a token.
type Identity struct {
	SubjectID int64
	Email     string
	Nickname  string
	Role      model.Role
}

// Claims is a decoded token: the identity plus its temporal bounds.
type Claims struct {
	Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the JWT body.  sub holds the user id as a decimal string.
type tokenClaims struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	UserRole string `json:"userRole"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens with a single key.
type Codec struct {
	key SigningKey
	now func() time.Time
}

// NewCodec returns a codec bound to key.  It panics on a zero key because a
// codec without a key would accept nothing and sign garbage.
func NewCodec(key SigningKey) *Codec {
	if key.IsZero() {
		panic("auth: NewCodec called with an empty signing key")
	}
	return &Codec{key: key, now: time.Now}
}

// Encode signs id with the given issue and expiry times.  The same inputs
// always produce the same string.
func (c *Codec) Encode(id Identity, issuedAt, expiresAt time.Time) (string, error) {
	claims := tokenClaims{
		Email:    id.Email,
		Nickname: id.Nickname,
		UserRole: id.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.SubjectID, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.key.bytes())
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies payload and returns its claims.  Failures are one of
// ErrTokenMalformed, ErrTokenExpired, ErrTokenSignatureInvalid or
// ErrTokenUnsupportedFormat.
func (c *Codec) Decode(payload string) (Claims, error) {
	var tc tokenClaims
	_, err := jwt.ParseWithClaims(payload, &tc, c.keyFunc,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return Claims{}, classify(err)
	}

	sub, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil || sub <= 0 {
		return Claims{}, fmt.Errorf("%w: subject %q", ErrTokenMalformed, tc.Subject)
	}
	role, err := model.ParseRole(tc.UserRole)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	out := Claims{
		Identity: Identity{
			SubjectID: sub,
			Email:     tc.Email,
			Nickname:  tc.Nickname,
			Role:      role,
		},
		ExpiresAt: tc.ExpiresAt.Time,
	}
	if tc.IssuedAt != nil {
		out.IssuedAt = tc.IssuedAt.Time
	}
	return out, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	// Only HS256 is ever issued; anything else, "none" included, is refused
	// before the signature is looked at.
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, ErrTokenUnsupportedFormat
	}
	return c.key.bytes(), nil
}

// classify maps jwt parser errors onto the token failure kinds.  The parser
// verifies the signature before it validates exp, so a forged expired token
// reports a signature failure.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrTokenUnsupportedFormat), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenUnsupportedFormat, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
