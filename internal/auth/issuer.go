package auth

import (
	"strings"
	"time"

	"github.com/iliyamo/weather-todo/internal/model"
)

const (
	// BearerPrefix precedes every issued token and is required on the
	// Authorization header.
	BearerPrefix = "Bearer "
	// TokenTTL is how long an issued token stays valid.
	TokenTTL = 60 * time.Minute
)

// Token is an issued credential.  Bearer already includes BearerPrefix.
type Token struct {
	Bearer    string
	ExpiresAt time.Time
}

// Issuer mints tokens at signup/signin and authenticates inbound requests.
// It keeps no record of what it issued.
type Issuer struct {
	codec *Codec
	ttl   time.Duration
	now   func() time.Time
}

// IssuerOption customises an Issuer.
type IssuerOption func(*Issuer)

// WithClock replaces time.Now for issuing and for expiry checks.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.now = now
		i.codec.now = now
	}
}

// WithTTL overrides TokenTTL.
func WithTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) { i.ttl = ttl }
}

// NewIssuer builds an issuer around key.
func NewIssuer(key SigningKey, opts ...IssuerOption) *Issuer {
	i := &Issuer{codec: NewCodec(key), ttl: TokenTTL, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i
}

// Codec exposes the underlying codec.
func (i *Issuer) Codec() *Codec { return i.codec }

// Issue signs a token for the given user.  Times are truncated to whole
// seconds so ExpiresAt equals the exp claim inside the token.
func (i *Issuer) Issue(subjectID int64, email, nickname string, role model.Role) (Token, error) {
	iat := i.now().UTC().Truncate(time.Second)
	exp := iat.Add(i.ttl)
	payload, err := i.codec.Encode(Identity{
		SubjectID: subjectID,
		Email:     email,
		Nickname:  nickname,
		Role:      role,
	}, iat, exp)
	if err != nil {
		return Token{}, err
	}
	return Token{Bearer: BearerPrefix + payload, ExpiresAt: exp}, nil
}

// StripPrefix returns the payload of an Authorization header value.
func (i *Issuer) StripPrefix(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" || !strings.HasPrefix(raw, BearerPrefix) {
		return "", ErrMissingOrMalformedPrefix
	}
	return strings.TrimSpace(raw[len(BearerPrefix):]), nil
}

// Authenticate is the single entry point for protected operations: it strips
// the prefix and decodes the token, passing failure kinds through unchanged.
func (i *Issuer) Authenticate(raw string) (Identity, error) {
	payload, err := i.StripPrefix(raw)
	if err != nil {
		return Identity{}, err
	}
	c, err := i.codec.Decode(payload)
	if err != nil {
		return Identity{}, err
	}
	return c.Identity, nil
}
