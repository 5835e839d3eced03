package auth

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// minKeyBytes is the smallest HMAC key accepted for HS256.
const minKeyBytes = 32

// SigningKey is the decoded HMAC secret.  It is built once at startup and
// only read afterwards.
type SigningKey struct {
	b []byte
}

// LoadSigningKey decodes a base64 secret from configuration.  Whitespace is
// ignored so keys wrapped over several lines in an env file still load.
func LoadSigningKey(encoded string) (SigningKey, error) {
	cut := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, encoded)
	if cut == "" {
		return SigningKey{}, fmt.Errorf("%w: empty key", ErrKeyConfiguration)
	}
	// accept both padded and unpadded input
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(cut, "="))
	if err != nil {
		return SigningKey{}, fmt.Errorf("%w: not valid base64: %v", ErrKeyConfiguration, err)
	}
	if len(raw) < minKeyBytes {
		return SigningKey{}, fmt.Errorf("%w: key is %d bytes, need at least %d", ErrKeyConfiguration, len(raw), minKeyBytes)
	}
	return SigningKey{b: raw}, nil
}

// bytes returns a copy so callers cannot mutate the key.
func (k SigningKey) bytes() []byte {
	out := make([]byte, len(k.b))
	copy(out, k.b)
	return out
}

// IsZero reports whether the key was never loaded.
func (k SigningKey) IsZero() bool { return len(k.b) == 0 }
