package auth

import (
	"errors"
	"fmt"

	apperrors "github.com/iliyamo/weather-todo/pkg/errors"
)

// ErrKeyConfiguration is returned when the configured signing key cannot be
// used.  It is a startup failure; the server must not start serving.
var ErrKeyConfiguration = errors.New("jwt signing key misconfigured")

// Token failure kinds.  Every kind wraps apperrors.ErrUnauthorized so the HTTP
// layer answers all of them the same way; the distinct values exist for logs.
var (
	ErrTokenMalformed           = fmt.Errorf("%w: malformed token", apperrors.ErrUnauthorized)
	ErrTokenExpired             = fmt.Errorf("%w: expired token", apperrors.ErrUnauthorized)
	ErrTokenSignatureInvalid    = fmt.Errorf("%w: invalid token signature", apperrors.ErrUnauthorized)
	ErrTokenUnsupportedFormat   = fmt.Errorf("%w: unsupported token format", apperrors.ErrUnauthorized)
	ErrMissingOrMalformedPrefix = fmt.Errorf("%w: missing or malformed bearer prefix", apperrors.ErrUnauthorized)
)

// Kind returns a short label for a token error, used as a log field.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrMissingOrMalformedPrefix):
		return "missing_prefix"
	case errors.Is(err, ErrTokenUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	}
	return "unknown"
}
