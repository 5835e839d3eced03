package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/weather-todo/internal/auth"
)

const identityKey = "identity"

// SetIdentity stores the authenticated caller on the request context.
func SetIdentity(c echo.Context, id auth.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the caller stored by JWTAuth.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok && id.SubjectID > 0
}

// subjectKey identifies the caller in cache and rate-limit keys; "anon" when
// no identity is present.
func subjectKey(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatInt(id.SubjectID, 10)
	}
	return "anon"
}
