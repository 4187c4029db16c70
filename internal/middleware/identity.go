package middleware

// identity.go holds the context keys written by JWTAuth and the accessors
// used by handlers and the other middleware.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-reservation/internal/model"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role.
func Role(c echo.Context) (model.Role, bool) {
	s, ok := c.Get(ctxRole).(string)
	r := model.Role(s)
	return r, ok && r.Valid()
}

// identityKey is the caller id used in rate limit keys, "guest" when
// the request is anonymous.
func identityKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
