package middleware

// identity.go provides the user identification helper shared by the
// cache and rate-limit key builders.  It reads the user_id value that
// JWTAuth stored in the Echo context; unauthenticated requests are
// keyed as "anon".

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a string form of the authenticated user ID
// from context, or "anon" when the request carries no valid token.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	case uint64:
		return fmt.Sprintf("%d", t)
	case int64:
		return fmt.Sprintf("%d", t)
	}
	return "anon"
}
