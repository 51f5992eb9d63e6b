package middleware

// identity.go holds helpers shared across middleware files. rateID
// renders the authenticated user for rate-limit bucket keys; guests
// all share the "guest" identity and are distinguished by IP instead.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// rateID returns a stable string identity for the requester. JWTAuth
// stores the sub claim under "user_id"; when the route is public or
// the claim is missing, "guest" is returned.
func rateID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "guest"
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
	return "guest"
}
