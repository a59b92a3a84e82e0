package middleware

// identity.go defines helpers that read the caller identity stored by
// JWTAuth.  Handlers and the request logger use them; on public routes
// they report no user.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/qa-forum-api/internal/utils"
)

// UserID returns the authenticated user id, or false when the request is
// anonymous.
func UserID(c echo.Context) (uint64, bool) {
    id, ok := c.Get(CtxUserID).(uint64)
    return id, ok && id != 0
}

// Username returns the authenticated username or "guest".
func Username(c echo.Context) string {
    if v, ok := c.Get(CtxUsername).(string); ok && v != "" {
        return v
    }
    return "guest"
}

// Claims returns the verified token claims, or nil when JWTAuth did not run.
func Claims(c echo.Context) *utils.Claims {
    cl, _ := c.Get(CtxClaims).(*utils.Claims)
    return cl
}
