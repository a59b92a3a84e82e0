package middleware // middleware holds the echo middleware shared by all routes

import (
    "errors"
    "net/http"
    "strings"

    "github.com/golang-jwt/jwt/v5"
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/qa-forum-api/internal/utils"
)

// Context keys set by JWTAuth.
const (
    CtxUserID   = "user_id"
    CtxUsername = "username"
    CtxClaims   = "claims"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// signed with secret.  A request without a token is refused with 403, an
// expired token with 401 and any other verification failure with 500.  On
// success the user id, username and claims are stored in the context.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            raw := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
            if raw == "" {
                return echo.NewHTTPError(http.StatusForbidden, "No token provided")
            }

            claims, err := utils.ParseToken(secret, raw)
            if err != nil {
                if errors.Is(err, jwt.ErrTokenExpired) {
                    return echo.NewHTTPError(http.StatusUnauthorized, "Token expired")
                }
                return echo.NewHTTPError(http.StatusInternalServerError, "Failed to authenticate token").SetInternal(err)
            }
            uid, _ := claims.UserID()

            c.Set(CtxUserID, uid)
            c.Set(CtxUsername, claims.Username)
            c.Set(CtxClaims, claims)
            return next(c)
        }
    }
}

// bearerToken takes the credential after the auth scheme, the way clients
// send "Bearer <jwt>".
func bearerToken(header string) string {
    header = strings.TrimSpace(header)
    if header == "" {
        return ""
    }
    parts := strings.Fields(header)
    if len(parts) < 2 {
        return ""
    }
    return parts[1]
}
