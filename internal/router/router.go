package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/qa-forum-api/internal/apidocs"
	"github.com/iliyamo/qa-forum-api/internal/handler"
	"github.com/iliyamo/qa-forum-api/internal/metrics"
	"github.com/iliyamo/qa-forum-api/internal/middleware"
	"github.com/iliyamo/qa-forum-api/internal/validation"
)

// Limiters holds one limiter per rate limit tier.  Global applies to every
// route, Write to content creation and Vote to up/down votes.
type Limiters struct {
	Global middleware.Limiter
	Write  middleware.Limiter
	Vote   middleware.Limiter
}

// Setup installs the validator, the error handler and the middleware every
// request passes through, outermost first: panic recovery, request id,
// request log, metrics, global rate limit and cache invalidation.
func Setup(e *echo.Echo, log logrus.FieldLogger, lim Limiters, invalidate echo.MiddlewareFunc) {
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = middleware.HTTPErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(log))
	e.Use(metrics.Middleware())
	if lim.Global != nil {
		e.Use(middleware.RateLimit(lim.Global, "global", log))
	}
	if invalidate != nil {
		e.Use(invalidate)
	}
}

// RegisterRoutes registers operational routes that do not require
// authentication: the health check and the Prometheus endpoint.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// RegisterDocs serves the OpenAPI document and its Swagger UI under
// /api-docs.
func RegisterDocs(e *echo.Echo, doc *apidocs.Document) {
	e.GET("/api-docs", doc.UI)
	e.GET("/api-docs/openapi.json", doc.JSON)
	e.GET("/api-docs/openapi.yaml", doc.YAML)
}

// RegisterAuth registers all authentication-related routes.  Register,
// login, refresh and logout do not require an existing session; /auth/me
// runs behind JWTAuth.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// limit returns the rate limit middleware for l, or nothing when the tier
// is disabled.
func limit(l middleware.Limiter, scope string, log logrus.FieldLogger) []echo.MiddlewareFunc {
	if l == nil {
		return nil
	}
	return []echo.MiddlewareFunc{middleware.RateLimit(l, scope, log)}
}

func chain(mws ...[]echo.MiddlewareFunc) []echo.MiddlewareFunc {
	var out []echo.MiddlewareFunc
	for _, m := range mws {
		out = append(out, m...)
	}
	return out
}
