package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/qa-forum-api/internal/handler"
	"github.com/iliyamo/qa-forum-api/internal/middleware"
)

// RegisterAnswers registers /answers/:id.  Answers are created under their
// question (POST /questions/:id/answers); this group reads, edits, deletes
// and votes on existing ones.
func RegisterAnswers(e *echo.Echo, h *handler.AnswerHandler, jwtSecret string, lim Limiters, cache echo.MiddlewareFunc, log logrus.FieldLogger) {
	g := e.Group("/answers")

	if cache != nil {
		g.GET("/:id", h.Get, cache)
	} else {
		g.GET("/:id", h.Get)
	}

	auth := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}
	vote := chain(auth, limit(lim.Vote, "vote", log))

	g.POST("/:id/upvote", h.Upvote, vote...)
	g.POST("/:id/downvote", h.Downvote, vote...)
	g.PUT("/:id", h.Update, auth...)
	g.DELETE("/:id", h.Delete, auth...)
}
