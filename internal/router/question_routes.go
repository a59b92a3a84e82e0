package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/qa-forum-api/internal/handler"
	"github.com/iliyamo/qa-forum-api/internal/middleware"
)

// RegisterQuestions registers /questions.  Reads are public and may be
// served from the response cache; every mutation requires a valid access
// token.  Creating content passes the write limiter, votes the vote limiter.
func RegisterQuestions(e *echo.Echo, h *handler.QuestionHandler, jwtSecret string, lim Limiters, cache echo.MiddlewareFunc, log logrus.FieldLogger) {
	g := e.Group("/questions")

	var read []echo.MiddlewareFunc
	if cache != nil {
		read = append(read, cache)
	}
	g.GET("", h.List, read...)
	g.GET("/:id", h.Get, read...)
	g.GET("/:id/answers", h.ListAnswers, read...)

	auth := []echo.MiddlewareFunc{middleware.JWTAuth(jwtSecret)}
	write := chain(auth, limit(lim.Write, "write", log))
	vote := chain(auth, limit(lim.Vote, "vote", log))

	g.POST("", h.Create, write...)
	g.POST("/:id/answers", h.CreateAnswer, write...)
	g.POST("/:id/upvote", h.Upvote, vote...)
	g.POST("/:id/downvote", h.Downvote, vote...)
	g.PUT("/:id", h.Update, auth...)
	g.DELETE("/:id", h.Delete, auth...)
}
