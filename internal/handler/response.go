package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/qa-forum-api/internal/middleware"
    "github.com/iliyamo/qa-forum-api/internal/model"
    "github.com/iliyamo/qa-forum-api/internal/queue"
    "github.com/iliyamo/qa-forum-api/internal/repository"
)

// msgDatabase is the client message for any persistence failure.  The cause
// is logged by the error handler.
const msgDatabase = "Server could not process the request due to database issue."

// envelope is the body of every successful response.
type envelope struct {
    Message string      `json:"message"`
    Data    interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, status int, msg string, data interface{}) error {
    return c.JSON(status, envelope{Message: msg, Data: data})
}

type questionDTO struct {
    ID          uint64    `json:"id"`
    Title       string    `json:"title"`
    Description string    `json:"description"`
    Category    string    `json:"category"`
    Upvotes     int64     `json:"upvotes"`
    Downvotes   int64     `json:"downvotes"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}

func toQuestionDTO(q *model.Question) questionDTO {
    return questionDTO{
        ID:          q.ID,
        Title:       q.Title,
        Description: q.Description,
        Category:    q.Category,
        Upvotes:     q.Upvotes,
        Downvotes:   q.Downvotes,
        CreatedAt:   q.CreatedAt,
        UpdatedAt:   q.UpdatedAt,
    }
}

type answerDTO struct {
    ID         uint64    `json:"id"`
    QuestionID uint64    `json:"question_id"`
    Content    string    `json:"content"`
    Upvotes    int64     `json:"upvotes"`
    Downvotes  int64     `json:"downvotes"`
    CreatedAt  time.Time `json:"created_at"`
    UpdatedAt  time.Time `json:"updated_at"`
}

func toAnswerDTO(a *model.Answer) answerDTO {
    return answerDTO{
        ID:         a.ID,
        QuestionID: a.QuestionID,
        Content:    a.Content,
        Upvotes:    a.Upvotes,
        Downvotes:  a.Downvotes,
        CreatedAt:  a.CreatedAt,
        UpdatedAt:  a.UpdatedAt,
    }
}

// questionReq is the body of POST and PUT /questions.
type questionReq struct {
    Title       string `json:"title" validate:"required,min=10,max=100"`
    Description string `json:"description" validate:"max=300"`
    Category    string `json:"category" validate:"max=100"`
}

func (r *questionReq) normalize() {
    r.Title = trim(r.Title)
    r.Description = trim(r.Description)
    r.Category = trim(r.Category)
}

func (questionReq) ValidationMessages() map[string]string {
    return map[string]string{
        "title":       "Invalid title. Please input between 10 to 100 characters.",
        "description": "Invalid description. Please input not exceed 300 characters.",
        "category":    "Invalid category. Please input not exceed 100 characters.",
    }
}

// answerReq is the body of POST /questions/:id/answers and PUT /answers/:id.
type answerReq struct {
    Content string `json:"content" validate:"required,max=300"`
}

func (r *answerReq) normalize() { r.Content = trim(r.Content) }

func (answerReq) ValidationMessages() map[string]string {
    return map[string]string{
        "content": "Invalid content. Please input between 1 to 300 characters.",
    }
}

// normalizer is implemented by payloads that clean up their fields before
// validation, so length rules apply to the value that gets stored.
type normalizer interface {
    normalize()
}

// bindValid decodes the JSON body into req, normalizes it and validates it.
func bindValid(c echo.Context, req interface{}) error {
    if err := c.Bind(req); err != nil {
        return echo.NewHTTPError(http.StatusBadRequest, "Missing or invalid request data.").SetInternal(err)
    }
    if n, ok := req.(normalizer); ok {
        n.normalize()
    }
    return c.Validate(req)
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    if err != nil || id == 0 {
        return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+name+".")
    }
    return id, nil
}

// storeError maps repository errors onto responses.  A NotFound becomes 404
// with notFoundMsg; anything else is a 500 with the cause attached.
func storeError(err error, notFoundMsg string) error {
    if errors.Is(err, repository.ErrNotFound) {
        return echo.NewHTTPError(http.StatusNotFound, notFoundMsg).SetInternal(err)
    }
    return echo.NewHTTPError(http.StatusInternalServerError, msgDatabase).SetInternal(err)
}

// Events forwards activity events without failing the request.
type Events struct {
    Pub queue.Publisher
    Log logrus.FieldLogger
}

func (e Events) emit(ctx context.Context, c echo.Context, ev queue.ActivityEvent) {
    if e.Pub == nil {
        return
    }
    if uid, ok := middleware.UserID(c); ok {
        ev.UserID = uid
    }
    if err := e.Pub.Publish(ctx, ev); err != nil && e.Log != nil {
        e.Log.WithError(err).WithField("event", ev.Type).Warn("activity event not sent")
    }
}

func trim(s string) string { return strings.TrimSpace(s) }
