package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/qa-forum-api/internal/metrics"
    "github.com/iliyamo/qa-forum-api/internal/model"
    "github.com/iliyamo/qa-forum-api/internal/queue"
)

// QuestionStore is implemented by repository.QuestionRepo.
type QuestionStore interface {
    List(ctx context.Context, f model.QuestionFilter) ([]*model.Question, error)
    GetByID(ctx context.Context, id uint64) (*model.Question, error)
    Create(ctx context.Context, q *model.Question) error
    Update(ctx context.Context, q *model.Question) error
    Delete(ctx context.Context, id uint64) error
}

// AnswerStore is implemented by repository.AnswerRepo.
type AnswerStore interface {
    ListByQuestion(ctx context.Context, questionID uint64) ([]*model.Answer, error)
    GetByID(ctx context.Context, id uint64) (*model.Answer, error)
    Create(ctx context.Context, a *model.Answer) error
    Update(ctx context.Context, a *model.Answer) error
    Delete(ctx context.Context, id uint64) error
}

// VoteCaster is implemented by repository.VoteRepo.  Both methods record
// one vote and return the target with fresh aggregates.
type VoteCaster interface {
    VoteQuestion(ctx context.Context, questionID uint64, value int) (*model.Question, error)
    VoteAnswer(ctx context.Context, answerID uint64, value int) (*model.Answer, error)
}

// QuestionHandler serves /questions and the answers nested under it.
type QuestionHandler struct {
    Questions QuestionStore
    Answers   AnswerStore
    Votes     VoteCaster
    Events    Events
    // EmptyListNotFound answers an empty listing with 404.
    EmptyListNotFound bool
}

// List handles GET /questions?title=&category=.
func (h *QuestionHandler) List(c echo.Context) error {
    f := model.QuestionFilter{Title: trim(c.QueryParam("title")), Category: trim(c.QueryParam("category"))}
    qs, err := h.Questions.List(c.Request().Context(), f)
    if err != nil {
        return storeError(err, "Question not found.")
    }
    if len(qs) == 0 && h.EmptyListNotFound {
        return echo.NewHTTPError(http.StatusNotFound, "Question not found.")
    }
    out := make([]questionDTO, 0, len(qs))
    for _, q := range qs {
        out = append(out, toQuestionDTO(q))
    }
    return respond(c, http.StatusOK, "Successfully retrieved the list of questions.", out)
}

// Get handles GET /questions/:id.
func (h *QuestionHandler) Get(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    q, err := h.Questions.GetByID(c.Request().Context(), id)
    if err != nil {
        return storeError(err, "Question not found.")
    }
    return respond(c, http.StatusOK, "Successfully retrieved the question.", toQuestionDTO(q))
}

// Create handles POST /questions.
func (h *QuestionHandler) Create(c echo.Context) error {
    var req questionReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    ctx := c.Request().Context()
    q := &model.Question{Title: req.Title, Description: req.Description, Category: req.Category}
    if err := h.Questions.Create(ctx, q); err != nil {
        return storeError(err, "Question not found.")
    }
    h.Events.emit(ctx, c, queue.ActivityEvent{Type: queue.QuestionCreated, QuestionID: q.ID, Title: q.Title})
    return respond(c, http.StatusCreated, "Question created successfully.", toQuestionDTO(q))
}

// Update handles PUT /questions/:id.
func (h *QuestionHandler) Update(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    var req questionReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    q := &model.Question{ID: id, Title: req.Title, Description: req.Description, Category: req.Category}
    if err := h.Questions.Update(c.Request().Context(), q); err != nil {
        return storeError(err, "Question not found.")
    }
    return respond(c, http.StatusOK, "Successfully updated the question.", toQuestionDTO(q))
}

// Delete handles DELETE /questions/:id.  Answers and votes go with it.
func (h *QuestionHandler) Delete(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    ctx := c.Request().Context()
    if err := h.Questions.Delete(ctx, id); err != nil {
        return storeError(err, "Question not found.")
    }
    h.Events.emit(ctx, c, queue.ActivityEvent{Type: queue.QuestionDeleted, QuestionID: id})
    return respond(c, http.StatusOK, "Question and its answers deleted successfully.", nil)
}

// ListAnswers handles GET /questions/:id/answers.  A missing question is
// always 404; a question without answers follows EmptyListNotFound.
func (h *QuestionHandler) ListAnswers(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    as, err := h.Answers.ListByQuestion(c.Request().Context(), id)
    if err != nil {
        return storeError(err, "Question not found.")
    }
    if len(as) == 0 && h.EmptyListNotFound {
        return echo.NewHTTPError(http.StatusNotFound, "Answer not found.")
    }
    out := make([]answerDTO, 0, len(as))
    for _, a := range as {
        out = append(out, toAnswerDTO(a))
    }
    return respond(c, http.StatusOK, "Successfully retrieved the answers.", out)
}

// CreateAnswer handles POST /questions/:id/answers.
func (h *QuestionHandler) CreateAnswer(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    var req answerReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    ctx := c.Request().Context()
    a := &model.Answer{QuestionID: id, Content: req.Content}
    if err := h.Answers.Create(ctx, a); err != nil {
        return storeError(err, "Question not found.")
    }
    h.Events.emit(ctx, c, queue.ActivityEvent{Type: queue.AnswerCreated, QuestionID: id, AnswerID: a.ID})
    return respond(c, http.StatusCreated, "Answer created successfully.", toAnswerDTO(a))
}

// Upvote handles POST /questions/:id/upvote.
func (h *QuestionHandler) Upvote(c echo.Context) error { return h.vote(c, model.Upvote) }

// Downvote handles POST /questions/:id/downvote.
func (h *QuestionHandler) Downvote(c echo.Context) error { return h.vote(c, model.Downvote) }

func (h *QuestionHandler) vote(c echo.Context, value int) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    ctx := c.Request().Context()
    q, err := h.Votes.VoteQuestion(ctx, id, value)
    if err != nil {
        return storeError(err, "Question not found.")
    }
    metrics.RecordVote("question", value)
    h.Events.emit(ctx, c, queue.ActivityEvent{
        Type: queue.VoteCast, QuestionID: id, Vote: value, Upvotes: q.Upvotes, Downvotes: q.Downvotes,
    })
    return respond(c, http.StatusOK, "Successfully "+voteVerb(value)+" the question.", toQuestionDTO(q))
}

func voteVerb(value int) string {
    if value == model.Upvote {
        return "upvoted"
    }
    return "downvoted"
}
