package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/qa-forum-api/internal/metrics"
    "github.com/iliyamo/qa-forum-api/internal/model"
    "github.com/iliyamo/qa-forum-api/internal/queue"
)

// AnswerHandler serves /answers/:id.
type AnswerHandler struct {
    Answers AnswerStore
    Votes   VoteCaster
    Events  Events
}

// Get handles GET /answers/:id.
func (h *AnswerHandler) Get(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    a, err := h.Answers.GetByID(c.Request().Context(), id)
    if err != nil {
        return storeError(err, "Answer not found.")
    }
    return respond(c, http.StatusOK, "Successfully retrieved the answer.", toAnswerDTO(a))
}

// Update handles PUT /answers/:id.
func (h *AnswerHandler) Update(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    var req answerReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    a := &model.Answer{ID: id, Content: req.Content}
    if err := h.Answers.Update(c.Request().Context(), a); err != nil {
        return storeError(err, "Answer not found.")
    }
    return respond(c, http.StatusOK, "Successfully updated the answer.", toAnswerDTO(a))
}

// Delete handles DELETE /answers/:id.
func (h *AnswerHandler) Delete(c echo.Context) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    ctx := c.Request().Context()
    if err := h.Answers.Delete(ctx, id); err != nil {
        return storeError(err, "Answer not found.")
    }
    h.Events.emit(ctx, c, queue.ActivityEvent{Type: queue.AnswerDeleted, AnswerID: id})
    return respond(c, http.StatusOK, "Answer deleted successfully.", nil)
}

func (h *AnswerHandler) Upvote(c echo.Context) error   { return h.vote(c, model.Upvote) }
func (h *AnswerHandler) Downvote(c echo.Context) error { return h.vote(c, model.Downvote) }

func (h *AnswerHandler) vote(c echo.Context, value int) error {
    id, err := parseID(c, "id")
    if err != nil {
        return err
    }
    ctx := c.Request().Context()
    a, err := h.Votes.VoteAnswer(ctx, id, value)
    if err != nil {
        return storeError(err, "Answer not found.")
    }
    metrics.RecordVote("answer", value)
    h.Events.emit(ctx, c, queue.ActivityEvent{
        Type: queue.VoteCast, QuestionID: a.QuestionID, AnswerID: id, Vote: value, Upvotes: a.Upvotes, Downvotes: a.Downvotes,
    })
    return respond(c, http.StatusOK, "Successfully "+voteVerb(value)+" the answer.", toAnswerDTO(a))
}
