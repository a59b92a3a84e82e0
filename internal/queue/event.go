// Package queue defines the activity events exchanged over the message
// broker along with their publisher and consumer.
package queue

import "time"

// Event types published by the API.
const (
    QuestionCreated = "question.created"
    QuestionDeleted = "question.deleted"
    AnswerCreated   = "answer.created"
    AnswerDeleted   = "answer.deleted"
    VoteCast        = "vote.cast"
)

// ActivityEvent is published after a successful write.  It carries enough
// information for downstream consumers to log or trigger analytics without
// querying the primary database.  Zero-valued ids are omitted.
type ActivityEvent struct {
    Type       string    `json:"type"`
    UserID     uint64    `json:"user_id,omitempty"`
    QuestionID uint64    `json:"question_id,omitempty"`
    AnswerID   uint64    `json:"answer_id,omitempty"`
    Title      string    `json:"title,omitempty"`
    Vote       int       `json:"vote,omitempty"`
    Upvotes    int64     `json:"upvotes,omitempty"`
    Downvotes  int64     `json:"downvotes,omitempty"`
    OccurredAt time.Time `json:"occurred_at"`
}
