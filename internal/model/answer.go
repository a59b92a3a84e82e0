package model

import "time"

// Answer represents a row in the `answers` table.  An answer always
// belongs to an existing question; the foreign key cascades on delete.
type Answer struct {
    ID         uint64    // answers.id
    QuestionID uint64    // answers.question_id
    Content    string    // answers.content
    Upvotes    int64     // count of answer_votes rows with vote = 1
    Downvotes  int64     // count of answer_votes rows with vote = -1
    CreatedAt  time.Time // answers.created_at
    UpdatedAt  time.Time // answers.updated_at
}
