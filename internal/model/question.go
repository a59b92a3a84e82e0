package model

import "time"

// Question represents a row in the `questions` table together with the
// vote aggregate computed from `question_votes`.  Upvotes and Downvotes
// are never stored; every read derives them from the vote rows.
type Question struct {
    ID          uint64    // questions.id
    Title       string    // questions.title
    Description string    // questions.description
    Category    string    // questions.category
    Upvotes     int64     // count of question_votes rows with vote = 1
    Downvotes   int64     // count of question_votes rows with vote = -1
    CreatedAt   time.Time // questions.created_at
    UpdatedAt   time.Time // questions.updated_at
}

// QuestionFilter narrows a question listing.  Empty fields are ignored;
// non-empty fields are matched as case-insensitive substrings and
// combined with AND.
type QuestionFilter struct {
    Title    string
    Category string
}
