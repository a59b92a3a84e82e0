package model

// Vote values accepted by the vote tables.  Votes are append-only: there is
// no update or delete surface and no per-voter de-duplication.
const (
    Upvote   = 1
    Downvote = -1
)

// ValidVote reports whether v is one of Upvote or Downvote.
func ValidVote(v int) bool { return v == Upvote || v == Downvote }
