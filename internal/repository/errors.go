// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors. Entity-specific errors wrap ErrNotFound so
// callers can match either the specific or the generic value.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the addressed row does not exist, either
// because a lookup found nothing, a mutation affected no rows, or a
// foreign key rejected an insert referencing a missing parent.
var ErrNotFound = errors.New("not found")

var (
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	ErrAnswerNotFound   = fmt.Errorf("answer %w", ErrNotFound)
	ErrUserNotFound     = fmt.Errorf("user %w", ErrNotFound)
	ErrTokenNotFound    = fmt.Errorf("refresh token %w", ErrNotFound)
)

// ErrUsernameTaken is returned when registering a username that already
// exists. The unique index on users.username is the source of truth.
var ErrUsernameTaken = errors.New("username already exists")

// ErrInvalidVote is returned for vote values other than +1 and -1.
var ErrInvalidVote = errors.New("vote must be 1 or -1")
