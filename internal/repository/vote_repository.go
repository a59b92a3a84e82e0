package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/qa-forum-api/internal/database"
	"github.com/iliyamo/qa-forum-api/internal/model"
)

// VoteRepo appends vote rows and returns the voted entity with its
// recomputed aggregate. Insert and read share one transaction so the
// returned counts always include the vote just cast.
type VoteRepo struct {
	db *sql.DB
}

func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{db: db} }

// VoteQuestion records value against a question. A missing question is
// rejected by the foreign key and reported as ErrQuestionNotFound.
func (r *VoteRepo) VoteQuestion(ctx context.Context, questionID uint64, value int) (*model.Question, error) {
	if !model.ValidVote(value) {
		return nil, ErrInvalidVote
	}
	var out *model.Question
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO question_votes (question_id, vote) VALUES (?, ?)",
			questionID, value); err != nil {
			if database.IsMissingParent(err) {
				return ErrQuestionNotFound
			}
			return err
		}
		q, err := getQuestion(ctx, tx, questionID)
		if err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VoteAnswer records value against an answer.
func (r *VoteRepo) VoteAnswer(ctx context.Context, answerID uint64, value int) (*model.Answer, error) {
	if !model.ValidVote(value) {
		return nil, ErrInvalidVote
	}
	var out *model.Answer
	err := database.WithTx(ctx, r.db, func(ctx context.Context, tx database.DBTX) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO answer_votes (answer_id, vote) VALUES (?, ?)",
			answerID, value); err != nil {
			if database.IsMissingParent(err) {
				return ErrAnswerNotFound
			}
			return err
		}
		a, err := getAnswer(ctx, tx, answerID)
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
