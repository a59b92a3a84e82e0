package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/qa-forum-api/internal/database"
	"github.com/iliyamo/qa-forum-api/internal/model"
)

const answerSelect = `SELECT a.id, a.question_id, a.content, a.created_at, a.updated_at,
       CAST(COALESCE(SUM(CASE WHEN av.vote = 1 THEN 1 ELSE 0 END), 0) AS SIGNED) AS upvotes,
       CAST(COALESCE(SUM(CASE WHEN av.vote = -1 THEN 1 ELSE 0 END), 0) AS SIGNED) AS downvotes
FROM answers a
LEFT JOIN answer_votes av ON av.answer_id = a.id`

// AnswerRepo encapsulates all database queries related to answers.
type AnswerRepo struct {
	db *sql.DB
}

func NewAnswerRepo(db *sql.DB) *AnswerRepo { return &AnswerRepo{db: db} }

// ListByQuestion returns the answers of a question ordered by id. It
// returns ErrQuestionNotFound when the question itself does not exist so
// callers can tell a missing question from one without answers.
func (r *AnswerRepo) ListByQuestion(ctx context.Context, questionID uint64) ([]*model.Answer, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM questions WHERE id = ?", questionID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, answerSelect+"\nWHERE a.question_id = ?\nGROUP BY a.id ORDER BY a.id", questionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches an answer with its vote aggregate.
func (r *AnswerRepo) GetByID(ctx context.Context, id uint64) (*model.Answer, error) {
	return getAnswer(ctx, r.db, id)
}

// Create inserts an answer for a.QuestionID. A missing question is
// detected by the foreign key and reported as ErrQuestionNotFound.
func (r *AnswerRepo) Create(ctx context.Context, a *model.Answer) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO answers (question_id, content) VALUES (?, ?)",
		a.QuestionID, a.Content)
	if err != nil {
		if database.IsMissingParent(err) {
			return ErrQuestionNotFound
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := getAnswer(ctx, r.db, uint64(id))
	if err != nil {
		return err
	}
	*a = *stored
	return nil
}

// Update replaces the content of an answer.
func (r *AnswerRepo) Update(ctx context.Context, a *model.Answer) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE answers SET content = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		a.Content, a.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAnswerNotFound
	}
	stored, err := getAnswer(ctx, r.db, a.ID)
	if err != nil {
		return err
	}
	*a = *stored
	return nil
}

// Delete removes an answer and, by cascade, its votes.
func (r *AnswerRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM answers WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAnswerNotFound
	}
	return nil
}

func getAnswer(ctx context.Context, db database.DBTX, id uint64) (*model.Answer, error) {
	row := db.QueryRowContext(ctx, answerSelect+"\nWHERE a.id = ?\nGROUP BY a.id", id)
	a, err := scanAnswer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnswerNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAnswer(s rowScanner) (*model.Answer, error) {
	var a model.Answer
	if err := s.Scan(&a.ID, &a.QuestionID, &a.Content, &a.CreatedAt, &a.UpdatedAt, &a.Upvotes, &a.Downvotes); err != nil {
		return nil, err
	}
	return &a, nil
}
