// Package repository contains data access logic separated from HTTP handlers.
// This file holds the question queries. Vote counts are aggregated from
// question_votes on every read rather than stored as counters.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/qa-forum-api/internal/database"
	"github.com/iliyamo/qa-forum-api/internal/model"
)

const questionSelect = `SELECT q.id, q.title, COALESCE(q.description, ''), q.category, q.created_at, q.updated_at,
       CAST(COALESCE(SUM(CASE WHEN qv.vote = 1 THEN 1 ELSE 0 END), 0) AS SIGNED) AS upvotes,
       CAST(COALESCE(SUM(CASE WHEN qv.vote = -1 THEN 1 ELSE 0 END), 0) AS SIGNED) AS downvotes
FROM questions q
LEFT JOIN question_votes qv ON qv.question_id = q.id`

// QuestionRepo encapsulates all database queries related to questions.
type QuestionRepo struct {
	db *sql.DB
}

// NewQuestionRepo constructs a QuestionRepo with the provided DB handle.
func NewQuestionRepo(db *sql.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// List returns the questions matching f ordered by id. Title and category
// are matched as case-insensitive substrings; LIKE wildcards in the input
// are escaped so they match literally.
func (r *QuestionRepo) List(ctx context.Context, f model.QuestionFilter) ([]*model.Question, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(questionSelect)
	sb.WriteString("\nWHERE 1=1")
	if f.Title != "" {
		sb.WriteString(" AND LOWER(q.title) LIKE ?")
		args = append(args, likePattern(f.Title))
	}
	if f.Category != "" {
		sb.WriteString(" AND LOWER(q.category) LIKE ?")
		args = append(args, likePattern(f.Category))
	}
	sb.WriteString("\nGROUP BY q.id ORDER BY q.id")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID fetches a question with its vote aggregate. It returns
// ErrQuestionNotFound if no row is found.
func (r *QuestionRepo) GetByID(ctx context.Context, id uint64) (*model.Question, error) {
	return getQuestion(ctx, r.db, id)
}

// Create inserts a new question and populates q from the stored row so
// callers receive the generated id and timestamps.
func (r *QuestionRepo) Create(ctx context.Context, q *model.Question) error {
	const qInsert = "INSERT INTO questions (title, description, category) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, q.Title, q.Description, q.Category)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := getQuestion(ctx, r.db, uint64(id))
	if err != nil {
		return err
	}
	*q = *stored
	return nil
}

// Update overwrites title, description and category. The affected-row
// count is the existence check: zero rows means ErrQuestionNotFound.
// The DSN sets clientFoundRows so unchanged rows still count as matched.
func (r *QuestionRepo) Update(ctx context.Context, q *model.Question) error {
	const qUpdate = `UPDATE questions
	                 SET title = ?, description = ?, category = ?, updated_at = CURRENT_TIMESTAMP
	                 WHERE id = ?`
	res, err := r.db.ExecContext(ctx, qUpdate, q.Title, q.Description, q.Category, q.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	stored, err := getQuestion(ctx, r.db, q.ID)
	if err != nil {
		return err
	}
	*q = *stored
	return nil
}

// Delete removes a question. Answers and votes go with it through the
// ON DELETE CASCADE foreign keys.
func (r *QuestionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM questions WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuestionNotFound
	}
	return nil
}

func getQuestion(ctx context.Context, db database.DBTX, id uint64) (*model.Question, error) {
	row := db.QueryRowContext(ctx, questionSelect+"\nWHERE q.id = ?\nGROUP BY q.id", id)
	q, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(s rowScanner) (*model.Question, error) {
	var q model.Question
	if err := s.Scan(&q.ID, &q.Title, &q.Description, &q.Category, &q.CreatedAt, &q.UpdatedAt, &q.Upvotes, &q.Downvotes); err != nil {
		return nil, err
	}
	return &q, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern lower-cases s, escapes LIKE wildcards and wraps it in %...%.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
