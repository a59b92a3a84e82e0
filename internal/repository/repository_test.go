package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

var (
	questionCols = []string{"id", "title", "description", "category", "created_at", "updated_at", "upvotes", "downvotes"}
	answerCols   = []string{"id", "question_id", "content", "created_at", "updated_at", "upvotes", "downvotes"}
	fixedTime    = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func questionRow(id uint64, title string, up, down int64) *sqlmock.Rows {
	return sqlmock.NewRows(questionCols).
		AddRow(id, title, "desc", "general", fixedTime, fixedTime, up, down)
}

func answerRow(id, questionID uint64, content string, up, down int64) *sqlmock.Rows {
	return sqlmock.NewRows(answerCols).
		AddRow(id, questionID, content, fixedTime, fixedTime, up, down)
}
