package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/qa-forum-api/internal/model"
)

func TestUserRepo_CreateHashesPassword(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users \(username, password_hash, email, name\)`).
		WithArgs("alice", sqlmock.AnyArg(), sql.NullString{String: "a@example.com", Valid: true}, sql.NullString{}).
		WillReturnResult(sqlmock.NewResult(3, 1))

	u := &model.User{Username: "  alice ", Email: "a@example.com"}
	require.NoError(t, repo.Create(context.Background(), u, "secret-pass", bcrypt.MinCost))
	require.Equal(t, uint64(3), u.ID)
	require.NotEqual(t, "secret-pass", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("secret-pass")))
}

func TestUserRepo_CreateDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice'"})

	err := repo.Create(context.Background(), &model.User{Username: "alice"}, "secret-pass", bcrypt.MinCost)
	require.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserRepo_GetByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	cols := []string{"id", "username", "password_hash", "email", "name", "created_at", "updated_at"}
	mock.ExpectQuery(`FROM users WHERE username=\?`).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(uint64(1), "alice", "hash", nil, "Alice", fixedTime, fixedTime))
	mock.ExpectQuery(`FROM users WHERE username=\?`).WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(cols))

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.Equal(t, "", u.Email)
	require.Equal(t, "Alice", u.Name)

	_, err = repo.GetByUsername(context.Background(), "bob")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestTokenRepo_RotateRefresh(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token_hash=\?`).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens \(user_id, token_hash, expires_at\)`).
		WithArgs(uint64(1), "new", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.RotateRefresh(context.Background(), "old", 1, "new", exp))
}

func TestTokenRepo_RotateRefreshAlreadyUsed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE token_hash=\?`).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RotateRefresh(context.Background(), "old", 1, "new", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepo_FindRefresh(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	cols := []string{"id", "user_id", "token_hash", "expires_at", "created_at"}
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).WithArgs("h1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(uint64(1), uint64(2), "h1", fixedTime, fixedTime))
	mock.ExpectQuery(`FROM refresh_tokens WHERE token_hash=\?`).WithArgs("h2").
		WillReturnRows(sqlmock.NewRows(cols))

	tok, err := repo.FindRefresh(context.Background(), "h1")
	require.NoError(t, err)
	require.Equal(t, uint64(2), tok.UserID)

	_, err = repo.FindRefresh(context.Background(), "h2")
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestTokenRepo_DeleteExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)

	mock.ExpectExec(`DELETE FROM refresh_tokens WHERE expires_at < \?`).WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(4), n)
}
