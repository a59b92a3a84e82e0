package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/qa-forum-api/internal/logging"
	"github.com/iliyamo/qa-forum-api/internal/model"
	"github.com/iliyamo/qa-forum-api/internal/repository"
	"github.com/iliyamo/qa-forum-api/internal/utils"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID uint64
	byName map[string]*model.User
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byName: map[string]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, u *model.User, password string, cost int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[u.Username]; ok {
		return repository.ErrUsernameTaken
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	f.nextID++
	u.ID = f.nextID
	u.PasswordHash = hash
	cp := *u
	f.byName[u.Username] = &cp
	return nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.byName[username]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]model.RefreshToken
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]model.RefreshToken{}} }

func (f *fakeTokens) StoreRefresh(_ context.Context, userID uint64, hash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = model.RefreshToken{UserID: userID, TokenHash: hash, ExpiresAt: exp}
	return nil
}

func (f *fakeTokens) FindRefresh(_ context.Context, hash string) (*model.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[hash]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	return &t, nil
}

func (f *fakeTokens) DeleteRefresh(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[hash]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(f.rows, hash)
	return nil
}

func (f *fakeTokens) RotateRefresh(_ context.Context, oldHash string, userID uint64, newHash string, exp time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[oldHash]; !ok {
		return repository.ErrTokenNotFound
	}
	delete(f.rows, oldHash)
	f.rows[newHash] = model.RefreshToken{UserID: userID, TokenHash: newHash, ExpiresAt: exp}
	return nil
}

func (f *fakeTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for h, t := range f.rows {
		if t.ExpiresAt.Before(now) {
			delete(f.rows, h)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokens) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

var testAuthConfig = AuthConfig{
	AccessSecret:  "access-secret",
	RefreshSecret: "refresh-secret",
	AccessTTL:     time.Hour,
	RefreshTTL:    7 * 24 * time.Hour,
	BcryptCost:    bcrypt.MinCost,
}

func newTestService(t *testing.T) (*AuthService, *fakeUsers, *fakeTokens) {
	t.Helper()
	users, tokens := newFakeUsers(), newFakeTokens()
	return NewAuthService(users, tokens, testAuthConfig, logging.Discard()), users, tokens
}

func register(t *testing.T, s *AuthService, username, password string) *model.User {
	t.Helper()
	u, err := s.Register(context.Background(), RegisterInput{Username: username, Password: password})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	s, users, _ := newTestService(t)
	ctx := context.Background()

	u, err := s.Register(ctx, RegisterInput{Username: "  alice ", Password: "password1", Email: "Alice@Example.com"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), u.ID)
	require.Equal(t, "alice", u.Username)
	require.Equal(t, "alice@example.com", u.Email)
	require.NotEqual(t, "password1", users.byName["alice"].PasswordHash)

	_, err = s.Register(ctx, RegisterInput{Username: "alice", Password: "password2"})
	require.ErrorIs(t, err, ErrUserExists)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	s, _, tokens := newTestService(t)
	register(t, s, "alice", "password1")
	ctx := context.Background()

	_, errUnknown := s.Login(ctx, "bob", "password1")
	_, errWrong := s.Login(ctx, "alice", "wrong-password")
	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
	require.Zero(t, tokens.len())
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	s, _, tokens := newTestService(t)
	u := register(t, s, "alice", "password1")

	pair, err := s.Login(context.Background(), "alice", "password1")
	require.NoError(t, err)
	require.Equal(t, 1, tokens.len())

	claims, err := utils.ParseToken(testAuthConfig.AccessSecret, pair.AccessToken)
	require.NoError(t, err)
	id, _ := claims.UserID()
	require.Equal(t, u.ID, id)
	require.Equal(t, "alice", claims.Username)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	// access and refresh secrets are not interchangeable
	_, err = utils.ParseToken(testAuthConfig.AccessSecret, pair.RefreshToken)
	require.Error(t, err)
}

func TestRefreshRotatesOnce(t *testing.T) {
	s, _, tokens := newTestService(t)
	register(t, s, "alice", "password1")
	ctx := context.Background()

	pair, err := s.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	next, err := s.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	require.Equal(t, 1, tokens.len())

	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = s.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshConcurrentUseHasOneWinner(t *testing.T) {
	s, _, _ := newTestService(t)
	register(t, s, "alice", "password1")
	pair, err := s.Login(context.Background(), "alice", "password1")
	require.NoError(t, err)

	var ok, invalid atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Refresh(context.Background(), pair.RefreshToken)
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, ErrInvalidRefresh):
				invalid.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, ok.Load())
	require.EqualValues(t, 7, invalid.Load())
}

func TestRefreshRejects(t *testing.T) {
	s, _, tokens := newTestService(t)
	u := register(t, s, "alice", "password1")
	ctx := context.Background()

	_, err := s.Refresh(ctx, "   ")
	require.ErrorIs(t, err, ErrRefreshMissing)

	_, err = s.Refresh(ctx, "not-a-jwt")
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// signed correctly but never stored
	orphan, err := utils.NewRefreshToken(testAuthConfig.RefreshSecret, u.ID, u.Username, time.Hour)
	require.NoError(t, err)
	_, err = s.Refresh(ctx, orphan.Raw)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// expired
	expired, err := utils.NewRefreshToken(testAuthConfig.RefreshSecret, u.ID, u.Username, -time.Minute)
	require.NoError(t, err)
	require.NoError(t, tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(expired.Raw), expired.Exp))
	_, err = s.Refresh(ctx, expired.Raw)
	require.ErrorIs(t, err, ErrInvalidRefresh)

	// access token presented as refresh token
	access, err := utils.NewAccessToken(testAuthConfig.AccessSecret, u.ID, u.Username, time.Hour)
	require.NoError(t, err)
	_, err = s.Refresh(ctx, access.Token)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestLogout(t *testing.T) {
	s, _, tokens := newTestService(t)
	register(t, s, "alice", "password1")
	ctx := context.Background()

	pair, err := s.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	require.ErrorIs(t, s.Logout(ctx, ""), ErrRefreshMissing)
	require.NoError(t, s.Logout(ctx, pair.RefreshToken))
	require.Zero(t, tokens.len())
	require.ErrorIs(t, s.Logout(ctx, pair.RefreshToken), ErrInvalidRefresh)

	_, err = s.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidRefresh)
}

func TestPurgeExpired(t *testing.T) {
	s, _, tokens := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, tokens.StoreRefresh(ctx, 1, "old", now.Add(-time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, 1, "new", now.Add(time.Hour)))

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	require.Equal(t, 1, tokens.len())
}
