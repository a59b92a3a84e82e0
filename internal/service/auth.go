// Package service holds business logic that spans several repositories.
package service

import (
    "context"
    "errors"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/qa-forum-api/internal/metrics"
    "github.com/iliyamo/qa-forum-api/internal/model"
    "github.com/iliyamo/qa-forum-api/internal/repository"
    "github.com/iliyamo/qa-forum-api/internal/utils"
)

var (
    // ErrInvalidCredentials covers both an unknown username and a wrong
    // password so callers cannot tell them apart.
    ErrInvalidCredentials = errors.New("invalid username or password")
    ErrRefreshMissing     = errors.New("no refresh token provided")
    ErrInvalidRefresh     = errors.New("invalid refresh token")
    // ErrUserExists is returned by Register for a taken username.
    ErrUserExists = repository.ErrUsernameTaken
)

// UserStore is the subset of the user repository the auth service needs.
type UserStore interface {
    Create(ctx context.Context, u *model.User, password string, cost int) error
    GetByUsername(ctx context.Context, username string) (*model.User, error)
    GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenStore persists refresh token hashes.
type TokenStore interface {
    StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
    FindRefresh(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
    DeleteRefresh(ctx context.Context, tokenHash string) error
    RotateRefresh(ctx context.Context, oldHash string, userID uint64, newHash string, exp time.Time) error
    DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuthConfig carries token secrets and lifetimes.
type AuthConfig struct {
    AccessSecret  string
    RefreshSecret string
    AccessTTL     time.Duration
    RefreshTTL    time.Duration
    BcryptCost    int
}

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
    AccessToken  string
    AccessExp    time.Time
    RefreshToken string
    RefreshExp   time.Time
}

// RegisterInput is a validated registration request.
type RegisterInput struct {
    Username string
    Password string
    Email    string
    Name     string
}

type AuthService struct {
    users  UserStore
    tokens TokenStore
    cfg    AuthConfig
    log    logrus.FieldLogger
    now    func() time.Time
}

func NewAuthService(users UserStore, tokens TokenStore, cfg AuthConfig, log logrus.FieldLogger) *AuthService {
    return &AuthService{users: users, tokens: tokens, cfg: cfg, log: log, now: time.Now}
}

// Register creates a user.  The password is hashed by the store.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
    u := &model.User{
        Username: strings.TrimSpace(in.Username),
        Email:    strings.ToLower(strings.TrimSpace(in.Email)),
        Name:     strings.TrimSpace(in.Name),
    }
    if err := s.users.Create(ctx, u, in.Password, s.cfg.BcryptCost); err != nil {
        metrics.RecordAuth("register", false)
        if errors.Is(err, repository.ErrUsernameTaken) {
            s.log.WithField("username", u.Username).Info("register rejected: username taken")
            return nil, ErrUserExists
        }
        return nil, err
    }
    metrics.RecordAuth("register", true)
    s.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user registered")
    return u, nil
}

// Login verifies credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (TokenPair, error) {
    username = strings.TrimSpace(username)
    u, err := s.users.GetByUsername(ctx, username)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            utils.BurnPasswordCheck(password)
            metrics.RecordAuth("login", false)
            s.log.WithField("username", username).Info("login failed")
            return TokenPair{}, ErrInvalidCredentials
        }
        return TokenPair{}, err
    }
    if !utils.VerifyPassword(u.PasswordHash, password) {
        metrics.RecordAuth("login", false)
        s.log.WithField("username", username).Info("login failed")
        return TokenPair{}, ErrInvalidCredentials
    }

    pair, err := s.issue(u)
    if err != nil {
        return TokenPair{}, err
    }
    if err := s.tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(pair.RefreshToken), pair.RefreshExp); err != nil {
        return TokenPair{}, err
    }
    metrics.RecordAuth("login", true)
    s.log.WithFields(logrus.Fields{"user_id": u.ID, "username": u.Username}).Info("user logged in")
    return pair, nil
}

// Refresh exchanges a refresh token for a new pair.  The presented token is
// consumed: a second use, concurrent or not, yields ErrInvalidRefresh.
func (s *AuthService) Refresh(ctx context.Context, raw string) (TokenPair, error) {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return TokenPair{}, ErrRefreshMissing
    }
    claims, err := utils.ParseToken(s.cfg.RefreshSecret, raw)
    if err != nil {
        return TokenPair{}, s.refreshFailed("bad token", err)
    }
    userID, _ := claims.UserID()

    oldHash := utils.HashRefreshRaw(raw)
    stored, err := s.tokens.FindRefresh(ctx, oldHash)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return TokenPair{}, s.refreshFailed("unknown token", nil)
        }
        return TokenPair{}, err
    }
    if stored.UserID != userID || !stored.ExpiresAt.After(s.now()) {
        return TokenPair{}, s.refreshFailed("stale token", nil)
    }

    u, err := s.users.GetByID(ctx, userID)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return TokenPair{}, s.refreshFailed("user gone", nil)
        }
        return TokenPair{}, err
    }
    pair, err := s.issue(u)
    if err != nil {
        return TokenPair{}, err
    }
    err = s.tokens.RotateRefresh(ctx, oldHash, u.ID, utils.HashRefreshRaw(pair.RefreshToken), pair.RefreshExp)
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return TokenPair{}, s.refreshFailed("already rotated", nil)
        }
        return TokenPair{}, err
    }
    metrics.RecordAuth("refresh", true)
    s.log.WithField("user_id", u.ID).Info("refresh token rotated")
    return pair, nil
}

// Logout deletes the stored refresh token.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
    raw = strings.TrimSpace(raw)
    if raw == "" {
        return ErrRefreshMissing
    }
    if err := s.tokens.DeleteRefresh(ctx, utils.HashRefreshRaw(raw)); err != nil {
        metrics.RecordAuth("logout", false)
        if errors.Is(err, repository.ErrNotFound) {
            return ErrInvalidRefresh
        }
        return err
    }
    metrics.RecordAuth("logout", true)
    s.log.Info("refresh token revoked")
    return nil
}

// PurgeExpired removes refresh tokens past their expiry.
func (s *AuthService) PurgeExpired(ctx context.Context) (int64, error) {
    return s.tokens.DeleteExpired(ctx, s.now())
}

// RunJanitor calls PurgeExpired every interval until ctx is done.
func (s *AuthService) RunJanitor(ctx context.Context, interval time.Duration) {
    t := time.NewTicker(interval)
    defer t.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-t.C:
            n, err := s.PurgeExpired(ctx)
            if err != nil {
                s.log.WithError(err).Error("purge expired refresh tokens")
                continue
            }
            if n > 0 {
                s.log.WithField("removed", n).Debug("purged expired refresh tokens")
            }
        }
    }
}

func (s *AuthService) issue(u *model.User) (TokenPair, error) {
    access, err := utils.NewAccessToken(s.cfg.AccessSecret, u.ID, u.Username, s.cfg.AccessTTL)
    if err != nil {
        return TokenPair{}, err
    }
    refresh, err := utils.NewRefreshToken(s.cfg.RefreshSecret, u.ID, u.Username, s.cfg.RefreshTTL)
    if err != nil {
        return TokenPair{}, err
    }
    return TokenPair{
        AccessToken:  access.Token,
        AccessExp:    access.Exp,
        RefreshToken: refresh.Raw,
        RefreshExp:   refresh.Exp,
    }, nil
}

func (s *AuthService) refreshFailed(reason string, cause error) error {
    metrics.RecordAuth("refresh", false)
    entry := s.log.WithField("reason", reason)
    if cause != nil {
        entry = entry.WithError(cause)
    }
    entry.Info("refresh rejected")
    return ErrInvalidRefresh
}
