package handler

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/qa-forum-api/internal/middleware"
    "github.com/iliyamo/qa-forum-api/internal/model"
    "github.com/iliyamo/qa-forum-api/internal/service"
)

// Authenticator is implemented by service.AuthService.
type Authenticator interface {
    Register(ctx context.Context, in service.RegisterInput) (*model.User, error)
    Login(ctx context.Context, username, password string) (service.TokenPair, error)
    Refresh(ctx context.Context, raw string) (service.TokenPair, error)
    Logout(ctx context.Context, raw string) error
}

// AuthHandler serves /auth.
type AuthHandler struct {
    Auth Authenticator
}

func NewAuthHandler(a Authenticator) *AuthHandler { return &AuthHandler{Auth: a} }

// ----- DTOs -----

type registerReq struct {
    Username string `json:"username" validate:"required,min=4,max=100"`
    Password string `json:"password" validate:"required,min=8,max=26"`
    Email    string `json:"email" validate:"omitempty,email,max=255"`
    Name     string `json:"name" validate:"max=100"`
}

type loginReq struct {
    Username string `json:"username" validate:"required,min=4,max=100"`
    Password string `json:"password" validate:"required,min=8,max=26"`
}

func credentialMessages() map[string]string {
    return map[string]string{
        "username": "Please input username between 4 to 100 characters long.",
        "password": "Please input password between 8 to 26 characters long.",
        "email":    "Please input a valid email address.",
        "name":     "Please input name not exceed 100 characters.",
    }
}

// Passwords are taken as typed.
func (r *registerReq) normalize() {
    r.Username = trim(r.Username)
    r.Email = trim(r.Email)
    r.Name = trim(r.Name)
}

func (r *loginReq) normalize() { r.Username = trim(r.Username) }

func (registerReq) ValidationMessages() map[string]string { return credentialMessages() }
func (loginReq) ValidationMessages() map[string]string    { return credentialMessages() }

type refreshReq struct {
    RefreshToken string `json:"refreshToken"`
}

// tokenResp keeps token and refreshToken at the top level for existing
// clients and repeats them under data to match the envelope.
type tokenResp struct {
    Message      string    `json:"message"`
    Token        string    `json:"token"`
    RefreshToken string    `json:"refreshToken"`
    Data         tokenData `json:"data"`
}

type tokenData struct {
    Token            string    `json:"token"`
    RefreshToken     string    `json:"refreshToken"`
    ExpiresAt        time.Time `json:"expiresAt"`
    RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func tokens(msg string, p service.TokenPair) tokenResp {
    return tokenResp{
        Message:      msg,
        Token:        p.AccessToken,
        RefreshToken: p.RefreshToken,
        Data: tokenData{
            Token:            p.AccessToken,
            RefreshToken:     p.RefreshToken,
            ExpiresAt:        p.AccessExp,
            RefreshExpiresAt: p.RefreshExp,
        },
    }
}

func internal(err error) error {
    return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error").SetInternal(err)
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    u, err := h.Auth.Register(c.Request().Context(), service.RegisterInput{
        Username: req.Username,
        Password: req.Password,
        Email:    req.Email,
        Name:     req.Name,
    })
    if err != nil {
        if errors.Is(err, service.ErrUserExists) {
            return echo.NewHTTPError(http.StatusNotFound, "User already exists")
        }
        return internal(err)
    }
    return respond(c, http.StatusCreated, fmt.Sprintf("User id: %d created", u.ID), nil)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if err := bindValid(c, &req); err != nil {
        return err
    }
    pair, err := h.Auth.Login(c.Request().Context(), req.Username, req.Password)
    if err != nil {
        if errors.Is(err, service.ErrInvalidCredentials) {
            return echo.NewHTTPError(http.StatusBadRequest, "Invalid username or password")
        }
        return internal(err)
    }
    return c.JSON(http.StatusOK, tokens("Logged in successfully.", pair))
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req) // a malformed body is the same as a missing token
    pair, err := h.Auth.Refresh(c.Request().Context(), req.RefreshToken)
    if err != nil {
        return refreshError(err)
    }
    return c.JSON(http.StatusOK, tokens("Token refreshed successfully.", pair))
}

// Logout handles POST /auth/logout by revoking the presented refresh token.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    if err := h.Auth.Logout(c.Request().Context(), req.RefreshToken); err != nil {
        return refreshError(err)
    }
    return respond(c, http.StatusOK, "Logged out successfully.", nil)
}

// Me returns the identity carried by the access token.
func (h *AuthHandler) Me(c echo.Context) error {
    uid, _ := middleware.UserID(c)
    data := echo.Map{"id": uid, "username": middleware.Username(c)}
    if cl := middleware.Claims(c); cl != nil && cl.ExpiresAt != nil {
        data["expiresAt"] = cl.ExpiresAt.Time
    }
    return respond(c, http.StatusOK, "Authenticated.", data)
}

func refreshError(err error) error {
    switch {
    case errors.Is(err, service.ErrRefreshMissing):
        return echo.NewHTTPError(http.StatusForbidden, "No refresh token provided")
    case errors.Is(err, service.ErrInvalidRefresh):
        return echo.NewHTTPError(http.StatusForbidden, "Invalid refresh token")
    }
    return echo.NewHTTPError(http.StatusInternalServerError, "Failed to refresh token").SetInternal(err)
}
