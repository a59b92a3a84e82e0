package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/sha256" // SHA‑256 hashing for refresh tokens
    "encoding/hex"  // hex encoding of the digest
    "errors"
    "strconv"
    "time"

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"
)

// Claims is the payload of both access and refresh tokens.  The subject
// holds the user ID in decimal; Username is carried for convenience so
// handlers need not hit the database to display who is calling.
type Claims struct {
    jwt.RegisteredClaims
    Username string `json:"username"`
}

// UserID parses the subject claim back into a numeric user ID.
func (c *Claims) UserID() (uint64, error) {
    return strconv.ParseUint(c.Subject, 10, 64)
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// RefreshToken represents a long‑lived token used to obtain new access tokens.
// The Raw field is returned to the client; the database only keeps the
// SHA‑256 hash of it.
type RefreshToken struct {
    Raw string    // raw token string returned to the client
    Exp time.Time // UTC expiration time
}

// ErrInvalidClaims is returned when a token verifies but its subject is
// not a user ID.
var ErrInvalidClaims = errors.New("invalid token claims")

// NewAccessToken builds and signs an HS256 JWT for a user.
func NewAccessToken(secret string, userID uint64, username string, ttl time.Duration) (AccessToken, error) {
    signed, exp, err := sign(secret, userID, username, ttl, "")
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// NewRefreshToken builds and signs a refresh JWT.  A random jti makes every
// issued token unique even when two are minted in the same second, which
// the unique index on refresh_tokens.token_hash relies on.
func NewRefreshToken(secret string, userID uint64, username string, ttl time.Duration) (RefreshToken, error) {
    signed, exp, err := sign(secret, userID, username, ttl, uuid.NewString())
    if err != nil {
        return RefreshToken{}, err
    }
    return RefreshToken{Raw: signed, Exp: exp}, nil
}

func sign(secret string, userID uint64, username string, ttl time.Duration, jti string) (string, time.Time, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := Claims{
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   strconv.FormatUint(userID, 10),
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
            ID:        jti,
        },
        Username: username,
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return "", time.Time{}, err
    }
    return signed, exp, nil
}

// ParseToken verifies an HS256 token with secret and returns its claims.
// Expired tokens yield an error matching jwt.ErrTokenExpired.
func ParseToken(secret, raw string) (*Claims, error) {
    claims := &Claims{}
    tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    }, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
    if err != nil {
        return nil, err
    }
    if !tok.Valid {
        return nil, jwt.ErrTokenSignatureInvalid
    }
    if _, err := claims.UserID(); err != nil {
        return nil, ErrInvalidClaims
    }
    return claims, nil
}

// HashRefreshRaw returns the SHA‑256 hash of the raw refresh token as a hex
// string.  Storing only the hash prevents stolen database rows from being
// replayed as tokens.
func HashRefreshRaw(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}
