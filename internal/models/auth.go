package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SignupRequest carries registration input.
type SignupRequest struct {
	Username string `form:"username" json:"username" validate:"required,nowhitespace,max=64"`
	Password string `form:"password" json:"password" validate:"required,min=6,maxbytes=72,hasletter"`
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `form:"username" json:"username"`
	Password  string `form:"password" json:"password"`
	IP        string `form:"-" json:"-"`
	UserAgent string `form:"-" json:"-"`
}

// LoginResponse returns the session token and user info.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserInfo  `json:"user"`
}

// SessionClaims is the signed payload of a session token. The registered
// ID claim carries the session row id.
type SessionClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// SessionID returns the persisted session identifier.
func (c *SessionClaims) SessionID() string {
	return c.ID
}
