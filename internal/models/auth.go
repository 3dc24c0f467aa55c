package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the access token payload. Besides the registered claims it
// carries enough profile data for handlers to answer /auth/me without a
// database round trip.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	OrgID    string   `json:"org_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Info projects the claims into the public user representation.
func (c *JWTClaims) Info() UserInfo {
	return UserInfo{
		ID:       c.UserID,
		OrgID:    c.OrgID,
		Email:    c.Email,
		FullName: c.FullName,
		Role:     c.Role,
	}
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID       string   `json:"id"`
	OrgID    string   `json:"org_id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Role     UserRole `json:"role"`
}

// NewUserInfo builds the public representation of a stored user.
func NewUserInfo(u *User) UserInfo {
	return UserInfo{
		ID:       u.ID,
		OrgID:    u.OrgID,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

// LoginRequest holds credentials for authenticating a user. IP and
// UserAgent are filled from the request context, not the JSON body.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token pair and user info.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token for a new pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the rotated token pair.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// ChangePasswordRequest carries the old and replacement password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}
