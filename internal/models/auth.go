package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued tokens alongside the user profile.
type LoginResponse struct {
	AccessToken          string    `json:"access"`
	RefreshToken         string    `json:"refresh"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
	User                 UserInfo  `json:"user"`
}

// RefreshTokenRequest exchanges a refresh token for a new token pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the rotated token pair.
type RefreshTokenResponse struct {
	AccessToken          string    `json:"access"`
	RefreshToken         string    `json:"refresh"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
}

// LogoutRequest revokes a refresh token.
type LogoutRequest struct {
	RefreshToken string `json:"refresh" validate:"required"`
}

// UserInfo describes the authenticated user in responses. Phone is masked.
type UserInfo struct {
	Username  string  `json:"username"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Gender    *Gender `json:"gender,omitempty"`
}

// UpdateProfileRequest carries the client-settable profile fields.
type UpdateProfileRequest struct {
	Phone     *string `json:"phone" validate:"omitempty,max=255"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Gender    *Gender `json:"gender" validate:"omitempty,oneof=1 2"`
}

// RefreshToken is a stored, revocable refresh token.
type RefreshToken struct {
	ID        string     `db:"id" json:"id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Token     string     `db:"token" json:"-"`
	ExpiresAt time.Time  `db:"expires_at" json:"expires_at"`
	Revoked   bool       `db:"revoked" json:"revoked"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	IPAddress string     `db:"ip_address" json:"-"`
	UserAgent string     `db:"user_agent" json:"-"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// JWTClaims is the JWT payload for access tokens. InstructorID is empty for
// users without an instructor record.
type JWTClaims struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	InstructorID string `json:"instructor_id,omitempty"`
	jwt.RegisteredClaims
}

// IsInstructor reports whether the token belongs to teaching staff.
func (c *JWTClaims) IsInstructor() bool {
	return c != nil && c.InstructorID != ""
}
