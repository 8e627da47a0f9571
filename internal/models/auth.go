package models

import "github.com/golang-jwt/jwt/v5"

// AuthEventType enumerates provider auth-state change events.
type AuthEventType string

const (
	AuthEventSignedIn    AuthEventType = "SIGNED_IN"
	AuthEventSignedOut   AuthEventType = "SIGNED_OUT"
	AuthEventUserUpdated AuthEventType = "USER_UPDATED"
)

// AuthEvent is delivered to auth-state subscribers.
type AuthEvent struct {
	Type    AuthEventType
	Session *Session
}

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateProfileRequest changes the user's display name.
type UpdateProfileRequest struct {
	FullName string `json:"full_name" validate:"required,max=120"`
}

// JWTClaims is the payload of sessions issued by the self-hosted provider.
type JWTClaims struct {
	Email        string       `json:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
	jwt.RegisteredClaims
}
