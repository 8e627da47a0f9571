package models

import "time"

// UserRole represents the role stored in the provider's user metadata.
type UserRole string

const (
	RoleTeacher UserRole = "teacher"
	RoleStudent UserRole = "student"
)

// Valid reports whether the role is one the application understands.
func (r UserRole) Valid() bool {
	return r == RoleTeacher || r == RoleStudent
}

// UserMetadata mirrors the provider's user_metadata object.
type UserMetadata struct {
	Role     UserRole `json:"role"`
	FullName string   `json:"full_name"`
}

// User is the external identity record. It is created and destroyed by the auth provider only.
type User struct {
	ID           string       `json:"id" db:"id"`
	Email        string       `json:"email" db:"email"`
	UserMetadata UserMetadata `json:"user_metadata"`
}

// Role returns the metadata role.
func (u *User) Role() UserRole {
	if u == nil {
		return ""
	}
	return u.UserMetadata.Role
}

// DisplayName prefers the full name, falling back to the email address.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.UserMetadata.FullName != "" {
		return u.UserMetadata.FullName
	}
	return u.Email
}

// Session is the provider session returned on sign-in and session lookups.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// CachedIdentity is the non-authoritative blob kept in the identity cache.
type CachedIdentity struct {
	ID       string       `json:"id"`
	Email    string       `json:"email"`
	Metadata UserMetadata `json:"metadata"`
}

// IdentityFromUser builds the cache blob for a user.
func IdentityFromUser(u User) CachedIdentity {
	return CachedIdentity{ID: u.ID, Email: u.Email, Metadata: u.UserMetadata}
}

// User converts the cached blob back into a user record.
func (c CachedIdentity) User() User {
	return User{ID: c.ID, Email: c.Email, UserMetadata: c.Metadata}
}
