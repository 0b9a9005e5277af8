package models

import (
	"time"

	"github.com/google/uuid"
)

// This file contains pure domain models for authentication: entities
// that should not depend on transport or HTTP-specific concerns.

// User is a registered account. PasswordHash never leaves the process;
// use PublicUser for JSON responses.
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Public strips the credential material for API responses.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID.String(),
		Email:     u.Email,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

// PublicUser is the response shape for a user.
type PublicUser struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResult is the response payload for login and register.
type AuthResult struct {
	User  PublicUser `json:"user"`
	Token string     `json:"token"`
}
