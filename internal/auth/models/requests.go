package models

import (
	"strings"

	s "gatekeeper/pkg/string"
	"gatekeeper/pkg/validation"
)

// RegisterRequest is the request payload for account creation.
// Passwords are validated for length and character classes; everything else
// about them is opaque. The password fields are never trimmed.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email,max=255"`
	Username        string `json:"username" validate:"required,min=3,max=30"`
	Password        string `json:"password" validate:"required,min=8,max=72,passwordchars"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// Normalize trims surrounding whitespace and lowercases the email so that
// lookup keys are canonical before validation runs.
func (r *RegisterRequest) Normalize() {
	s.TrimStrings(&r.Email, &r.Username)
	r.Email = strings.ToLower(r.Email)
}

func (r *RegisterRequest) Validate() error {
	return validation.Validate(r)
}

// LoginRequest is the request payload for credential verification.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Normalize() {
	s.TrimStrings(&r.Email)
	r.Email = strings.ToLower(r.Email)
}

func (r *LoginRequest) Validate() error {
	return validation.Validate(r)
}
