package models

import (
	"net/mail"
	"strings"

	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/pagination"
)

const minPasswordLength = 6

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

func (r *RegisterRequest) Validate() error {
	if r.Name == "" || r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "name, email and password are required")
	}
	if err := validateEmail(r.Email); err != nil {
		return err
	}
	return validatePassword(r.Password)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "email and password are required")
	}
	return nil
}

// UpdateRequest changes any subset of the profile fields. Nil means unchanged.
type UpdateRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

func (r *UpdateRequest) Normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := NormalizeEmail(*r.Email)
		r.Email = &email
	}
}

func (r *UpdateRequest) Validate() error {
	if r.Name == nil && r.Email == nil && r.Password == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of name, email or password is required")
	}
	if r.Name != nil && *r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name cannot be empty")
	}
	if r.Email != nil {
		if err := validateEmail(*r.Email); err != nil {
			return err
		}
	}
	if r.Password != nil {
		return validatePassword(*r.Password)
	}
	return nil
}

// ListUsersQuery is the admin listing filter. Search matches name or email
// case-insensitively; an empty Role lists every role.
type ListUsersQuery struct {
	Page   pagination.Params
	Search string
	Role   Role
}

// UserPage is one page of the admin listing.
type UserPage struct {
	Users      []Profile `json:"users"`
	TotalUsers int       `json:"totalUsers"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return dErrors.New(dErrors.CodeValidation, "email is invalid")
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 6 characters")
	}
	// bcrypt refuses anything longer.
	if len(password) > 72 {
		return dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
	}
	return nil
}
