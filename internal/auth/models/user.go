package models

import (
	"strings"
	"time"

	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
)

// Role is the closed set of authorization roles.
type Role string

const (
	RoleRegular Role = "regular"
	RoleAdmin   Role = "admin"
)

func (r Role) IsValid() bool {
	return r == RoleRegular || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts the wire names of the roles, case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "userType must be admin or regular")
	}
	return r, nil
}

// User is the stored identity record. RefreshToken holds the single live
// refresh token, or nil when the user is logged out.
type User struct {
	ID           id.UserID
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	RefreshToken *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRefreshToken reports whether token is the live refresh token.
func (u *User) HasRefreshToken(token string) bool {
	return u.RefreshToken != nil && token != "" && *u.RefreshToken == token
}

// Profile is the public view of a user. It never carries the password hash
// or the refresh token.
type Profile struct {
	ID        id.UserID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// Identity is the minimal verified caller used by authorization checks.
type Identity struct {
	UserID id.UserID
	Role   Role
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
