// Package user persists identity records and the single live refresh token
// each of them holds.
//
// Error contract shared by every implementation:
//   - ErrNotFound when the addressed user does not exist
//   - ErrConflict when the email is already taken
//   - ErrStale when SwapRefreshToken finds a different stored token
//   - wrapped errors for infrastructure failures
package user

import (
	"cmp"
	"strings"

	"waypoint/internal/auth/models"
	"waypoint/pkg/platform/sentinel"
)

var (
	ErrNotFound = sentinel.ErrNotFound
	ErrConflict = sentinel.ErrConflict
	ErrStale    = sentinel.ErrStale
)

// sortColumns maps API sort fields onto storage columns.
var sortColumns = map[string]string{
	"createdAt": "created_at",
	"name":      "name",
	"email":     "email",
}

// SortFields lists the accepted values for the list sort parameter.
func SortFields() []string {
	return []string{"createdAt", "name", "email"}
}

func matches(u *models.User, q models.ListUsersQuery) bool {
	if q.Role != "" && u.Role != q.Role {
		return false
	}
	if q.Search == "" {
		return true
	}
	needle := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(u.Name), needle) ||
		strings.Contains(strings.ToLower(u.Email), needle)
}

func compareUsers(a, b *models.User, field string) int {
	var c int
	switch field {
	case "name":
		c = cmp.Compare(a.Name, b.Name)
	case "email":
		c = cmp.Compare(a.Email, b.Email)
	default:
		c = a.CreatedAt.Compare(b.CreatedAt)
	}
	if c == 0 {
		c = cmp.Compare(a.ID.String(), b.ID.String())
	}
	return c
}
