package domain

import (
	"github.com/google/uuid"

	dErrors "waypoint/pkg/domain-errors"
)

// UserID identifies a user account. Construct it with ParseUserID at trust
// boundaries; direct conversion from uuid.UUID skips validation.
type UserID uuid.UUID

// LocationID identifies a single location check-in.
type LocationID uuid.UUID

func NewUserID() UserID         { return UserID(uuid.New()) }
func NewLocationID() LocationID { return LocationID(uuid.New()) }

// ParseUserID parses a non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseLocationID parses a non-nil UUID.
func ParseLocationID(s string) (LocationID, error) {
	u, err := parseUUID(s, "location id")
	if err != nil {
		return LocationID{}, err
	}
	return LocationID(u), nil
}

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, what+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+what)
	}
	return u, nil
}

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id LocationID) String() string { return uuid.UUID(id).String() }
func (id LocationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// MarshalText lets ids serialize as plain UUID strings in JSON.
func (id UserID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id LocationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *LocationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
