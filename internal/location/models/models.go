package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	authmodels "waypoint/internal/auth/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/pagination"
)

// Location is one check-in. It is immutable once stored and disappears when
// it ages out of the retention window.
type Location struct {
	ID          id.LocationID `json:"id"`
	UserID      id.UserID     `json:"userId"`
	Coordinates [2]float64    `json:"coordinates"`
	CreatedAt   time.Time     `json:"createdAt"`
}

func (l Location) Lat() float64 { return l.Coordinates[0] }
func (l Location) Lon() float64 { return l.Coordinates[1] }

// Coordinate accepts a JSON number or a numeric string, since mobile clients
// send both. null and "" leave it unset.
type Coordinate struct {
	value float64
	set   bool
}

// NewCoordinate returns a set coordinate.
func NewCoordinate(v float64) Coordinate { return Coordinate{value: v, set: true} }

func (c Coordinate) Float() float64 { return c.value }
func (c Coordinate) IsSet() bool    { return c.set }

func (c *Coordinate) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			return nil
		}
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "coordinates must be numbers")
	}
	*c = NewCoordinate(f)
	return nil
}

// TrackRequest is the body of a check-in.
type TrackRequest struct {
	Lat Coordinate `json:"lat"`
	Lon Coordinate `json:"lon"`
}

func (r TrackRequest) Validate() error {
	if !r.Lat.IsSet() || !r.Lon.IsSet() {
		return dErrors.New(dErrors.CodeValidation, "Latitude and Longitude are required")
	}
	lat, lon := r.Lat.Float(), r.Lon.Float()
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}

// Query selects live records. Since is the retention cutoff; nothing created
// before it is ever returned.
type Query struct {
	Since time.Time
	Page  pagination.Params
}

// LocationPage is the admin view of recent check-ins across all users.
type LocationPage struct {
	Locations      []Location `json:"locations"`
	TotalLocations int        `json:"totalLocations"`
	Page           int        `json:"page"`
	Limit          int        `json:"limit"`
}

// LogPage is one user's check-in history.
type LogPage struct {
	User         authmodels.Profile `json:"user"`
	LocationLogs []Location         `json:"locationLogs"`
	TotalLogs    int                `json:"totalLogs"`
	Page         int                `json:"page"`
	Limit        int                `json:"limit"`
}
