// Package store persists location check-ins. Every read takes the retention
// cutoff and never returns a record created before it, whether or not the
// sweeper has removed it yet.
package store

import (
	"cmp"

	"waypoint/internal/location/models"
)

// SortFields lists the accepted values for the location sort parameter.
func SortFields() []string {
	return []string{"createdAt"}
}

func compareLocations(a, b models.Location) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID.String(), b.ID.String())
}
