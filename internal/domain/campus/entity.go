// Package campus holds the map markers shown on the campus map.
package campus

import (
	"context"
	"strings"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

// Default map viewport, centred on the main campus.
const (
	CenterLat   = 31.777
	CenterLng   = 76.986
	DefaultZoom = 16
)

// Location is a single marker.
type Location struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description"`
}

// Validate checks the name and coordinate ranges.
func (l Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return shared.Validation("campus", "Validate", "name is required")
	}
	if l.Lat < -90 || l.Lat > 90 {
		return shared.ErrInvalidLatitude
	}
	if l.Lng < -180 || l.Lng > 180 {
		return shared.ErrInvalidLongitude
	}
	return nil
}

// Map is the listing returned to the client.
type Map struct {
	Center    [2]float64 `json:"center"`
	Zoom      int        `json:"zoom"`
	Locations []Location `json:"locations"`
}

// NewMap wraps locations in the default viewport.
func NewMap(locations []Location) Map {
	if locations == nil {
		locations = []Location{}
	}
	return Map{
		Center:    [2]float64{CenterLat, CenterLng},
		Zoom:      DefaultZoom,
		Locations: locations,
	}
}

// Repository stores locations.
type Repository interface {
	List(ctx context.Context) ([]Location, error)
	// Upsert inserts or replaces by id.
	Upsert(ctx context.Context, l Location) error
}

// Cache holds the marker list between edits.
type Cache interface {
	// GetLocations returns nil, nil on a miss.
	GetLocations(ctx context.Context) ([]Location, error)
	SetLocations(ctx context.Context, items []Location) error
	InvalidateLocations(ctx context.Context) error
}
