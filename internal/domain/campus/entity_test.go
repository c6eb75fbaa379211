package campus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aegis-hub/aegis-portal/internal/domain/shared"
)

func TestLocation_Validate(t *testing.T) {
	ok := Location{Name: "Library", Lat: 31.78, Lng: 76.99}
	assert.NoError(t, ok.Validate())

	edge := Location{Name: "Pole", Lat: -90, Lng: 180}
	assert.NoError(t, edge.Validate())

	assert.ErrorIs(t, Location{Name: "x", Lat: 90.5}.Validate(), shared.ErrInvalidLatitude)
	assert.ErrorIs(t, Location{Name: "x", Lng: -181}.Validate(), shared.ErrInvalidLongitude)
	assert.True(t, shared.IsValidation(Location{Name: " "}.Validate()))
}

func TestNewMap(t *testing.T) {
	m := NewMap(nil)
	assert.Equal(t, [2]float64{31.777, 76.986}, m.Center)
	assert.Equal(t, 16, m.Zoom)
	assert.NotNil(t, m.Locations)
	assert.Empty(t, m.Locations)
}
