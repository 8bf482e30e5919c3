package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm_SamePointIsZero(t *testing.T) {
	points := [][2]float64{
		{0, 0},
		{51.5074, -0.1278},
		{-33.8688, 151.2093},
		{89.9, 179.9},
	}

	for _, p := range points {
		assert.InDelta(t, 0, DistanceKm(p[0], p[1], p[0], p[1]), 1e-9)
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	d1 := DistanceKm(40.7128, -74.0060, 51.5074, -0.1278)
	d2 := DistanceKm(51.5074, -0.1278, 40.7128, -74.0060)

	assert.InDelta(t, d1, d2, 1e-9)
}

func TestDistanceKm_KnownDistance(t *testing.T) {
	// New York to London is roughly 5570 km
	d := DistanceKm(40.7128, -74.0060, 51.5074, -0.1278)

	assert.InDelta(t, 5570, d, 20)
}

func TestDistanceKm_OneDegreeLatitude(t *testing.T) {
	// One degree of latitude is ~111 km everywhere
	d := DistanceKm(10, 20, 11, 20)

	assert.InDelta(t, 111.2, d, 0.5)
}
