package geo

import (
	"math"
	"testing"
)

func TestDistanceMilesZero(t *testing.T) {
	if d := DistanceMiles(28.3911, -81.2758, 28.3911, -81.2758); d != 0 {
		t.Errorf("Expected zero distance for identical points, got %f", d)
	}
}

func TestDistanceMilesSymmetry(t *testing.T) {
	a := DistanceMiles(28.3911, -81.2758, 28.3975, -81.2715)
	b := DistanceMiles(28.3975, -81.2715, 28.3911, -81.2758)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("Expected symmetric distance, got %f and %f", a, b)
	}
}

func TestDistanceMilesOneDegreeLatitude(t *testing.T) {
	// One degree of latitude is about 69 miles everywhere on the globe.
	d := DistanceMiles(28.0, -81.0, 29.0, -81.0)
	if d < 68 || d > 70 {
		t.Errorf("Expected roughly 69 miles for one degree of latitude, got %f", d)
	}
}

func TestDistanceMilesKnownNeighborhood(t *testing.T) {
	// Laureate Blvd & Moss Park Rd to Lake Nona Town Center is well under a mile.
	d := DistanceMiles(28.3911, -81.2758, 28.3889, -81.2667)
	if d > 1.0 {
		t.Errorf("Expected neighboring zones under a mile apart, got %f", d)
	}
}

func TestWithinRange(t *testing.T) {
	testCases := []struct {
		name     string
		lat, lng float64
		max      float64
		want     bool
	}{
		{"same point", 28.3911, -81.2758, 1.0, true},
		{"next zone over", 28.3889, -81.2667, 1.0, true},
		{"downtown orlando", 28.5384, -81.3789, 1.0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := WithinRange(tc.lat, tc.lng, 28.3911, -81.2758, tc.max)
			if got != tc.want {
				t.Errorf("WithinRange = %v, want %v", got, tc.want)
			}
		})
	}
}
