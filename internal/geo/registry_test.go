package geo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryLookups(t *testing.T) {
	r := DefaultRegistry()

	loc, ok := r.ByID("town-center")
	if !ok {
		t.Fatal("Expected town-center to exist")
	}
	if loc.Name != "Lake Nona Town Center" {
		t.Errorf("Unexpected name %q", loc.Name)
	}

	if _, ok := r.ByID("nowhere"); ok {
		t.Error("Expected lookup miss for unknown id")
	}

	byName, ok := r.ByName("Veterans Way")
	if !ok || byName.ID != "veterans-way" {
		t.Errorf("ByName = %+v, ok=%v", byName, ok)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := DefaultRegistry()

	testCases := []struct {
		input  string
		wantID string
		wantOK bool
	}{
		{"town-center", "town-center", true},
		{"Lake Nona Town Center", "town-center", true},
		{"behind the old barn", "", false},
		{"", "", false},
	}

	for _, tc := range testCases {
		loc, ok := r.Resolve(tc.input)
		if ok != tc.wantOK {
			t.Errorf("Resolve(%q) ok = %v, want %v", tc.input, ok, tc.wantOK)
			continue
		}
		if ok && loc.ID != tc.wantID {
			t.Errorf("Resolve(%q) = %s, want %s", tc.input, loc.ID, tc.wantID)
		}
	}
}

func TestRegistryNearest(t *testing.T) {
	r := DefaultRegistry()

	// A point sitting on top of Veterans Way.
	loc, miles, ok := r.Nearest(28.385, -81.28)
	if !ok {
		t.Fatal("Expected a nearest location")
	}
	if loc.ID != "veterans-way" {
		t.Errorf("Nearest = %s, want veterans-way", loc.ID)
	}
	if miles != 0 {
		t.Errorf("Expected zero distance, got %f", miles)
	}
}

func TestRegistryNearestEmpty(t *testing.T) {
	r := NewRegistry(nil)
	if _, _, ok := r.Nearest(28.0, -81.0); ok {
		t.Error("Expected ok=false on empty registry")
	}
}

func TestRegistryNearestTieBreak(t *testing.T) {
	r := NewRegistry([]Location{
		{ID: "first", Name: "First", Lat: 28.0, Lng: -81.0},
		{ID: "second", Name: "Second", Lat: 28.0, Lng: -81.0},
	})
	loc, _, ok := r.Nearest(28.0, -81.0)
	if !ok || loc.ID != "first" {
		t.Errorf("Expected earlier entry to win ties, got %+v ok=%v", loc, ok)
	}
}

func TestRegistryDistancesTo(t *testing.T) {
	r := DefaultRegistry()
	distances := r.DistancesTo(28.3911, -81.2758)
	if len(distances) != len(r.All()) {
		t.Fatalf("Expected %d entries, got %d", len(r.All()), len(distances))
	}
	if d := distances["laureate-moss-park"]; d != 0 {
		t.Errorf("Expected zero distance to origin zone, got %f", d)
	}
}

func TestLoadRegistryDefault(t *testing.T) {
	r, err := LoadRegistry("")
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	if len(r.All()) != len(defaultLocations) {
		t.Errorf("Expected built-in set, got %d locations", len(r.All()))
	}
}

func TestLoadRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	payload := `[{"id":"pasture","name":"North Pasture","lat":28.4,"lng":-81.3}]`
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	if len(r.All()) != 1 {
		t.Fatalf("Expected 1 location, got %d", len(r.All()))
	}
	if loc, ok := r.ByID("pasture"); !ok || loc.Name != "North Pasture" {
		t.Errorf("Unexpected location %+v ok=%v", loc, ok)
	}
}

func TestLoadRegistryBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRegistry(path); err == nil {
		t.Error("Expected error for malformed file")
	}
}

func TestMapURL(t *testing.T) {
	loc := Location{ID: "town-center", Name: "Lake Nona Town Center", Lat: 28.3889, Lng: -81.2667}
	u := MapURL(loc)
	if !strings.HasPrefix(u, "https://www.openstreetmap.org/export/embed.html?") {
		t.Errorf("Unexpected map URL %q", u)
	}
	if !strings.Contains(u, "marker=") || !strings.Contains(u, "bbox=") {
		t.Errorf("Map URL missing parameters: %q", u)
	}
}
