package geo

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
)

// Location is a fixed named zone reports can be filed against.
type Location struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// defaultLocations covers the common areas of Laureate Park, Orlando, FL.
var defaultLocations = []Location{
	{ID: "laureate-moss-park", Name: "Laureate Blvd & Moss Park Rd", Lat: 28.3911, Lng: -81.2758},
	{ID: "laureate-nemours", Name: "Laureate Blvd & Nemours Pkwy", Lat: 28.3975, Lng: -81.2715},
	{ID: "town-center", Name: "Lake Nona Town Center", Lat: 28.3889, Lng: -81.2667},
	{ID: "veterans-way", Name: "Veterans Way", Lat: 28.385, Lng: -81.28},
	{ID: "lake-nona-blvd", Name: "Lake Nona Blvd", Lat: 28.392, Lng: -81.269},
}

// Registry is an immutable, ordered collection of locations. Declaration
// order is preserved and acts as the tie-break for Nearest.
type Registry struct {
	locations []Location
}

// NewRegistry builds a registry from an explicit location set. The slice is
// copied so callers cannot mutate the registry afterwards.
func NewRegistry(locations []Location) *Registry {
	locs := make([]Location, len(locations))
	copy(locs, locations)
	return &Registry{locations: locs}
}

// DefaultRegistry returns a registry holding the built-in zone set.
func DefaultRegistry() *Registry {
	return NewRegistry(defaultLocations)
}

// LoadRegistry reads a JSON location file when path is non-empty, falling
// back to the built-in set otherwise.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return DefaultRegistry(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read locations file: %w", err)
	}
	var locs []Location
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("parse locations file: %w", err)
	}
	return NewRegistry(locs), nil
}

// All returns the locations in declaration order.
func (r *Registry) All() []Location {
	out := make([]Location, len(r.locations))
	copy(out, r.locations)
	return out
}

// ByID finds a location by its identifier.
func (r *Registry) ByID(id string) (Location, bool) {
	for _, loc := range r.locations {
		if loc.ID == id {
			return loc, true
		}
	}
	return Location{}, false
}

// ByName finds a location by exact display name.
func (r *Registry) ByName(name string) (Location, bool) {
	for _, loc := range r.locations {
		if loc.Name == name {
			return loc, true
		}
	}
	return Location{}, false
}

// Resolve accepts either a location id or a display name, as clients send
// both. Free-text values resolve to nothing.
func (r *Registry) Resolve(idOrName string) (Location, bool) {
	if loc, ok := r.ByID(idOrName); ok {
		return loc, true
	}
	return r.ByName(idOrName)
}

// Nearest returns the location closest to the query point and its distance
// in miles. On an empty registry ok is false. Ties go to the earlier entry.
func (r *Registry) Nearest(lat, lng float64) (loc Location, miles float64, ok bool) {
	for _, candidate := range r.locations {
		d := DistanceMiles(lat, lng, candidate.Lat, candidate.Lng)
		if !ok || d < miles {
			loc, miles, ok = candidate, d, true
		}
	}
	return loc, miles, ok
}

// DistancesTo maps every location id to its distance in miles from the
// query point, for showing all candidates to the reporter.
func (r *Registry) DistancesTo(lat, lng float64) map[string]float64 {
	out := make(map[string]float64, len(r.locations))
	for _, loc := range r.locations {
		out[loc.ID] = DistanceMiles(lat, lng, loc.Lat, loc.Lng)
	}
	return out
}

// MapURL builds an OpenStreetMap embed URL centered on the location with a
// bounding box of roughly two miles in each direction.
func MapURL(loc Location) string {
	const (
		latOffset = 0.029
		lngOffset = 0.038
	)
	bbox := fmt.Sprintf("%f,%f,%f,%f", loc.Lng-lngOffset, loc.Lat-latOffset, loc.Lng+lngOffset, loc.Lat+latOffset)
	params := url.Values{}
	params.Set("bbox", bbox)
	params.Set("layer", "mapnik")
	params.Set("marker", fmt.Sprintf("%f,%f", loc.Lat, loc.Lng))
	return "https://www.openstreetmap.org/export/embed.html?" + params.Encode()
}
