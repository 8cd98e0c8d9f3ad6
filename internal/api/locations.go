package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wholetthecowsout/cowwatch/internal/geo"
)

// locationEntry is one zone in the locations listing, with the distance to
// the caller's position when coordinates were supplied.
type locationEntry struct {
	geo.Location
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
	MapURL        string   `json:"map_url"`
}

// LocationsHandler handles GET /api/locations. With lat/lng query
// parameters it annotates every zone with its distance and names the
// nearest one, so clients can preselect a sensible default.
func (s *Server) LocationsHandler(registry *geo.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		const endpoint = "locations"
		const method = "GET"

		lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
		hasPoint := latErr == nil && lngErr == nil

		var distances map[string]float64
		if hasPoint {
			distances = registry.DistancesTo(lat, lng)
		}

		entries := make([]locationEntry, 0)
		for _, loc := range registry.All() {
			entry := locationEntry{Location: loc, MapURL: geo.MapURL(loc)}
			if hasPoint {
				d := distances[loc.ID]
				entry.DistanceMiles = &d
			}
			entries = append(entries, entry)
		}

		body := struct {
			Locations []locationEntry `json:"locations"`
			NearestID string          `json:"nearest_id,omitempty"`
		}{Locations: entries}

		if hasPoint {
			if nearest, _, ok := registry.Nearest(lat, lng); ok {
				body.NearestID = nearest.ID
			}
		}

		s.Metrics.IncrementRequests(endpoint, method, "200")
		s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
		writeJSON(w, http.StatusOK, body)
	}
}
