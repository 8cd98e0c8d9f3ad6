package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wholetthecowsout/cowwatch/internal/geo"
)

func TestLocationsHandler(t *testing.T) {
	srv := newTestServer(nil, &fakeDirectory{}, nil)
	handler := srv.LocationsHandler(geo.DefaultRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/locations", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Locations []locationEntry `json:"locations"`
		NearestID string          `json:"nearest_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Locations) != 5 {
		t.Errorf("Expected 5 locations, got %d", len(resp.Locations))
	}
	if resp.NearestID != "" {
		t.Errorf("Expected no nearest without coordinates, got %q", resp.NearestID)
	}
	for _, loc := range resp.Locations {
		if loc.DistanceMiles != nil {
			t.Errorf("Expected no distances without coordinates, got %+v", loc)
		}
		if loc.MapURL == "" {
			t.Error("Expected a map URL")
		}
	}
}

func TestLocationsHandlerWithPoint(t *testing.T) {
	srv := newTestServer(nil, &fakeDirectory{}, nil)
	handler := srv.LocationsHandler(geo.DefaultRegistry())

	req := httptest.NewRequest(http.MethodGet, "/api/locations?lat=28.385&lng=-81.28", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var resp struct {
		Locations []locationEntry `json:"locations"`
		NearestID string          `json:"nearest_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.NearestID != "veterans-way" {
		t.Errorf("NearestID = %q, want veterans-way", resp.NearestID)
	}
	for _, loc := range resp.Locations {
		if loc.DistanceMiles == nil {
			t.Errorf("Expected a distance for %s", loc.ID)
		}
	}
}
