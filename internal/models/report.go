package models

import "time"

// ReportStatus is the lifecycle state of a sighting report.
type ReportStatus string

const (
	StatusReported     ReportStatus = "reported"
	StatusAcknowledged ReportStatus = "acknowledged"
	StatusResolved     ReportStatus = "resolved"
)

// ParseStatus validates a raw status value from a client.
func ParseStatus(s string) (ReportStatus, bool) {
	switch ReportStatus(s) {
	case StatusReported, StatusAcknowledged, StatusResolved:
		return ReportStatus(s), true
	}
	return "", false
}

// CanTransition reports whether a status change is allowed.
// resolved is terminal; acknowledgement may be skipped.
func CanTransition(from, to ReportStatus) bool {
	switch from {
	case StatusReported:
		return to == StatusAcknowledged || to == StatusResolved
	case StatusAcknowledged:
		return to == StatusResolved
	}
	return false
}

// Report represents a single loose-cattle sighting.
type Report struct {
	ID          string       `json:"id"`
	Description string       `json:"description,omitempty"`
	Location    string       `json:"location,omitempty"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
	PhotoBase64 string       `json:"photo_base64,omitempty"`
	Fingerprint string       `json:"fingerprint,omitempty"`
	IPAddress   string       `json:"ip_address,omitempty"`
	ReporterLat *float64     `json:"reporter_lat,omitempty"`
	ReporterLng *float64     `json:"reporter_lng,omitempty"`
}

// Active reports whether the report still needs ranger attention.
func (r *Report) Active() bool {
	return r.Status == StatusReported || r.Status == StatusAcknowledged
}

// ActiveStatuses lists the statuses counted as unresolved, in query order.
func ActiveStatuses() []string {
	return []string{string(StatusReported), string(StatusAcknowledged)}
}
