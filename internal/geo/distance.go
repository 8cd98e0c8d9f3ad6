package geo

import "math"

// earthRadiusMiles is the mean Earth radius used by the haversine formula.
const earthRadiusMiles = 3959

// DefaultMaxDistanceMiles is how far a reporter may stand from the zone
// they are reporting before the geofence rejects the submission.
const DefaultMaxDistanceMiles = 1.0

// DistanceMiles returns the great-circle distance in miles between two
// coordinates given in degrees.
func DistanceMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

// WithinRange reports whether the reporter is within maxMiles of the target.
func WithinRange(reporterLat, reporterLng, targetLat, targetLng, maxMiles float64) bool {
	return DistanceMiles(reporterLat, reporterLng, targetLat, targetLng) <= maxMiles
}

func toRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
