package geospatial

import "math"

// Mean Earth radius in meters.
const earthRadiusM = 6371000.0

// Haversine calculates the great-circle distance in meters between two points.
// Full precision is kept; rounding for display or persistence is the caller's job.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Round rounds v to the given number of decimal places.
func Round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
