package service

import "math"

const (
	earthRadiusMeters = 6371000.0 // mean Earth radius

	// One degree of latitude is close to 111km everywhere; longitude
	// degrees shrink with cos(latitude).
	metersPerDegree = 111000.0
)

// haversineMeters is the great-circle distance between two points.
func haversineMeters(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// boundingBox converts a radius around a point into degree deltas. The
// box circumscribes the circle, so its corners lie outside it.
func boundingBox(lat, lng, radiusMeters float64) (minLat, maxLat, minLng, maxLng float64) {
	latDelta := radiusMeters / metersPerDegree
	lngDelta := radiusMeters / (metersPerDegree * math.Cos(lat*math.Pi/180))

	return lat - latDelta, lat + latDelta, lng - lngDelta, lng + lngDelta
}

func validCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
