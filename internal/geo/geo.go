// Package geo provides great-circle distance math for position samples.
package geo

import "math"

// EarthRadiusM is the spherical Earth radius used for haversine distances
const EarthRadiusM = 6371000.0

// HaversineM returns the great-circle distance in meters between two
// latitude/longitude points on a spherical Earth.
func HaversineM(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusM * c
}
