package apc

import "math"

const earthRadiusMeters = 6371000

// HaversineDistance returns the great circle distance in meters between two coordinates
func HaversineDistance(lat1 float64, lon1 float64, lat2 float64, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	dLat := lat2Rad - lat1Rad
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(dLon/2), 2)
	return earthRadiusMeters * 2 * math.Asin(math.Sqrt(a))
}

// DistanceFromStop returns the distance in meters between the observed position of p and its stop
// returns false if p is not anchored
func (p *PassengerCountingEvent) DistanceFromStop() (float64, bool) {
	if p.Stop == nil {
		return 0, false
	}
	return HaversineDistance(p.Latitude, p.Longitude, p.Stop.Latitude, p.Stop.Longitude), true
}
