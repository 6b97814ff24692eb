package evidence

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DistanceMeters returns the great-circle distance between two coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.Distance(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// Geofence is a circle around a job site.
type Geofence struct {
	Center       orb.Point
	RadiusMeters float64
}

// NewGeofence builds a fence around the given site.
func NewGeofence(lat, lon, radiusMeters float64) Geofence {
	return Geofence{Center: orb.Point{lon, lat}, RadiusMeters: radiusMeters}
}

// Check returns the distance from the site and whether it lies inside the
// fence. A non-positive radius disables the fence.
func (g Geofence) Check(lat, lon float64) (float64, bool) {
	distance := geo.Distance(g.Center, orb.Point{lon, lat})
	if g.RadiusMeters <= 0 {
		return distance, true
	}
	return distance, distance <= g.RadiusMeters
}
