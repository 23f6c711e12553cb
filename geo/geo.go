package geo

import (
	"latidos/models"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0

// IquiqueCenter is the default map center.
var IquiqueCenter = models.GeoPoint{Lat: -20.2139, Lng: -70.1525}

// DistanceKm returns the great-circle distance between two points in kilometers.
// s2.LatLng.Distance evaluates the haversine formula on the unit sphere.
func DistanceKm(a, b models.GeoPoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lng)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lng)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}
