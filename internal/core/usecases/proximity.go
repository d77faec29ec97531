package usecases

import (
	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/pkg/geospatial"
)

// DefaultProximityRadiusMeters is how close the traveler must be to a
// waypoint to count as "arrived". Overridable through configuration.
const DefaultProximityRadiusMeters = 20.0

// NearbyWaypointIndex returns the first waypoint index (in route order)
// within radiusMeters of the position, and whether one was found.
//
// The scan deliberately stops on the first match rather than the globally
// nearest: when several waypoints are inside the radius at once, the
// earlier stop wins.
func NearbyWaypointIndex(route *domain.Route, position *domain.GeoPoint, radiusMeters float64) (int, bool) {
	if route == nil || position == nil {
		return 0, false
	}
	for i, wp := range route.Waypoints {
		d := geospatial.Haversine(position.Lat, position.Lon, wp.Location.Lat, wp.Location.Lon)
		if d <= radiusMeters {
			return i, true
		}
	}
	return 0, false
}
