package usecases_test

import (
	"testing"

	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/usecases"
)

func routeWith(waypoints ...domain.Waypoint) *domain.Route {
	return &domain.Route{
		ID:                       "r1",
		Waypoints:                waypoints,
		TotalDistanceKm:          2,
		EstimatedDurationMinutes: 30,
	}
}

func TestNearbyWaypointIndex_FirstMatchWins(t *testing.T) {
	// Two waypoints a few meters apart, both within 20 m of the position.
	route := routeWith(
		domain.Waypoint{Name: "A", Location: domain.GeoPoint{Lat: 43.64261, Lon: -79.38711}},
		domain.Waypoint{Name: "B", Location: domain.GeoPoint{Lat: 43.64260, Lon: -79.38710}},
	)
	pos := &domain.GeoPoint{Lat: 43.6426, Lon: -79.3871}

	idx, ok := usecases.NearbyWaypointIndex(route, pos, 20)
	if !ok {
		t.Fatal("expected a match")
	}
	if idx != 0 {
		t.Errorf("expected lowest index 0, got %d", idx)
	}
}

func TestNearbyWaypointIndex_FirstMatchEvenWhenLaterIsCloser(t *testing.T) {
	// Index 1 sits exactly on the position but index 0 is still in radius;
	// route order breaks the tie in favor of the earlier stop.
	route := routeWith(
		domain.Waypoint{Name: "A", Location: domain.GeoPoint{Lat: 43.64262, Lon: -79.3871}},
		domain.Waypoint{Name: "B", Location: domain.GeoPoint{Lat: 43.6426, Lon: -79.3871}},
	)
	pos := &domain.GeoPoint{Lat: 43.6426, Lon: -79.3871}

	idx, ok := usecases.NearbyWaypointIndex(route, pos, 25)
	if !ok || idx != 0 {
		t.Errorf("expected index 0, got %d (ok=%v)", idx, ok)
	}
}

func TestNearbyWaypointIndex_NoneInRadius(t *testing.T) {
	route := routeWith(
		domain.Waypoint{Name: "far", Location: domain.GeoPoint{Lat: 43.7, Lon: -79.4}},
	)
	pos := &domain.GeoPoint{Lat: 43.6426, Lon: -79.3871}

	if _, ok := usecases.NearbyWaypointIndex(route, pos, 20); ok {
		t.Error("expected no match for a waypoint kilometers away")
	}
}

func TestNearbyWaypointIndex_NilInputs(t *testing.T) {
	pos := &domain.GeoPoint{Lat: 43.6426, Lon: -79.3871}
	if _, ok := usecases.NearbyWaypointIndex(nil, pos, 20); ok {
		t.Error("expected no match for nil route")
	}
	route := routeWith(domain.Waypoint{Location: *pos})
	if _, ok := usecases.NearbyWaypointIndex(route, nil, 20); ok {
		t.Error("expected no match for nil position")
	}
}

func TestNearbyWaypointIndex_ExactPositionMatches(t *testing.T) {
	route := routeWith(
		domain.Waypoint{Name: "Times Square", Location: domain.GeoPoint{Lat: 43.6426, Lon: -79.3871}},
	)
	pos := &domain.GeoPoint{Lat: 43.6426, Lon: -79.3871}

	idx, ok := usecases.NearbyWaypointIndex(route, pos, 20)
	if !ok || idx != 0 {
		t.Errorf("expected index 0 at zero distance, got %d (ok=%v)", idx, ok)
	}
}
