package usecases

import (
	"github.com/ericnem/passepartout/internal/core/domain"
)

// NextNarration decides whether arriving at the current position should
// trigger a narration. It is a pure state transition over the
// last-narrated waypoint index: the returned index becomes the new state.
//
// No event fires when audio is disabled, no route is active, no waypoint is
// within radius, the matched waypoint has no script, or the matched index
// equals lastNarrated (lingering at a stop must not re-trigger every
// sample). Installing a new route resets lastNarrated to nil upstream,
// which re-arms every waypoint including a geometric twin of the last one.
func NextNarration(route *domain.Route, position *domain.GeoPoint, audioEnabled bool, lastNarrated *int, radiusMeters float64) (*domain.NarrationEvent, *int) {
	if !audioEnabled || route == nil {
		return nil, lastNarrated
	}

	idx, ok := NearbyWaypointIndex(route, position, radiusMeters)
	if !ok {
		return nil, lastNarrated
	}
	if lastNarrated != nil && *lastNarrated == idx {
		return nil, lastNarrated
	}

	wp := route.Waypoints[idx]
	if wp.Script == "" {
		return nil, lastNarrated
	}

	return &domain.NarrationEvent{
		WaypointIndex: idx,
		Name:          wp.Name,
		Script:        wp.Script,
	}, &idx
}
