package domain

import (
	"fmt"
	"time"
)

// Message roles in a conversation transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in the conversation transcript.
// The transcript is append-only; entries are never edited or removed.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Waypoint is a named stop on a route with an optional narration script.
type Waypoint struct {
	Name             string   `json:"name"`
	Location         GeoPoint `json:"location"`
	Script           string   `json:"script,omitempty"`
	DurationFromPrev *float64 `json:"duration_from_prev,omitempty"` // minutes, nil for the first stop
}

// Route is an immutable snapshot of a generated tour. It is created whole
// from a route-generation response and replaced whole on the next one; it
// is never mutated in place. A nil *Route means "no trip generated yet",
// which is distinct from an empty route (an empty route is never installed).
type Route struct {
	ID                       string     `json:"id"`
	Waypoints                []Waypoint `json:"waypoints"`
	Path                     []GeoPoint `json:"path,omitempty"` // walking geometry, not just stop locations
	TotalDistanceKm          float64    `json:"total_distance_km"`
	EstimatedDurationMinutes float64    `json:"estimated_duration_minutes"`
	CreatedAt                time.Time  `json:"created_at"`
}

// Validate reports whether the route can be installed as an active route.
func (r *Route) Validate() error {
	if r == nil {
		return fmt.Errorf("route is nil")
	}
	if r.ID == "" {
		return fmt.Errorf("route id is empty")
	}
	if len(r.Waypoints) == 0 {
		return fmt.Errorf("route has no waypoints")
	}
	for i, wp := range r.Waypoints {
		if !wp.Location.Valid() {
			return fmt.Errorf("waypoint %d (%s): coordinates out of range", i, wp.Name)
		}
		if wp.DurationFromPrev != nil && *wp.DurationFromPrev < 0 {
			return fmt.Errorf("waypoint %d (%s): negative duration from previous", i, wp.Name)
		}
	}
	if r.TotalDistanceKm < 0 {
		return fmt.Errorf("negative total distance")
	}
	if r.EstimatedDurationMinutes < 0 {
		return fmt.Errorf("negative estimated duration")
	}
	return nil
}

// RouteReply is the parsed outcome of one route-generation call.
// Route is non-nil only when IsRouteResponse is true.
type RouteReply struct {
	IsRouteResponse bool   `json:"is_route_response"`
	ChatResponse    string `json:"chat_response"`
	Route           *Route `json:"route,omitempty"`
}

// NarrationEvent is an at-most-once-per-arrival narration trigger.
type NarrationEvent struct {
	WaypointIndex int    `json:"waypoint_index"`
	Name          string `json:"name"`
	Script        string `json:"script"`
}

// WeatherSnapshot is an opaque current-weather reading keyed by coordinate.
type WeatherSnapshot struct {
	Name        string  `json:"name,omitempty"`
	TempC       float64 `json:"temp_c"`
	FeelsLikeC  float64 `json:"feels_like_c"`
	Description string  `json:"description"`
	Icon        string  `json:"icon,omitempty"`
	Humidity    int     `json:"humidity"`
	WindSpeed   float64 `json:"wind_speed"` // m/s
}

// TripInfo holds metrics derived from the active route.
type TripInfo struct {
	TotalDistanceKm          float64 `json:"total_distance_km"`
	EstimatedDurationMinutes float64 `json:"estimated_duration_minutes"`
	EstimatedArrival         string  `json:"estimated_arrival"` // local time or "N/A"
	EstimatedEnergyKcal      int     `json:"estimated_energy_kcal"`
}

// SessionSnapshot is a read-only copy of session state handed to callers.
type SessionSnapshot struct {
	ID                 string    `json:"id"`
	Position           *GeoPoint `json:"position,omitempty"`
	Route              *Route    `json:"route,omitempty"`
	Transcript         []Message `json:"transcript"`
	AudioEnabled       bool      `json:"audio_enabled"`
	RoamEnabled        bool      `json:"roam_enabled"`
	LastNarratedIndex  *int      `json:"last_narrated_index,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
