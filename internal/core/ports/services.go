package ports

import (
	"context"

	"github.com/ericnem/passepartout/internal/core/domain"
)

// RouteGenerator calls the remote route-generation service. The reply either
// carries a fully-built route (IsRouteResponse true) or a plain chat answer.
type RouteGenerator interface {
	GenerateRoute(ctx context.Context, inputText string, history []domain.Message) (*domain.RouteReply, error)
}

// RoamProvider asks the remote roaming-summary service for ambient commentary
// around a coordinate. An empty summary means "nothing to say".
type RoamProvider interface {
	Summary(ctx context.Context, coordinates string, history []domain.Message) (string, error)
}

// SpeechService hands narration text to the text-to-speech backend.
// Callers treat it as fire-and-forget; no audio flows back into the core.
type SpeechService interface {
	Speak(ctx context.Context, text string) error
}

// WeatherProvider fetches a current-weather snapshot for a coordinate.
type WeatherProvider interface {
	Current(ctx context.Context, lat, lon float64) (*domain.WeatherSnapshot, error)
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher fans session events out to presentation collaborators
// (map renderer, chat transcript view, script panel).
type EventPublisher interface {
	PublishPosition(ctx context.Context, sessionID string, pos domain.GeoPoint) error
	PublishMessage(ctx context.Context, sessionID string, msg domain.Message) error
	PublishNarration(ctx context.Context, sessionID string, ev *domain.NarrationEvent) error
	PublishRoute(ctx context.Context, sessionID string, route *domain.Route) error
}
