package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/ports"
	"github.com/ericnem/passepartout/internal/pkg/metrics"
)

// SessionConfig carries the tunable constants of a guide session.
// Proximity radius and roam interval are fixed in the reference behavior
// (20 m, 60 s) but configurable per deployment here.
type SessionConfig struct {
	ProximityRadiusMeters float64
	RoamInterval          time.Duration
}

// SessionDeps are the external collaborators a session talks to.
// Any of them may be nil; the session degrades gracefully.
type SessionDeps struct {
	Roam   ports.RoamProvider
	Speech ports.SpeechService
	Events ports.EventPublisher
}

// Session owns one traveler's mutable trip state: current position, active
// route, transcript, toggles, and narration arm-state. All mutations happen
// under a single mutex, which preserves the one-logical-thread semantics
// the state machine requires; network calls never hold the lock.
type Session struct {
	id        string
	createdAt time.Time
	cfg       SessionConfig
	deps      SessionDeps
	logger    *slog.Logger

	mu           sync.Mutex
	position     *domain.GeoPoint
	route        *domain.Route
	transcript   []domain.Message
	audioEnabled bool
	roamEnabled  bool
	lastNarrated *int
	submitting   bool
	roamPoller   *RoamPoller
}

// NewSession creates a session with no route, no position, and an empty
// transcript. Audio narration starts enabled; roaming starts disabled.
func NewSession(id string, cfg SessionConfig, deps SessionDeps) *Session {
	if cfg.ProximityRadiusMeters <= 0 {
		cfg.ProximityRadiusMeters = DefaultProximityRadiusMeters
	}
	if cfg.RoamInterval <= 0 {
		cfg.RoamInterval = DefaultRoamInterval
	}
	return &Session{
		id:           id,
		createdAt:    time.Now(),
		cfg:          cfg,
		deps:         deps,
		logger:       slog.Default().With("session_id", id),
		audioEnabled: true,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// HandlePosition ingests one position sample. Invalid samples are dropped
// without error. When the sample lands within the proximity radius of an
// un-narrated waypoint and audio is enabled, the narration event is
// returned, handed to the speech collaborator, and published.
func (s *Session) HandlePosition(ctx context.Context, lat, lon float64) *domain.NarrationEvent {
	pos := domain.GeoPoint{Lat: lat, Lon: lon}
	if !pos.Valid() {
		metrics.PositionSamples.WithLabelValues("dropped").Inc()
		s.logger.Debug("dropping out-of-range position sample", "lat", lat, "lon", lon)
		return nil
	}
	metrics.PositionSamples.WithLabelValues("accepted").Inc()

	s.mu.Lock()
	s.position = &pos
	ev, next := NextNarration(s.route, &pos, s.audioEnabled, s.lastNarrated, s.cfg.ProximityRadiusMeters)
	s.lastNarrated = next
	s.mu.Unlock()

	if s.deps.Events != nil {
		_ = s.deps.Events.PublishPosition(ctx, s.id, pos)
	}

	if ev != nil {
		metrics.NarrationsTriggered.Inc()
		s.logger.Info("narration triggered", "waypoint", ev.Name, "index", ev.WaypointIndex)
		s.speak(ev.Script)
		if s.deps.Events != nil {
			_ = s.deps.Events.PublishNarration(ctx, s.id, ev)
		}
	}
	return ev
}

// SetAudioEnabled toggles narration. Takes effect on the next position
// sample, not retroactively.
func (s *Session) SetAudioEnabled(enabled bool) {
	s.mu.Lock()
	s.audioEnabled = enabled
	s.mu.Unlock()
}

// SetRoamEnabled toggles the roaming poller. Enabling starts a fresh
// poller whose first tick fires after one interval; disabling cancels it,
// and a poll already in flight is discarded on resolution.
func (s *Session) SetRoamEnabled(enabled bool) {
	s.mu.Lock()
	if s.roamEnabled == enabled {
		s.mu.Unlock()
		return
	}
	s.roamEnabled = enabled

	var stop *RoamPoller
	if enabled {
		if s.deps.Roam != nil {
			s.roamPoller = NewRoamPoller(s, s.deps.Roam, s.cfg.RoamInterval)
			s.roamPoller.Start()
		}
	} else {
		stop = s.roamPoller
		s.roamPoller = nil
	}
	s.mu.Unlock()

	if stop != nil {
		stop.Stop()
	}
}

// RoamState exposes the poller state for observability. RoamIdle when
// roaming has never been enabled.
func (s *Session) RoamState() RoamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roamPoller == nil {
		return RoamIdle
	}
	return s.roamPoller.State()
}

// Snapshot returns a read-only copy of the session state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{
		ID:           s.id,
		Route:        s.route,
		Transcript:   append([]domain.Message(nil), s.transcript...),
		AudioEnabled: s.audioEnabled,
		RoamEnabled:  s.roamEnabled,
		CreatedAt:    s.createdAt,
	}
	if s.position != nil {
		p := *s.position
		snap.Position = &p
	}
	if s.lastNarrated != nil {
		i := *s.lastNarrated
		snap.LastNarratedIndex = &i
	}
	return snap
}

// Trip derives ETA and energy metrics from the active route.
func (s *Session) Trip(now time.Time) (*domain.TripInfo, error) {
	s.mu.Lock()
	route := s.route
	s.mu.Unlock()
	return TripInfoFor(route, now)
}

// Position returns the latest accepted sample, or ErrNoPosition.
func (s *Session) Position() (domain.GeoPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.position == nil {
		return domain.GeoPoint{}, ErrNoPosition
	}
	return *s.position, nil
}

// Close stops background work. The session must not be used afterwards.
func (s *Session) Close() {
	s.SetRoamEnabled(false)
}

// installRoute replaces the active route wholesale and re-arms narration.
// Route state never reverts to "no route" once set.
func (s *Session) installRoute(ctx context.Context, route *domain.Route) {
	s.mu.Lock()
	s.route = route
	s.lastNarrated = nil
	s.mu.Unlock()

	metrics.RouteReplacements.Inc()
	s.logger.Info("route installed", "route_id", route.ID, "waypoints", len(route.Waypoints))
	if s.deps.Events != nil {
		_ = s.deps.Events.PublishRoute(ctx, s.id, route)
	}
}

// appendMessage appends to the transcript and publishes the entry.
func (s *Session) appendMessage(ctx context.Context, msg domain.Message) {
	s.mu.Lock()
	s.transcript = append(s.transcript, msg)
	s.mu.Unlock()

	if s.deps.Events != nil {
		_ = s.deps.Events.PublishMessage(ctx, s.id, msg)
	}
}

// beginSubmit reserves the single submission slot and returns the
// transcript as it was before this submission's optimistic append.
func (s *Session) beginSubmit() ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return nil, ErrSubmissionInFlight
	}
	s.submitting = true
	return append([]domain.Message(nil), s.transcript...), nil
}

func (s *Session) endSubmit() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

// roamContext snapshots what a roam poll needs: the latest position and
// the transcript. Returns a nil position when no sample has arrived.
func (s *Session) roamContext() (*domain.GeoPoint, []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pos *domain.GeoPoint
	if s.position != nil {
		p := *s.position
		pos = &p
	}
	return pos, append([]domain.Message(nil), s.transcript...)
}

// speak hands text to the speech collaborator without blocking the caller.
func (s *Session) speak(text string) {
	if s.deps.Speech == nil || text == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.deps.Speech.Speak(ctx, text); err != nil {
			metrics.SpeechRequests.WithLabelValues("error").Inc()
			s.logger.Warn("speech request failed", "error", err)
			return
		}
		metrics.SpeechRequests.WithLabelValues("ok").Inc()
	}()
}
