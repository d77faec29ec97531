package usecases_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/usecases"
)

// --- Shared mocks ---

type mockSpeech struct {
	mu     sync.Mutex
	spoken []string
}

func (m *mockSpeech) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spoken = append(m.spoken, text)
	return nil
}

func (m *mockSpeech) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}

type mockEvents struct {
	mu         sync.Mutex
	positions  int
	messages   []domain.Message
	narrations []domain.NarrationEvent
	routes     int
}

func (m *mockEvents) PublishPosition(ctx context.Context, sessionID string, pos domain.GeoPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions++
	return nil
}

func (m *mockEvents) PublishMessage(ctx context.Context, sessionID string, msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockEvents) PublishNarration(ctx context.Context, sessionID string, ev *domain.NarrationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.narrations = append(m.narrations, *ev)
	return nil
}

func (m *mockEvents) PublishRoute(ctx context.Context, sessionID string, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes++
	return nil
}

func newTestSession(deps usecases.SessionDeps) *usecases.Session {
	return usecases.NewSession("test-session", usecases.SessionConfig{
		ProximityRadiusMeters: 20,
		RoamInterval:          time.Hour, // never ticks unless a test wants it
	}, deps)
}

// waitFor polls until cond returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

// --- Tests ---

func TestSession_ArrivalTriggersNarration(t *testing.T) {
	speech := &mockSpeech{}
	events := &mockEvents{}
	s := newTestSession(usecases.SessionDeps{Speech: speech, Events: events})

	route := routeWith(domain.Waypoint{
		Name:     "Times Square",
		Location: domain.GeoPoint{Lat: 43.6426, Lon: -79.3871},
		Script:   "Welcome...",
	})
	installTestRoute(t, s, route)

	ev := s.HandlePosition(context.Background(), 43.6426, -79.3871)
	if ev == nil {
		t.Fatal("expected a narration event on arrival")
	}
	if ev.WaypointIndex != 0 || ev.Script != "Welcome..." {
		t.Errorf("unexpected event: %+v", ev)
	}

	snap := s.Snapshot()
	if snap.LastNarratedIndex == nil || *snap.LastNarratedIndex != 0 {
		t.Errorf("expected last narrated index 0, got %v", snap.LastNarratedIndex)
	}

	if !waitFor(t, time.Second, func() bool { return len(speech.Spoken()) == 1 }) {
		t.Error("expected the script to reach the speech collaborator")
	}
}

func TestSession_SamePositionNarratesOnce(t *testing.T) {
	s := newTestSession(usecases.SessionDeps{})
	installTestRoute(t, s, routeWith(domain.Waypoint{
		Name:     "Times Square",
		Location: domain.GeoPoint{Lat: 43.6426, Lon: -79.3871},
		Script:   "Welcome...",
	}))

	first := s.HandlePosition(context.Background(), 43.6426, -79.3871)
	second := s.HandlePosition(context.Background(), 43.6426, -79.3871)
	if first == nil {
		t.Fatal("expected first arrival to narrate")
	}
	if second != nil {
		t.Errorf("expected no event while lingering, got %+v", second)
	}
}

func TestSession_RouteReplacementReArmsNarration(t *testing.T) {
	s := newTestSession(usecases.SessionDeps{})

	wp := domain.Waypoint{
		Name:     "Times Square",
		Location: domain.GeoPoint{Lat: 43.6426, Lon: -79.3871},
		Script:   "Welcome...",
	}
	installTestRoute(t, s, &domain.Route{ID: "route-a", Waypoints: []domain.Waypoint{wp}})

	if ev := s.HandlePosition(context.Background(), 43.6426, -79.3871); ev == nil {
		t.Fatal("expected narration on route A")
	}
	if ev := s.HandlePosition(context.Background(), 43.6426, -79.3871); ev != nil {
		t.Fatal("expected no re-trigger on route A")
	}

	// Route B carries a geometrically identical waypoint; the new id
	// re-arms narration for it.
	installTestRoute(t, s, &domain.Route{ID: "route-b", Waypoints: []domain.Waypoint{wp}})

	if ev := s.HandlePosition(context.Background(), 43.6426, -79.3871); ev == nil {
		t.Error("expected a fresh narration event after route replacement")
	}
}

func TestSession_InvalidSampleDropped(t *testing.T) {
	events := &mockEvents{}
	s := newTestSession(usecases.SessionDeps{Events: events})

	if ev := s.HandlePosition(context.Background(), 91, 0); ev != nil {
		t.Errorf("expected invalid sample to be dropped, got %+v", ev)
	}
	if _, err := s.Position(); err != usecases.ErrNoPosition {
		t.Errorf("expected no stored position, got %v", err)
	}
	if events.positions != 0 {
		t.Error("dropped sample must not be published")
	}
}

func TestSession_AudioDisabledSuppressesNarration(t *testing.T) {
	s := newTestSession(usecases.SessionDeps{})
	installTestRoute(t, s, routeWith(domain.Waypoint{
		Name:     "Times Square",
		Location: domain.GeoPoint{Lat: 43.6426, Lon: -79.3871},
		Script:   "Welcome...",
	}))

	s.SetAudioEnabled(false)
	if ev := s.HandlePosition(context.Background(), 43.6426, -79.3871); ev != nil {
		t.Errorf("expected no narration with audio off, got %+v", ev)
	}

	// Toggling back on takes effect on the next sample.
	s.SetAudioEnabled(true)
	if ev := s.HandlePosition(context.Background(), 43.6426, -79.3871); ev == nil {
		t.Error("expected narration after re-enabling audio")
	}
}

func TestSession_SnapshotIsACopy(t *testing.T) {
	s := newTestSession(usecases.SessionDeps{})
	s.HandlePosition(context.Background(), 43.6426, -79.3871)

	snap := s.Snapshot()
	if snap.Position == nil {
		t.Fatal("expected position in snapshot")
	}
	snap.Position.Lat = 0
	snap.Transcript = append(snap.Transcript, domain.Message{Role: domain.RoleUser, Content: "x"})

	again := s.Snapshot()
	if again.Position.Lat != 43.6426 {
		t.Error("mutating a snapshot must not affect session state")
	}
	if len(again.Transcript) != 0 {
		t.Error("transcript leaked through snapshot")
	}
}

// installTestRoute installs a route through the chat path so the id-change
// reset logic is exercised the same way production code runs it.
func installTestRoute(t *testing.T, s *usecases.Session, route *domain.Route) {
	t.Helper()
	chat := usecases.NewChatService(&mockRouteGenerator{
		generateFn: func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
			return &domain.RouteReply{
				IsRouteResponse: true,
				ChatResponse:    "Here is your tour.",
				Route:           route,
			}, nil
		},
	})
	if _, err := chat.Submit(context.Background(), s, "plan a tour"); err != nil {
		t.Fatalf("install route: %v", err)
	}
}
