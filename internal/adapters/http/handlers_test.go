package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	handler "github.com/ericnem/passepartout/internal/adapters/http"
	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/usecases"
)

// ---- Mock collaborators ----

type mockGenerator struct {
	generateFn func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error)
}

func (m *mockGenerator) GenerateRoute(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, text, history)
	}
	return &domain.RouteReply{ChatResponse: "hello"}, nil
}

type mockWeather struct {
	currentFn func(ctx context.Context, lat, lon float64) (*domain.WeatherSnapshot, error)
}

func (m *mockWeather) Current(ctx context.Context, lat, lon float64) (*domain.WeatherSnapshot, error) {
	if m.currentFn != nil {
		return m.currentFn(ctx, lat, lon)
	}
	return &domain.WeatherSnapshot{TempC: 18.5, Description: "clear sky"}, nil
}

// memCache is an in-process stand-in for Valkey.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (m *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("valkey nil message")
}

func (m *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// ---- Test helpers ----

func setupApp(gen *mockGenerator, weather *mockWeather) (*fiber.App, *handler.Dependencies) {
	if gen == nil {
		gen = &mockGenerator{}
	}
	if weather == nil {
		weather = &mockWeather{}
	}

	registry := usecases.NewSessionRegistry(
		usecases.SessionConfig{RoamInterval: time.Hour},
		usecases.SessionDeps{},
	)
	deps := &handler.Dependencies{
		Sessions: registry,
		Chat:     usecases.NewChatService(gen),
		Weather:  usecases.NewWeatherService(weather, newMemCache(), 60),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app, deps
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, data
}

func createSession(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := doJSON(t, app, "POST", "/v1/sessions", "")
	if status != 201 {
		t.Fatalf("create session: expected 201, got %d: %s", status, body)
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ID == "" {
		t.Fatal("expected a session id")
	}
	return snap.ID
}

func routeReply(id string, waypoints ...domain.Waypoint) *domain.RouteReply {
	return &domain.RouteReply{
		IsRouteResponse: true,
		ChatResponse:    "Here is your tour",
		Route: &domain.Route{
			ID:                       id,
			Waypoints:                waypoints,
			TotalDistanceKm:          2.4,
			EstimatedDurationMinutes: 45,
			CreatedAt:                time.Now(),
		},
	}
}

// ---- Tests ----

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupApp(nil, nil)

	status, body := doJSON(t, app, "GET", "/v1/health", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var health map[string]interface{}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", health["status"])
	}
}

func TestSessionLifecycle(t *testing.T) {
	app, deps := setupApp(nil, nil)

	id := createSession(t, app)
	if deps.Sessions.Count() != 1 {
		t.Errorf("expected 1 session in registry, got %d", deps.Sessions.Count())
	}

	status, body := doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !snap.AudioEnabled {
		t.Error("new sessions should start with audio enabled")
	}
	if snap.Route != nil {
		t.Error("new sessions should have no route")
	}

	status, _ = doJSON(t, app, "DELETE", "/v1/sessions/"+id, "")
	if status != 204 {
		t.Fatalf("expected 204, got %d", status)
	}
	status, _ = doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	if status != 404 {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestGetSessionNotFound(t *testing.T) {
	app, _ := setupApp(nil, nil)

	status, body := doJSON(t, app, "GET", "/v1/sessions/nonexistent", "")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if apiErr.Code != "not_found" {
		t.Errorf("expected code not_found, got %q", apiErr.Code)
	}
}

func TestPostMessageChat(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
			return &domain.RouteReply{ChatResponse: "Try asking for a walking tour."}, nil
		},
	}
	app, _ := setupApp(gen, nil)
	id := createSession(t, app)

	status, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/messages", `{"text":"what can you do?"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp struct {
		Reply          string        `json:"reply"`
		RouteInstalled bool          `json:"route_installed"`
		Route          *domain.Route `json:"route"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply != "Try asking for a walking tour." {
		t.Errorf("unexpected reply %q", resp.Reply)
	}
	if resp.RouteInstalled || resp.Route != nil {
		t.Error("chat response must not install a route")
	}
}

func TestPostMessageInstallsRoute(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
			return routeReply("tour-1",
				domain.Waypoint{Name: "Old Town", Location: domain.GeoPoint{Lat: 43.65, Lon: -79.38}, Script: "Welcome"},
			), nil
		},
	}
	app, _ := setupApp(gen, nil)
	id := createSession(t, app)

	status, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/messages", `{"text":"plan me a tour"}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp struct {
		RouteInstalled bool          `json:"route_installed"`
		Route          *domain.Route `json:"route"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.RouteInstalled {
		t.Fatal("expected route_installed true")
	}
	if resp.Route == nil || resp.Route.ID != "tour-1" {
		t.Fatalf("expected route tour-1 in response, got %+v", resp.Route)
	}

	// Trip metrics become available once a route is active.
	status, body = doJSON(t, app, "GET", "/v1/sessions/"+id+"/trip", "")
	if status != 200 {
		t.Fatalf("trip: expected 200, got %d: %s", status, body)
	}
	var info domain.TripInfo
	if err := json.Unmarshal(body, &info); err != nil {
		t.Fatalf("decode trip: %v", err)
	}
	if info.TotalDistanceKm != 2.4 {
		t.Errorf("expected distance 2.4, got %v", info.TotalDistanceKm)
	}
	if info.EstimatedEnergyKcal <= 0 {
		t.Errorf("expected positive energy estimate, got %d", info.EstimatedEnergyKcal)
	}
}

func TestPostMessageEmpty(t *testing.T) {
	app, _ := setupApp(nil, nil)
	id := createSession(t, app)

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+id+"/messages", `{"text":"   "}`)
	if status != 400 {
		t.Fatalf("expected 400 for blank text, got %d", status)
	}
}

func TestPostMessageUpstreamFailure(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	app, _ := setupApp(gen, nil)
	id := createSession(t, app)

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+id+"/messages", `{"text":"plan a tour"}`)
	if status != 502 {
		t.Fatalf("expected 502, got %d", status)
	}

	// The user's message survives the failure.
	status, body := doJSON(t, app, "GET", "/v1/sessions/"+id+"/transcript", "")
	if status != 200 {
		t.Fatalf("transcript: expected 200, got %d", status)
	}
	var page struct {
		Data []domain.Message `json:"data"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Role != domain.RoleUser {
		t.Fatalf("expected one surviving user entry, got %+v", page.Data)
	}
}

func TestPostMessageMalformedRoute(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
			return &domain.RouteReply{
				IsRouteResponse: true,
				Route:           &domain.Route{ID: "broken"},
			}, nil
		},
	}
	app, _ := setupApp(gen, nil)
	id := createSession(t, app)

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+id+"/messages", `{"text":"plan a tour"}`)
	if status != 422 {
		t.Fatalf("expected 422, got %d", status)
	}

	// No partial route install.
	_, body := doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Route != nil {
		t.Errorf("malformed route must not be installed, got %+v", snap.Route)
	}
}

func TestPostPositionTriggersNarration(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
			return routeReply("tour-1",
				domain.Waypoint{Name: "Fountain", Location: domain.GeoPoint{Lat: 43.6500, Lon: -79.3800}, Script: "The fountain dates to 1890."},
			), nil
		},
	}
	app, _ := setupApp(gen, nil)
	id := createSession(t, app)

	if status, _ := doJSON(t, app, "POST", "/v1/sessions/"+id+"/messages", `{"text":"plan a tour"}`); status != 200 {
		t.Fatalf("install route: got %d", status)
	}

	status, body := doJSON(t, app, "POST", "/v1/sessions/"+id+"/position", `{"lat":43.6500,"lon":-79.3800}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	var resp struct {
		Narration *domain.NarrationEvent `json:"narration"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Narration == nil || resp.Narration.Name != "Fountain" {
		t.Fatalf("expected Fountain narration, got %+v", resp.Narration)
	}

	// Same spot again: already narrated, no event.
	_, body = doJSON(t, app, "POST", "/v1/sessions/"+id+"/position", `{"lat":43.6500,"lon":-79.3800}`)
	resp.Narration = nil
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Narration != nil {
		t.Errorf("expected no repeat narration, got %+v", resp.Narration)
	}
}

func TestPostPositionInvalidDroppedSilently(t *testing.T) {
	app, _ := setupApp(nil, nil)
	id := createSession(t, app)

	status, _ := doJSON(t, app, "POST", "/v1/sessions/"+id+"/position", `{"lat":91.0,"lon":0.0}`)
	if status != 200 {
		t.Fatalf("invalid samples are dropped, not errored; got %d", status)
	}

	_, body := doJSON(t, app, "GET", "/v1/sessions/"+id, "")
	var snap domain.SessionSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Position != nil {
		t.Errorf("dropped sample must not update position, got %+v", snap.Position)
	}
}

func TestPatchSettings(t *testing.T) {
	app, _ := setupApp(nil, nil)
	id := createSession(t, app)

	status, body := doJSON(t, app, "PATCH", "/v1/sessions/"+id+"/settings", `{"audio_enabled":false}`)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var resp map[string]bool
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["audio_enabled"] {
		t.Error("expected audio_enabled false")
	}

	status, _ = doJSON(t, app, "PATCH", "/v1/sessions/"+id+"/settings", `{}`)
	if status != 400 {
		t.Fatalf("expected 400 for empty settings, got %d", status)
	}
}

func TestGetTripNoRoute(t *testing.T) {
	app, _ := setupApp(nil, nil)
	id := createSession(t, app)

	status, _ := doJSON(t, app, "GET", "/v1/sessions/"+id+"/trip", "")
	if status != 404 {
		t.Fatalf("expected 404 when no route active, got %d", status)
	}
}

func TestGetWeather(t *testing.T) {
	calls := 0
	weather := &mockWeather{
		currentFn: func(ctx context.Context, lat, lon float64) (*domain.WeatherSnapshot, error) {
			calls++
			return &domain.WeatherSnapshot{TempC: 21.0, Description: "few clouds"}, nil
		},
	}
	app, _ := setupApp(nil, weather)
	id := createSession(t, app)

	// No position yet.
	status, _ := doJSON(t, app, "GET", "/v1/sessions/"+id+"/weather", "")
	if status != 400 {
		t.Fatalf("expected 400 without a position, got %d", status)
	}

	if status, _ := doJSON(t, app, "POST", "/v1/sessions/"+id+"/position", `{"lat":43.65,"lon":-79.38}`); status != 200 {
		t.Fatalf("position: got %d", status)
	}

	status, body := doJSON(t, app, "GET", "/v1/sessions/"+id+"/weather", "")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}
	var snap domain.WeatherSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Description != "few clouds" {
		t.Errorf("unexpected description %q", snap.Description)
	}

	// Second read at the same spot comes from cache.
	if status, _ := doJSON(t, app, "GET", "/v1/sessions/"+id+"/weather", ""); status != 200 {
		t.Fatalf("cached read: got %d", status)
	}
	if calls != 1 {
		t.Errorf("expected 1 provider call, got %d", calls)
	}
}

func TestTranscriptPagination(t *testing.T) {
	replies := 0
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, text string, history []domain.Message) (*domain.RouteReply, error) {
			replies++
			return &domain.RouteReply{ChatResponse: fmt.Sprintf("reply %d", replies)}, nil
		},
	}
	app, _ := setupApp(gen, nil)
	id := createSession(t, app)

	for i := 0; i < 3; i++ {
		if status, _ := doJSON(t, app, "POST", "/v1/sessions/"+id+"/messages", fmt.Sprintf(`{"text":"message %d"}`, i)); status != 200 {
			t.Fatalf("submit %d failed", i)
		}
	}

	// 3 user + 3 assistant entries, page size 2.
	req := httptest.NewRequest("GET", "/v1/sessions/"+id+"/transcript?offset=2&limit=2", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("transcript: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if link := resp.Header.Get("Link"); !strings.Contains(link, `rel="next"`) {
		t.Errorf("expected next Link header, got %q", link)
	}

	body, _ := io.ReadAll(resp.Body)
	var page struct {
		Data       []domain.Message   `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page.Data))
	}
	if page.Pagination.Total != 6 {
		t.Errorf("expected total 6, got %d", page.Pagination.Total)
	}
}

func TestLegacyChatEndpointDeprecated(t *testing.T) {
	app, _ := setupApp(nil, nil)
	id := createSession(t, app)

	req := httptest.NewRequest("POST", "/v1/sessions/"+id+"/chat", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Deprecation") != "true" {
		t.Error("expected Deprecation header on legacy endpoint")
	}
	if resp.Header.Get("Sunset") == "" {
		t.Error("expected Sunset header on legacy endpoint")
	}
}

func TestGraphQLSessionQuery(t *testing.T) {
	app, _ := setupApp(nil, nil)
	id := createSession(t, app)

	query := fmt.Sprintf(`{"query":"{ session(id: \"%s\") { id audio_enabled } }"}`, id)
	status, body := doJSON(t, app, "POST", "/graphql", query)
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var resp struct {
		Data struct {
			Session struct {
				ID           string `json:"id"`
				AudioEnabled bool   `json:"audio_enabled"`
			} `json:"session"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) > 0 {
		t.Fatalf("graphql errors: %v", resp.Errors)
	}
	if resp.Data.Session.ID != id {
		t.Errorf("expected session id %s, got %s", id, resp.Data.Session.ID)
	}
	if !resp.Data.Session.AudioEnabled {
		t.Error("expected audio_enabled true")
	}
}
