package guideapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ericnem/passepartout/internal/core/domain"
)

// Client talks to the guide backend that generates narrated routes and
// roam commentary. It implements ports.RouteGenerator and ports.RoamProvider.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// New creates a guide API client. timeout bounds each request.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With("component", "guideapi"),
	}
}

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type generateRouteRequest struct {
	InputText string        `json:"input_text"`
	Context   []wireMessage `json:"context"`
}

type generateRouteResponse struct {
	IsRouteResponse bool        `json:"is_route_response"`
	ChatResponse    string      `json:"chat_response"`
	Route           *wireRoute  `json:"route"`
	Points          []wirePoint `json:"points"`
}

type wireRoute struct {
	ID                       string  `json:"id"`
	TotalDistanceKm          float64 `json:"total_distance_km"`
	EstimatedDurationMinutes float64 `json:"estimated_duration_minutes"`
}

type wirePoint struct {
	Name             string   `json:"name"`
	Lat              float64  `json:"lat"`
	Lng              float64  `json:"lng"`
	Script           string   `json:"script"`
	DurationFromPrev *float64 `json:"duration_from_prev"`
}

type roamRequest struct {
	Coordinates string        `json:"coordinates"`
	Context     []wireMessage `json:"context"`
}

type roamResponse struct {
	Summary string `json:"summary"`
}

// ---------------------------------------------------------------------------
// RouteGenerator
// ---------------------------------------------------------------------------

// GenerateRoute submits the user's request with the prior conversation and
// returns either a chat reply or a full route.
func (c *Client) GenerateRoute(ctx context.Context, inputText string, history []domain.Message) (*domain.RouteReply, error) {
	reqBody := generateRouteRequest{
		InputText: inputText,
		Context:   toWireMessages(history),
	}

	var resp generateRouteResponse
	if err := c.postJSON(ctx, "/generate-route", reqBody, &resp); err != nil {
		return nil, err
	}

	reply := &domain.RouteReply{
		IsRouteResponse: resp.IsRouteResponse,
		ChatResponse:    resp.ChatResponse,
	}
	if resp.IsRouteResponse {
		reply.Route = mapRoute(resp.Route, resp.Points)
	}
	return reply, nil
}

func mapRoute(wr *wireRoute, points []wirePoint) *domain.Route {
	route := &domain.Route{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	if wr != nil {
		if wr.ID != "" {
			route.ID = wr.ID
		}
		route.TotalDistanceKm = wr.TotalDistanceKm
		route.EstimatedDurationMinutes = wr.EstimatedDurationMinutes
	}
	for _, p := range points {
		route.Waypoints = append(route.Waypoints, domain.Waypoint{
			Name:             p.Name,
			Location:         domain.GeoPoint{Lat: p.Lat, Lon: p.Lng},
			Script:           p.Script,
			DurationFromPrev: p.DurationFromPrev,
		})
		route.Path = append(route.Path, domain.GeoPoint{Lat: p.Lat, Lon: p.Lng})
	}
	return route
}

// ---------------------------------------------------------------------------
// RoamProvider
// ---------------------------------------------------------------------------

// Summary asks the backend for ambient commentary about the given coordinates.
func (c *Client) Summary(ctx context.Context, coordinates string, history []domain.Message) (string, error) {
	reqBody := roamRequest{
		Coordinates: coordinates,
		Context:     toWireMessages(history),
	}

	var resp roamResponse
	if err := c.postJSON(ctx, "/roam", reqBody, &resp); err != nil {
		return "", err
	}
	return resp.Summary, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("guide API %s: HTTP %d: %s", path, resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func toWireMessages(history []domain.Message) []wireMessage {
	out := make([]wireMessage, 0, len(history))
	for _, m := range history {
		out = append(out, wireMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
