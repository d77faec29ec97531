package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/ports"
	"github.com/ericnem/passepartout/internal/pkg/metrics"
)

// SubmitOutcome reports what one chat submission did.
type SubmitOutcome struct {
	Reply          string `json:"reply"`
	RouteInstalled bool   `json:"route_installed"`
}

// ChatService dispatches user text to the route-generation service and
// installs resulting routes into the session. Submissions against one
// session are serialized: a second submit while one is outstanding is
// rejected with ErrSubmissionInFlight.
type ChatService struct {
	generator ports.RouteGenerator
	logger    *slog.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(generator ports.RouteGenerator) *ChatService {
	return &ChatService{
		generator: generator,
		logger:    slog.Default().With("component", "chat"),
	}
}

// Submit sends one user message. The user entry is appended optimistically
// and survives any downstream failure; the assistant entry is appended only
// on success. A response flagged as a route replaces the active route in
// full, which re-arms narration; a malformed route fails the submission
// without touching the active route.
func (c *ChatService) Submit(ctx context.Context, s *Session, text string) (*SubmitOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.ChatSubmissions.WithLabelValues("rejected").Inc()
		return nil, ErrEmptySubmission
	}

	prior, err := s.beginSubmit()
	if err != nil {
		metrics.ChatSubmissions.WithLabelValues("rejected").Inc()
		return nil, err
	}
	defer s.endSubmit()

	s.appendMessage(ctx, domain.Message{Role: domain.RoleUser, Content: text})

	reply, err := c.generator.GenerateRoute(ctx, text, prior)
	if err != nil {
		metrics.ChatSubmissions.WithLabelValues("failed").Inc()
		c.logger.Warn("route generation failed", "session_id", s.ID(), "error", err)
		return nil, fmt.Errorf("generate route: %w", err)
	}

	if reply.IsRouteResponse {
		if err := reply.Route.Validate(); err != nil {
			metrics.ChatSubmissions.WithLabelValues("failed").Inc()
			return nil, fmt.Errorf("%w: %v", ErrMalformedRoute, err)
		}
		s.installRoute(ctx, reply.Route)
		metrics.ChatSubmissions.WithLabelValues("route").Inc()
	} else {
		metrics.ChatSubmissions.WithLabelValues("chat").Inc()
	}

	s.appendMessage(ctx, domain.Message{Role: domain.RoleAssistant, Content: reply.ChatResponse})

	return &SubmitOutcome{
		Reply:          reply.ChatResponse,
		RouteInstalled: reply.IsRouteResponse,
	}, nil
}
