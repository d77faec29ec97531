package usecases

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/ports"
	"github.com/ericnem/passepartout/internal/pkg/metrics"
)

// DefaultRoamInterval is how often roaming asks for ambient commentary.
const DefaultRoamInterval = 60 * time.Second

// RoamState is the observable lifecycle of a poller.
type RoamState int

const (
	RoamIdle RoamState = iota
	RoamScheduled
	RoamInFlight
	RoamCancelled
)

func (s RoamState) String() string {
	switch s {
	case RoamIdle:
		return "idle"
	case RoamScheduled:
		return "scheduled"
	case RoamInFlight:
		return "in_flight"
	case RoamCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// RoamPoller periodically asks the roaming service for ambient commentary
// based on the session's position and transcript. A poller is single-use:
// Start moves it from Idle to Scheduled, Stop moves it to Cancelled for
// good; re-enabling roaming builds a fresh poller.
//
// The first tick fires one interval after Start, not immediately. The loop
// blocks on the in-flight request, so at most one poll runs at a time and
// extra ticks elapsing during a slow request coalesce. A response that
// resolves after Stop is discarded without touching the transcript.
type RoamPoller struct {
	session  *Session
	provider ports.RoamProvider
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	state  RoamState
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRoamPoller creates a poller in the Idle state.
func NewRoamPoller(s *Session, provider ports.RoamProvider, interval time.Duration) *RoamPoller {
	if interval <= 0 {
		interval = DefaultRoamInterval
	}
	return &RoamPoller{
		session:  s,
		provider: provider,
		interval: interval,
		logger:   slog.Default().With("component", "roam", "session_id", s.ID()),
		state:    RoamIdle,
		done:     make(chan struct{}),
	}
}

// Start schedules the polling loop. No-op unless the poller is Idle.
func (p *RoamPoller) Start() {
	p.mu.Lock()
	if p.state != RoamIdle {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.state = RoamScheduled
	p.mu.Unlock()

	go p.loop(ctx)
}

// Stop cancels the pending tick and marks any in-flight response for
// discard. It does not wait for a slow request to resolve; the context
// check after the call guarantees the stale result is dropped.
func (p *RoamPoller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.state = RoamCancelled
	p.mu.Unlock()
}

// State returns the current observable state.
func (p *RoamPoller) State() RoamState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed when the loop goroutine has exited. Test hook.
func (p *RoamPoller) Done() <-chan struct{} { return p.done }

func (p *RoamPoller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.transition(RoamScheduled, RoamInFlight) {
				return
			}
			p.poll(ctx)
			if !p.transition(RoamInFlight, RoamScheduled) {
				return
			}
		}
	}
}

// transition moves from one state to the next unless the poller was
// cancelled in the meantime.
func (p *RoamPoller) transition(from, to RoamState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != from {
		return false
	}
	p.state = to
	return true
}

func (p *RoamPoller) poll(ctx context.Context) {
	pos, history := p.session.roamContext()
	if pos == nil {
		// No sample yet; nothing to describe.
		return
	}

	metrics.RoamPolls.Inc()
	summary, err := p.provider.Summary(ctx, pos.String(), history)
	if err != nil {
		// Not fatal to the loop: the transcript stays untouched and the
		// next tick polls again.
		metrics.RoamPollErrors.Inc()
		p.logger.Warn("roam poll failed", "error", err)
		return
	}
	if ctx.Err() != nil {
		// Roaming was disabled while the request was in flight.
		return
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}

	p.session.appendMessage(ctx, domain.Message{Role: domain.RoleAssistant, Content: summary})
	p.session.speak(summary)
}
