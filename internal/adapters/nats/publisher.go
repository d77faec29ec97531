package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ericnem/passepartout/internal/core/domain"
)

// Subject layout for session events. WebSocket relays subscribe with
// SessionSubjectPrefix + "<id>.>" to receive everything for one session.
const (
	SessionSubjectPrefix = "guide.session."

	kindPosition  = "position"
	kindMessage   = "message"
	kindNarration = "narration"
	kindRoute     = "route"
)

// SessionSubject builds the subject for one event kind within a session.
func SessionSubject(sessionID, kind string) string {
	return SessionSubjectPrefix + sessionID + "." + kind
}

// Publisher implements ports.EventPublisher over NATS JetStream. Narration
// and route events are persisted in a stream so late-joining clients can
// replay them; position samples go over core NATS only, they are too chatty
// and stale samples have no value.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the session event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      "GUIDE_SESSIONS",
		Subjects:  []string{SessionSubjectPrefix + "*.message", SessionSubjectPrefix + "*.narration", SessionSubjectPrefix + "*.route"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist with older settings.
		if _, err := js.UpdateStream(&cfg); err != nil {
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishPosition(ctx context.Context, sessionID string, pos domain.GeoPoint) error {
	data, err := json.Marshal(pos)
	if err != nil {
		return err
	}
	return p.conn.Publish(SessionSubject(sessionID, kindPosition), data)
}

func (p *Publisher) PublishMessage(ctx context.Context, sessionID string, msg domain.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SessionSubject(sessionID, kindMessage), data)
	return err
}

func (p *Publisher) PublishNarration(ctx context.Context, sessionID string, ev *domain.NarrationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SessionSubject(sessionID, kindNarration), data)
	return err
}

func (p *Publisher) PublishRoute(ctx context.Context, sessionID string, route *domain.Route) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SessionSubject(sessionID, kindRoute), data)
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
