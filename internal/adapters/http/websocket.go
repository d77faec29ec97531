package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/ericnem/passepartout/internal/adapters/nats"
	"github.com/ericnem/passepartout/internal/core/usecases"
	"github.com/ericnem/passepartout/internal/pkg/metrics"
)

// wsClientFrame is sent from client to stream position samples or toggle
// event kinds. Default is a firehose of everything for the session.
type wsClientFrame struct {
	Action string  `json:"action"` // "position" | "subscribe" | "unsubscribe"
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Kind   string  `json:"kind"` // "position" | "message" | "narration" | "route" ("" = all)
}

// wsServerFrame wraps a relayed session event with its kind so clients can
// route frames without inspecting payload shape.
type wsServerFrame struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// WebSocketHandler upgrades to WebSocket and binds the connection to one
// session: NATS events for that session flow out, and position frames sent
// by the client are fed into the session's position stream. Narrations
// triggered by a streamed sample come back over the same relay.
func WebSocketHandler(nc *nats.Conn, sessions *usecases.SessionRegistry) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		sessionID, _ := c.Locals("session_id").(string)
		session, err := sessions.Get(sessionID)
		if err != nil {
			_ = c.WriteJSON(map[string]string{"error": "unknown session"})
			return
		}

		logger := slog.Default().With("component", "ws", "session_id", sessionID)
		logger.Info("ws client connected", "remote", c.RemoteAddr().String())
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subs := make(map[string]*nats.Subscription) // kind -> subscription

		subscribe := func(kind string) error {
			if _, exists := subs[kind]; exists {
				return nil
			}
			subject := natsadapter.SessionSubject(sessionID, kind)
			sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
				_ = writeJSON(wsServerFrame{Kind: kind, Data: msg.Data})
			})
			if err != nil {
				return err
			}
			subs[kind] = sub
			return nil
		}

		// Everything for this session by default.
		for _, kind := range []string{"position", "message", "narration", "route"} {
			if err := subscribe(kind); err != nil {
				logger.Warn("ws subscribe failed", "kind", kind, "error", err)
			}
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var frame wsClientFrame
			if err := json.Unmarshal(raw, &frame); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch frame.Action {
			case "position":
				// Invalid samples are dropped inside the session; no error frame.
				session.HandlePosition(context.Background(), frame.Lat, frame.Lon)

			case "subscribe":
				if !validEventKind(frame.Kind) {
					_ = writeJSON(map[string]string{"error": "unknown kind: " + frame.Kind})
					continue
				}
				if err := subscribe(frame.Kind); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "kind": frame.Kind})

			case "unsubscribe":
				if sub, exists := subs[frame.Kind]; exists {
					_ = sub.Unsubscribe()
					delete(subs, frame.Kind)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "kind": frame.Kind})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + frame.Kind})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + frame.Action})
			}
		}

		close(done)
		for _, sub := range subs {
			_ = sub.Unsubscribe()
		}
		logger.Info("ws client disconnected")
	}
}

func validEventKind(kind string) bool {
	switch kind {
	case "position", "message", "narration", "route":
		return true
	}
	return false
}
