package http

import (
	"github.com/nats-io/nats.go"

	"github.com/ericnem/passepartout/internal/adapters/valkey"
	"github.com/ericnem/passepartout/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionRegistry
	Chat     *usecases.ChatService
	Weather  *usecases.WeatherService
	NATS     *nats.Conn
	Cache    *valkey.Cache
}
