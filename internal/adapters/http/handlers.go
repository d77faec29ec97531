package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ericnem/passepartout/internal/core/domain"
	"github.com/ericnem/passepartout/internal/core/usecases"
)

// CreateSessionHandler starts a new guide session.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := deps.Sessions.Create()
		return c.Status(201).JSON(s.Snapshot())
	}
}

// GetSessionHandler returns the full session snapshot.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "session not found")
		}
		return c.JSON(s.Snapshot())
	}
}

// DeleteSessionHandler closes a session and discards its state.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Remove(c.Params("id")); err != nil {
			return errNotFound(c, "session not found")
		}
		return c.SendStatus(204)
	}
}

// submitRequest is the body for chat submissions.
type submitRequest struct {
	Text string `json:"text"`
}

// submitResponse reports the assistant reply and whether a new route was installed.
type submitResponse struct {
	Reply          string        `json:"reply"`
	RouteInstalled bool          `json:"route_installed"`
	Route          *domain.Route `json:"route,omitempty"`
}

// PostMessageHandler submits a chat message. The reply is either plain
// conversation or a newly generated route that replaces the active one.
func PostMessageHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "session not found")
		}

		var req submitRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		outcome, err := deps.Chat.Submit(c.UserContext(), s, req.Text)
		switch {
		case errors.Is(err, usecases.ErrEmptySubmission):
			return errBadRequest(c, "message text is empty")
		case errors.Is(err, usecases.ErrSubmissionInFlight):
			return errConflict(c, "a previous message is still being processed")
		case errors.Is(err, usecases.ErrMalformedRoute):
			return errUnprocessable(c, "guide backend returned an unusable route")
		case err != nil:
			return errBadGateway(c, "guide backend unavailable")
		}

		resp := submitResponse{
			Reply:          outcome.Reply,
			RouteInstalled: outcome.RouteInstalled,
		}
		if outcome.RouteInstalled {
			resp.Route = s.Snapshot().Route
		}
		return c.JSON(resp)
	}
}

// positionRequest is a single GPS sample from the client.
type positionRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// positionResponse carries the narration triggered by this sample, if any.
type positionResponse struct {
	Narration *domain.NarrationEvent `json:"narration,omitempty"`
}

// PostPositionHandler ingests a position sample. Out-of-range coordinates
// are dropped without error so a glitchy GPS feed never breaks the stream.
func PostPositionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "session not found")
		}

		var req positionRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		ev := s.HandlePosition(c.UserContext(), req.Lat, req.Lon)
		return c.JSON(positionResponse{Narration: ev})
	}
}

// settingsRequest toggles session behavior. Absent fields are unchanged.
type settingsRequest struct {
	AudioEnabled *bool `json:"audio_enabled"`
	RoamEnabled  *bool `json:"roam_enabled"`
}

// PatchSettingsHandler updates audio and roam toggles.
func PatchSettingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "session not found")
		}

		var req settingsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.AudioEnabled == nil && req.RoamEnabled == nil {
			return errBadRequest(c, "no settings provided")
		}

		if req.AudioEnabled != nil {
			s.SetAudioEnabled(*req.AudioEnabled)
		}
		if req.RoamEnabled != nil {
			s.SetRoamEnabled(*req.RoamEnabled)
		}

		snap := s.Snapshot()
		return c.JSON(fiber.Map{
			"audio_enabled": snap.AudioEnabled,
			"roam_enabled":  snap.RoamEnabled,
		})
	}
}

// GetTripHandler returns metrics derived from the active route.
func GetTripHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "session not found")
		}

		info, err := s.Trip(time.Now())
		if errors.Is(err, usecases.ErrNoActiveRoute) {
			return errNotFound(c, "no active route")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}
		return c.JSON(info)
	}
}

// GetWeatherHandler returns current conditions at the session's position.
func GetWeatherHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "session not found")
		}

		pos, err := s.Position()
		if errors.Is(err, usecases.ErrNoPosition) {
			return errBadRequest(c, "session has no position yet")
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		snap, err := deps.Weather.CurrentAt(c.UserContext(), pos)
		if err != nil {
			return errBadGateway(c, "weather provider unavailable")
		}

		c.Set("Cache-Control", "public, max-age=60")
		return c.JSON(snap)
	}
}

// GetTranscriptHandler returns the conversation transcript with
// offset/limit pagination.
func GetTranscriptHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, err := deps.Sessions.Get(c.Params("id"))
		if err != nil {
			return errNotFound(c, "session not found")
		}

		transcript := s.Snapshot().Transcript

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 100)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		total := len(transcript)
		if offset >= total {
			transcript = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			transcript = transcript[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: transcript, Pagination: pg})
	}
}
