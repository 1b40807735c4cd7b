package syncclient

import (
	"context"

	"github.com/edvall/sheetstand/model"
	"github.com/edvall/sheetstand/viewer/controller"
	"github.com/rs/zerolog"
)

// PageTurn is the payload exchanged between coupled displays.
type PageTurn struct {
	Page int `json:"page"`
}

// Announcer returns a controller OnChange hook that publishes local page
// turns into the given room. Send failures are logged and dropped, a
// missed page turn is not retried.
func Announcer(c *Client, room string, logger *zerolog.Logger) func(page int) {
	lg := logger.With().Str("component", "page-link").Logger()
	return func(page int) {
		if err := c.Send(room, PageTurn{Page: page}); err != nil {
			lg.Error().Err(err).Int("page", page).Msg("failed to announce page turn")
		}
	}
}

// Link joins the room and applies incoming page turns to the controller
// until the context is canceled or the connection drops. Remote updates go
// through SetCurrent, which never re-announces, so two linked displays do
// not ping-pong.
func Link(ctx context.Context, c *Client, ctrl *controller.Controller, room string, logger *zerolog.Logger) error {
	lg := logger.With().Str("component", "page-link").Logger()

	if err := c.Join(room); err != nil {
		return err
	}

LinkLoop:
	for {
		select {
		case <-ctx.Done():
			break LinkLoop
		case env, ok := <-c.Events():
			if !ok {
				break LinkLoop
			}
			switch env.Event {
			case model.EventMessage:
				page, ok := pageFromPayload(env.Message)
				if !ok {
					lg.Debug().Any("payload", env.Message).Msg("payload is not a page turn, dropped")
					continue
				}
				ctrl.SetCurrent(page)
			case model.EventLog:
				lg.Debug().Any("items", env.Items).Msg("server log")
			}
		}
	}
	return nil
}

// pageFromPayload digs the page number out of a decoded JSON payload.
// JSON numbers arrive as float64.
func pageFromPayload(payload any) (int, bool) {
	m, ok := payload.(map[string]any)
	if !ok {
		return 0, false
	}
	n, ok := m["page"].(float64)
	if !ok {
		return 0, false
	}
	return int(n), true
}
