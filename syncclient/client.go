package syncclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/edvall/sheetstand/model"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultWriteDeadline = 5 * time.Second
	defaultEventBuffer   = 16
)

var (
	ErrDial   = errors.New("unable to dial relay")
	ErrClosed = errors.New("client is closed")
)

// Client is one relay connection. Writes are serialized so payloads sent
// from one client reach each recipient in the order they were sent.
type Client struct {
	logger zerolog.Logger
	conn   *websocket.Conn
	events chan model.Envelope

	wmx    sync.Mutex
	closed bool
}

// Dial connects to a relay websocket endpoint (ws://host:port/socket) and
// starts reading server events. Reconnection is the caller's business, a
// closed client is not reusable.
func Dial(ctx context.Context, url string, logger *zerolog.Logger) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Join(ErrDial, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	c := &Client{
		logger: logger.With().Str("component", "sync-client").Logger(),
		conn:   conn,
		events: make(chan model.Envelope, defaultEventBuffer),
	}
	go c.readLoop()
	return c, nil
}

// Events delivers forwarded messages and server diagnostics. The channel
// closes when the connection goes away.
func (c *Client) Events() <-chan model.Envelope {
	return c.events
}

func (c *Client) Join(room string) error {
	return c.write(model.Envelope{Event: model.EventJoin, Room: room})
}

func (c *Client) Send(room string, payload any) error {
	return c.write(model.Envelope{Event: model.EventMessage, Room: room, Message: payload})
}

func (c *Client) write(env model.Envelope) error {
	c.wmx.Lock()
	defer c.wmx.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline)); err != nil {
		return err
	}
	return c.conn.WriteJSON(&env)
}

func (c *Client) Close() error {
	c.wmx.Lock()
	defer c.wmx.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline))
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

func (c *Client) readLoop() {
	defer close(c.events)

	for {
		var env model.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("connection closed")
			} else {
				c.logger.Error().Err(err).Msg("unexpected error during receive")
			}
			return
		}
		c.events <- env
	}
}
