package relay

import (
	"context"
	"sync"
	"time"

	"github.com/edvall/sheetstand/model"
	"github.com/rs/zerolog"
)

const (
	defaultFwdTimeout = time.Second
)

type Membership interface {
	Join(room string, connID string)
	Members(room string) []string
	Disconnect(connID string) []string
}

// Relay fans messages out between room members. It owns the connID->wire
// table; room membership lives in the store so independent relay instances
// can coexist in tests.
type Relay struct {
	logger zerolog.Logger
	mx     *sync.RWMutex
	wires  map[string]model.Wire
	rooms  Membership
}

func NewRelay(logger *zerolog.Logger, rooms Membership) *Relay {
	return &Relay{
		logger: logger.With().Str("component", "relay").Logger(),
		mx:     &sync.RWMutex{},
		wires:  make(map[string]model.Wire),
		rooms:  rooms,
	}
}

// Connect registers a connection's wire and starts consuming its inbound
// envelopes. Envelopes from one connection are handled strictly in order,
// which preserves FIFO delivery per sender-room pair.
func (rl *Relay) Connect(ctx context.Context, connID string, wire model.Wire) error {
	rl.mx.Lock()
	defer func() {
		rl.mx.Unlock()
		rl.logger.Debug().
			Str("connID", connID).
			Msg("connection registered")
		go rl.serve(ctx, connID, wire.RX)
	}()

	rl.wires[connID] = wire
	return nil
}

// Disconnect drops the wire and clears every room membership the
// connection held. Remaining room members are not notified.
func (rl *Relay) Disconnect(connID string) error {
	rl.mx.Lock()
	delete(rl.wires, connID)
	rl.mx.Unlock()

	left := rl.rooms.Disconnect(connID)
	rl.logger.Debug().
		Str("connID", connID).
		Strs("rooms", left).
		Msg("connection deregistered")
	return nil
}

func (rl *Relay) serve(ctx context.Context, connID string, rx <-chan model.Envelope) {
ServeLoop:
	for {
		select {
		case <-ctx.Done():
			break ServeLoop
		case env, ok := <-rx:
			if !ok {
				break ServeLoop
			}
			rl.route(ctx, connID, env)
		}
	}
}

func (rl *Relay) route(ctx context.Context, connID string, env model.Envelope) {
	switch env.Event {
	case model.EventJoin:
		if env.Room == "" {
			rl.logger.Debug().
				Str("connID", connID).
				Msg("join without room name, dropped")
			return
		}
		rl.rooms.Join(env.Room, connID)
		rl.sendLog(ctx, connID, "Received request to create or join room "+env.Room)
		rl.sendLog(ctx, connID, "Client ID "+connID+" created room "+env.Room)

	case model.EventMessage:
		if env.Room == "" || env.Message == nil {
			rl.logger.Debug().
				Str("connID", connID).
				Msg("malformed message, dropped")
			return
		}
		rl.sendLog(ctx, connID, "Client said: ", env.Message)
		rl.forward(ctx, connID, env.Room, env.Message)

	default:
		rl.logger.Debug().
			Str("connID", connID).
			Str("event", env.Event).
			Msg("unknown event, dropped")
	}
}

// forward delivers payload to every current member of room except the
// sender. An empty room is a silent no-op.
func (rl *Relay) forward(ctx context.Context, connID, room string, payload any) {
	var (
		sent   bool
		out    = model.Envelope{Event: model.EventMessage, Message: payload}
		logger = rl.logger.With().
			Str("connID", connID).
			Str("room", room).Logger()
	)

	for _, dst := range rl.rooms.Members(room) {
		if dst == connID {
			continue
		}
		rl.mx.RLock()
		wire, ok := rl.wires[dst]
		rl.mx.RUnlock()
		if !ok {
			logger.Debug().Str("dst", dst).Msg("cannot forward, dst wire is gone")
			continue
		}
		envSent, canceled := send(ctx, out, wire.TX, &logger)
		if canceled {
			return
		}
		if envSent {
			sent = true
		}
	}

	if !sent {
		logger.Debug().Msg("message did not reach anyone")
	}
}

// sendLog unicasts a diagnostic line back to the originating connection
// only. Diagnostics are never broadcast.
func (rl *Relay) sendLog(ctx context.Context, connID string, items ...any) {
	rl.mx.RLock()
	wire, ok := rl.wires[connID]
	rl.mx.RUnlock()
	if !ok {
		return
	}
	env := model.Envelope{
		Event: model.EventLog,
		Items: append([]any{"Message from server:"}, items...),
	}
	send(ctx, env, wire.TX, &rl.logger)
}

func send(ctx context.Context, env model.Envelope, tx chan<- model.Envelope, logger *zerolog.Logger) (bool, bool) {
	var sent, canceled bool
	tCh := time.NewTimer(defaultFwdTimeout)
	select {
	case <-ctx.Done():
		canceled = true
	case <-tCh.C:
		logger.Error().Msg("dead endpoint")
	case tx <- env:
		sent = true
	}
	tCh.Stop()
	return sent, canceled
}
