package service

import (
	"context"
	"errors"

	"github.com/edvall/sheetstand/model"
	"github.com/rs/zerolog"
)

var (
	ErrConnect    = errors.New("unable to connect")
	ErrDisconnect = errors.New("unable to disconnect")
	ErrSave       = errors.New("unable to save song")
)

type (
	Relay interface {
		Connect(ctx context.Context, connID string, wire model.Wire) error
		Disconnect(connID string) error
	}

	SongLibrary interface {
		Songs() []*model.Song
		SavePages(name string, pages []int) error
	}

	Service struct {
		relay   Relay
		library SongLibrary
		logger  zerolog.Logger
	}

	Config struct {
		Relay   Relay
		Library SongLibrary
		Logger  *zerolog.Logger
	}
)

func NewService(cfg Config) *Service {
	return &Service{
		relay:   cfg.Relay,
		library: cfg.Library,
		logger:  cfg.Logger.With().Str("component", "api").Logger(),
	}
}

// CreateRelaySession attaches a freshly upgraded connection to the relay.
// The connection starts with no room memberships; join events arrive over
// its wire.
func (svc *Service) CreateRelaySession(ctx context.Context, connID string, wire model.Wire) error {
	if err := svc.relay.Connect(ctx, connID, wire); err != nil {
		return errors.Join(ErrConnect, err)
	}
	svc.logger.Debug().
		Str("connID", connID).
		Msg("relay session connected")
	return nil
}

// DeleteRelaySession detaches a closed connection. Membership cleanup is
// immediate and unconditional, there is no intermediate disconnecting
// state.
func (svc *Service) DeleteRelaySession(_ context.Context, connID string) error {
	if err := svc.relay.Disconnect(connID); err != nil {
		return errors.Join(ErrDisconnect, err)
	}
	svc.logger.Debug().
		Str("connID", connID).
		Msg("relay session deleted")
	return nil
}

func (svc *Service) Songs() []*model.Song {
	return svc.library.Songs()
}

func (svc *Service) SavePages(name string, pages []int) error {
	if err := svc.library.SavePages(name, pages); err != nil {
		return errors.Join(ErrSave, err)
	}
	svc.logger.Debug().
		Str("song", name).
		Ints("pages", pages).
		Msg("song pages saved")
	return nil
}
