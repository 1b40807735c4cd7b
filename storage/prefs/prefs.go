package prefs

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

const keyLastScoreDir = "last_score_dir"

var (
	ErrOpen = errors.New("unable to open prefs store")
)

// Store remembers small per-installation settings between runs, currently
// just the last opened score directory.
type Store struct {
	logger zerolog.Logger
	db     *badger.DB
}

type Config struct {
	Logger *zerolog.Logger
	Path   string
}

func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Join(ErrOpen, err)
	}
	return &Store{
		logger: cfg.Logger.With().Str("component", "prefs").Logger(),
		db:     db,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// LastScoreDir returns the remembered score directory, or "" when none
// was stored yet.
func (s *Store) LastScoreDir() (string, error) {
	var dir string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyLastScoreDir))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		return item.Value(func(val []byte) error {
			dir = string(val)
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Store) SetLastScoreDir(dir string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyLastScoreDir), []byte(dir))
	})
	if err != nil {
		return err
	}
	s.logger.Debug().Str("dir", dir).Msg("score directory remembered")
	return nil
}
