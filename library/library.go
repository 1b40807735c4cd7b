package library

import (
	"encoding/json"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/edvall/sheetstand/model"
	"github.com/rs/zerolog"
)

const scoresPrefix = "/scores/"

var (
	ErrScan         = errors.New("unable to scan score directory")
	ErrSongNotFound = errors.New("song not found")
	ErrBadPages     = errors.New("page numbers must be positive")
)

// Library is the in-memory view of one score directory. A scan pairs
// <stem>.json metadata files with <stem>.pdf binaries by normalized name.
// Edits are persisted back to the directory only through SavePages.
type Library struct {
	logger zerolog.Logger
	mx     *sync.Mutex
	dir    string
	songs  map[string]*model.Song
}

type Config struct {
	Logger *zerolog.Logger
	Dir    string
}

func New(cfg Config) *Library {
	return &Library{
		logger: cfg.Logger.With().Str("component", "library").Logger(),
		mx:     &sync.Mutex{},
		dir:    cfg.Dir,
		songs:  make(map[string]*model.Song),
	}
}

// SongName derives a song's display name from a file name: the extension
// is dropped and underscores and dashes become spaces, so "Song_A.pdf"
// and "Song A.json" both map to "Song A".
func SongName(fileName string) string {
	name := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}

// Scan rebuilds the library from the score directory. Metadata files are
// indexed first so that pairing does not depend on directory iteration
// order; binaries then attach to their metadata entry or create a new
// entry with no page ordering yet. Persisted URLs are discarded, the
// serving path is always regenerated from the paired binary.
func (l *Library) Scan() error {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return errors.Join(ErrScan, err)
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	l.songs = make(map[string]*model.Song)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		b, errR := os.ReadFile(filepath.Join(l.dir, entry.Name()))
		if errR != nil {
			l.logger.Error().Err(errR).Str("file", entry.Name()).Msg("failed to read metadata")
			continue
		}
		var song model.Song
		if errU := json.Unmarshal(b, &song); errU != nil {
			l.logger.Error().Err(errU).Str("file", entry.Name()).Msg("failed to parse metadata")
			continue
		}
		if song.Name == "" {
			song.Name = SongName(entry.Name())
		}
		song.URL = ""
		if song.Pages == nil {
			song.Pages = []int{}
		}
		l.songs[song.Name] = &song
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pdf") {
			continue
		}
		name := SongName(entry.Name())
		if song, ok := l.songs[name]; ok {
			song.URL = path.Join(scoresPrefix, entry.Name())
			continue
		}
		l.songs[name] = &model.Song{
			Name:  name,
			Pages: []int{},
			URL:   path.Join(scoresPrefix, entry.Name()),
		}
	}

	l.logger.Debug().
		Str("dir", l.dir).
		Int("songs", len(l.songs)).
		Msg("score directory scanned")
	return nil
}

// Songs returns all songs sorted by name.
func (l *Library) Songs() []*model.Song {
	l.mx.Lock()
	defer l.mx.Unlock()

	songs := make([]*model.Song, 0, len(l.songs))
	for _, song := range l.songs {
		songs = append(songs, song)
	}
	sort.Slice(songs, func(i, j int) bool { return songs[i].Name < songs[j].Name })
	return songs
}

func (l *Library) Get(name string) (*model.Song, error) {
	l.mx.Lock()
	defer l.mx.Unlock()

	song, ok := l.songs[name]
	if !ok {
		return nil, ErrSongNotFound
	}
	return song, nil
}

// SavePages replaces a song's page ordering and writes the metadata file
// back to the score directory. Nothing is persisted on ordinary edits,
// only on this explicit call.
func (l *Library) SavePages(name string, pages []int) error {
	for _, p := range pages {
		if p < 1 {
			return ErrBadPages
		}
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	song, ok := l.songs[name]
	if !ok {
		return ErrSongNotFound
	}
	song.Pages = append([]int{}, pages...)

	b, err := json.Marshal(song)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(l.dir, name+".json"), b, 0o644)
}
