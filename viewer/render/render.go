package render

import (
	"errors"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	ErrBadPageNumber = errors.New("page number out of range")
)

// Viewport is a width/height pair in display units.
type Viewport struct {
	Width  float64
	Height float64
}

// Document and Page wrap the external PDF library: a document hands out
// pages by 1-based number, a page reports its dimensions at a given scale
// and draws itself onto a canvas.
type (
	Document interface {
		NumPages() int
		Page(n int) (Page, error)
	}

	Page interface {
		ViewportAt(scale float64) Viewport
		Render(canvas Canvas, vp Viewport) error
	}

	Canvas interface {
		Resize(vp Viewport)
	}
)

// FitScale computes the scale that fits a page of natural size into the
// available space in both dimensions while preserving aspect ratio:
// min(availHeight/naturalHeight, availWidth/naturalWidth).
func FitScale(natural, avail Viewport) float64 {
	return math.Min(avail.Height/natural.Height, avail.Width/natural.Width)
}

// Surface is one visual pane bound to a document. At most one render is in
// flight per surface; a render requested while one is in flight is dropped
// outright, never queued. An in-flight render cannot be aborted, it runs
// to completion and only then releases the guard.
type Surface struct {
	logger    zerolog.Logger
	doc       Document
	canvas    Canvas
	avail     func() Viewport
	rendering atomic.Bool
}

type Config struct {
	Logger *zerolog.Logger
	Doc    Document
	Canvas Canvas
	// Avail reports the space currently available to this surface. It is
	// consulted at render time so window resizes are picked up.
	Avail func() Viewport
}

func NewSurface(cfg Config) *Surface {
	return &Surface{
		logger: cfg.Logger.With().Str("component", "render-surface").Logger(),
		doc:    cfg.Doc,
		canvas: cfg.Canvas,
		avail:  cfg.Avail,
	}
}

// InFlight reports whether a render is currently running.
func (s *Surface) InFlight() bool {
	return s.rendering.Load()
}

// RenderPage asynchronously renders the given 1-based page. It returns
// false when the request was dropped because a render is already in
// flight. Fetch and draw failures are logged and abandoned; the guard is
// released on every exit path so the surface stays usable.
func (s *Surface) RenderPage(pageNum int) bool {
	if !s.rendering.CompareAndSwap(false, true) {
		return false
	}

	go func() {
		defer s.rendering.Store(false)

		if pageNum < 1 || pageNum > s.doc.NumPages() {
			s.logger.Error().
				Err(ErrBadPageNumber).
				Int("page", pageNum).
				Int("numPages", s.doc.NumPages()).
				Msg("render dropped")
			return
		}

		page, err := s.doc.Page(pageNum)
		if err != nil {
			s.logger.Error().Err(err).Int("page", pageNum).Msg("failed to fetch page")
			return
		}

		natural := page.ViewportAt(1)
		scale := FitScale(natural, s.avail())
		vp := page.ViewportAt(scale)

		s.canvas.Resize(vp)
		if err = page.Render(s.canvas, vp); err != nil {
			s.logger.Error().Err(err).Int("page", pageNum).Msg("failed to draw page")
		}
	}()
	return true
}
