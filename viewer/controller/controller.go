package controller

import (
	"sync"

	"github.com/edvall/sheetstand/model"
	"github.com/edvall/sheetstand/viewer/hotkey"
	"github.com/edvall/sheetstand/viewer/render"
	"github.com/rs/zerolog"
)

const (
	// DualWidthCutoff is the viewport width above which two pages are
	// shown side by side.
	DualWidthCutoff = 1300.0

	hotkeyID = "page-viewer"
)

// Controller owns the current position inside a song's page ordering and
// drives one or two render surfaces. The index is 1-based into the song's
// Pages sequence, not into the document's natural page order.
type Controller struct {
	logger     zerolog.Logger
	dispatcher *hotkey.Dispatcher
	doc        render.Document
	surfaces   []*render.Surface
	onChange   func(page int)

	mx      sync.Mutex
	pages   []int
	current int
}

type Config struct {
	Logger     *zerolog.Logger
	Doc        render.Document
	Dispatcher *hotkey.Dispatcher
	Canvases   []render.Canvas
	// Viewport reports the full window size. Dual mode is decided once at
	// construction from its width; per-pane space is re-read on every
	// render.
	Viewport func() render.Viewport
	Song     *model.Song
	// OnChange fires after local navigation lands on a new index. Remote
	// updates applied through SetCurrent do not fire it, so two coupled
	// displays cannot echo page turns back and forth.
	OnChange func(page int)
}

func New(cfg Config) *Controller {
	c := &Controller{
		logger:     cfg.Logger.With().Str("component", "page-controller").Logger(),
		dispatcher: cfg.Dispatcher,
		doc:        cfg.Doc,
		onChange:   cfg.OnChange,
		current:    1,
	}

	panes := 1
	if cfg.Viewport().Width > DualWidthCutoff && len(cfg.Canvases) > 1 {
		panes = 2
	}
	paneAvail := func() render.Viewport {
		vp := cfg.Viewport()
		return render.Viewport{Width: vp.Width / float64(panes), Height: vp.Height}
	}
	for i := 0; i < panes; i++ {
		c.surfaces = append(c.surfaces, render.NewSurface(render.Config{
			Logger: cfg.Logger,
			Doc:    cfg.Doc,
			Canvas: cfg.Canvases[i],
			Avail:  paneAvail,
		}))
	}

	c.pages = append([]int{}, cfg.Song.Pages...)
	if len(c.pages) == 0 {
		for i := 1; i <= cfg.Doc.NumPages(); i++ {
			c.pages = append(c.pages, i)
		}
	}
	return c
}

// Attach subscribes the controller to key events. Detach must be called
// on teardown; the dispatcher replaces a same-id registration, so a
// re-attached controller never accumulates stale callbacks.
func (c *Controller) Attach() {
	c.dispatcher.Subscribe(hotkeyID, c.handleKey)
}

func (c *Controller) Detach() {
	c.dispatcher.Unsubscribe(hotkeyID)
}

func (c *Controller) handleKey(ev hotkey.Event) {
	if ev.Type != hotkey.KeyDown {
		return
	}
	switch ev.Key {
	case hotkey.KeyArrowRight, hotkey.KeyPageDown, hotkey.KeyArrowDown:
		c.Next()
	case hotkey.KeyArrowLeft, hotkey.KeyPageUp, hotkey.KeyArrowUp:
		c.Prev()
	}
}

func (c *Controller) Dual() bool {
	return len(c.surfaces) == 2
}

func (c *Controller) Current() int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.current
}

// Pages returns the song's page ordering as seen by the controller.
func (c *Controller) Pages() []int {
	c.mx.Lock()
	defer c.mx.Unlock()
	return append([]int{}, c.pages...)
}

// maxIndex is the highest reachable index: in dual mode the last index is
// held back by one so the second pane always has a page to show.
func (c *Controller) maxIndex() int {
	max := len(c.pages)
	if c.Dual() && max > 1 {
		max--
	}
	return max
}

// Next advances by one. At the upper bound it does nothing.
func (c *Controller) Next() {
	c.mx.Lock()
	if c.current >= c.maxIndex() {
		c.mx.Unlock()
		return
	}
	c.current++
	page := c.current
	c.show()
	c.mx.Unlock()
	c.notify(page)
}

// Prev goes back by one. At index 1 it does nothing.
func (c *Controller) Prev() {
	c.mx.Lock()
	if c.current <= 1 {
		c.mx.Unlock()
		return
	}
	c.current--
	page := c.current
	c.show()
	c.mx.Unlock()
	c.notify(page)
}

// SetCurrent moves to the given index, clamped to the valid range. It is
// the entry point for remotely synced page turns and does not fire
// OnChange.
func (c *Controller) SetCurrent(n int) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if max := c.maxIndex(); n > max {
		n = max
	}
	if n < 1 {
		n = 1
	}
	if n == c.current {
		return
	}
	c.current = n
	c.show()
}

// Show renders the current position without moving it.
func (c *Controller) Show() {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.show()
}

func (c *Controller) show() {
	if len(c.pages) == 0 {
		return
	}
	c.surfaces[0].RenderPage(c.pages[c.current-1])
	if c.Dual() && c.current < len(c.pages) {
		c.surfaces[1].RenderPage(c.pages[c.current])
	}
}

func (c *Controller) notify(page int) {
	if c.onChange != nil {
		c.onChange(page)
	}
}
