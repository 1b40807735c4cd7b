package render

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakePage struct {
	natural Viewport
	block   chan struct{} // when set, Render waits until closed
	err     error

	mx       sync.Mutex
	rendered []Viewport
}

func (p *fakePage) ViewportAt(scale float64) Viewport {
	return Viewport{Width: p.natural.Width * scale, Height: p.natural.Height * scale}
}

func (p *fakePage) Render(_ Canvas, vp Viewport) error {
	if p.block != nil {
		<-p.block
	}
	p.mx.Lock()
	p.rendered = append(p.rendered, vp)
	p.mx.Unlock()
	return p.err
}

func (p *fakePage) renderCount() int {
	p.mx.Lock()
	defer p.mx.Unlock()
	return len(p.rendered)
}

type fakeDoc struct {
	numPages int
	page     *fakePage
	pageErr  error
}

func (d *fakeDoc) NumPages() int { return d.numPages }

func (d *fakeDoc) Page(_ int) (Page, error) {
	if d.pageErr != nil {
		return nil, d.pageErr
	}
	return d.page, nil
}

type fakeCanvas struct {
	mx    sync.Mutex
	sizes []Viewport
}

func (c *fakeCanvas) Resize(vp Viewport) {
	c.mx.Lock()
	c.sizes = append(c.sizes, vp)
	c.mx.Unlock()
}

func (c *fakeCanvas) lastSize() (Viewport, bool) {
	c.mx.Lock()
	defer c.mx.Unlock()
	if len(c.sizes) == 0 {
		return Viewport{}, false
	}
	return c.sizes[len(c.sizes)-1], true
}

func waitIdle(t *testing.T, s *Surface) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !s.InFlight() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("surface did not become idle in time")
}

func newTestSurface(doc *fakeDoc, canvas *fakeCanvas, avail Viewport) *Surface {
	logger := zerolog.Nop()
	return NewSurface(Config{
		Logger: &logger,
		Doc:    doc,
		Canvas: canvas,
		Avail:  func() Viewport { return avail },
	})
}

func TestFitScale(t *testing.T) {
	for _, tt := range []struct {
		name    string
		natural Viewport
		avail   Viewport
		want    float64
	}{
		{"height bound", Viewport{Width: 100, Height: 200}, Viewport{Width: 50, Height: 50}, 0.25},
		{"width bound", Viewport{Width: 200, Height: 100}, Viewport{Width: 50, Height: 50}, 0.25},
		{"exact fit", Viewport{Width: 100, Height: 100}, Viewport{Width: 100, Height: 100}, 1},
		{"upscale", Viewport{Width: 10, Height: 20}, Viewport{Width: 100, Height: 100}, 5},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitScale(tt.natural, tt.avail); got != tt.want {
				t.Errorf("FitScale = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderResizesCanvasExactly(t *testing.T) {
	page := &fakePage{natural: Viewport{Width: 100, Height: 200}}
	doc := &fakeDoc{numPages: 3, page: page}
	canvas := &fakeCanvas{}
	s := newTestSurface(doc, canvas, Viewport{Width: 50, Height: 50})

	if !s.RenderPage(1) {
		t.Fatal("render was dropped")
	}
	waitIdle(t, s)

	// scale = min(50/200, 50/100) = 0.25
	size, ok := canvas.lastSize()
	if !ok {
		t.Fatal("canvas was never resized")
	}
	if size.Width != 25 || size.Height != 50 {
		t.Errorf("canvas size = %+v, want 25x50", size)
	}
	if page.renderCount() != 1 {
		t.Errorf("render count = %d, want 1", page.renderCount())
	}
}

func TestOverlappingRenderIsDropped(t *testing.T) {
	page := &fakePage{
		natural: Viewport{Width: 100, Height: 100},
		block:   make(chan struct{}),
	}
	doc := &fakeDoc{numPages: 3, page: page}
	s := newTestSurface(doc, &fakeCanvas{}, Viewport{Width: 100, Height: 100})

	if !s.RenderPage(1) {
		t.Fatal("first render was dropped")
	}
	if s.RenderPage(2) {
		t.Error("second render was not dropped while first is in flight")
	}

	close(page.block)
	waitIdle(t, s)

	if page.renderCount() != 1 {
		t.Errorf("render count = %d, want exactly 1", page.renderCount())
	}

	// the guard is free again
	page.block = nil
	if !s.RenderPage(3) {
		t.Error("render after completion was dropped")
	}
	waitIdle(t, s)
}

func TestGuardReleasedOnFetchFailure(t *testing.T) {
	page := &fakePage{natural: Viewport{Width: 100, Height: 100}}
	doc := &fakeDoc{numPages: 3, page: page, pageErr: errors.New("fetch failed")}
	canvas := &fakeCanvas{}
	s := newTestSurface(doc, canvas, Viewport{Width: 100, Height: 100})

	if !s.RenderPage(1) {
		t.Fatal("render was dropped")
	}
	waitIdle(t, s)

	if _, ok := canvas.lastSize(); ok {
		t.Error("canvas was resized despite fetch failure")
	}

	doc.pageErr = nil
	if !s.RenderPage(1) {
		t.Error("surface unusable after fetch failure")
	}
	waitIdle(t, s)
	if page.renderCount() != 1 {
		t.Errorf("render count = %d, want 1", page.renderCount())
	}
}

func TestGuardReleasedOnDrawFailure(t *testing.T) {
	page := &fakePage{
		natural: Viewport{Width: 100, Height: 100},
		err:     errors.New("draw failed"),
	}
	doc := &fakeDoc{numPages: 3, page: page}
	s := newTestSurface(doc, &fakeCanvas{}, Viewport{Width: 100, Height: 100})

	if !s.RenderPage(1) {
		t.Fatal("render was dropped")
	}
	waitIdle(t, s)

	page.err = nil
	if !s.RenderPage(2) {
		t.Error("surface unusable after draw failure")
	}
	waitIdle(t, s)
}

func TestOutOfRangePageIsDroppedSilently(t *testing.T) {
	page := &fakePage{natural: Viewport{Width: 100, Height: 100}}
	doc := &fakeDoc{numPages: 3, page: page}
	canvas := &fakeCanvas{}
	s := newTestSurface(doc, canvas, Viewport{Width: 100, Height: 100})

	for _, n := range []int{0, -1, 4} {
		s.RenderPage(n)
		waitIdle(t, s)
	}

	if page.renderCount() != 0 {
		t.Errorf("render count = %d, want 0", page.renderCount())
	}
	if _, ok := canvas.lastSize(); ok {
		t.Error("canvas was resized for out-of-range page")
	}
}
