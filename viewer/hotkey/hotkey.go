package hotkey

import (
	"sync"
)

// Event types delivered by the dispatcher.
const (
	KeyDown = "keydown"
	KeyUp   = "keyup"
)

// Common key values used for page navigation.
const (
	KeyArrowRight = "ArrowRight"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyPageDown   = "PageDown"
	KeyPageUp     = "PageUp"
)

type Event struct {
	Type string
	Key  string
}

type Callback func(Event)

type subscription struct {
	id       string
	callback Callback
}

// Dispatcher multiplexes key events to whichever controllers are mounted.
// Every event is delivered synchronously to every subscriber in
// registration order; there is no filtering by key or target, that is each
// callback's own job. A slow or blocking callback delays everyone
// registered after it.
//
// Dispatchers are plain values owned by the caller, not process globals,
// so independent viewer roots can coexist.
type Dispatcher struct {
	mx   sync.Mutex
	subs []subscription
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers callback under id. Re-subscribing with an id that is
// already registered replaces the existing callback in place, keeping its
// position in delivery order.
func (d *Dispatcher) Subscribe(id string, callback Callback) {
	d.mx.Lock()
	defer d.mx.Unlock()

	for i, sub := range d.subs {
		if sub.id == id {
			d.subs[i].callback = callback
			return
		}
	}
	d.subs = append(d.subs, subscription{id: id, callback: callback})
}

// Unsubscribe removes the registration for id. Unknown ids are ignored.
func (d *Dispatcher) Unsubscribe(id string) {
	d.mx.Lock()
	defer d.mx.Unlock()

	for i, sub := range d.subs {
		if sub.id == id {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			return
		}
	}
}

// Dispatch delivers ev to all current subscribers, in registration order,
// on the calling goroutine.
func (d *Dispatcher) Dispatch(ev Event) {
	d.mx.Lock()
	subs := make([]subscription, len(d.subs))
	copy(subs, d.subs)
	d.mx.Unlock()

	for _, sub := range subs {
		sub.callback(ev)
	}
}
