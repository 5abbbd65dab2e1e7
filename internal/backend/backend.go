// Package backend names the seam between the compositor core and whatever
// actually puts pixels on screen and reads input devices. Only a headless
// implementation lives here: GPU/Wayland/X11 output is out of scope for this
// module, but the frame pipeline and input router are written against this
// interface so a real backend can be dropped in without touching them.
package backend

import "time"

// EventKind tags a Backend event.
type EventKind int

const (
	EventResized EventKind = iota
	EventCloseRequested
	EventFocusChanged
	EventRefresh
	EventPresentCompleted
)

// Event is a backend-originated occurrence the frame pipeline reacts to.
type Event struct {
	Kind    EventKind
	Width   int32
	Height  int32
	Focused bool
}

// Backend is the minimal surface the compositor needs from a rendering and
// input host.
type Backend interface {
	// Events returns the channel of backend events; closed when the backend
	// shuts down.
	Events() <-chan Event
	// OutputSize returns the current output dimensions in pixels.
	OutputSize() (width, height int32)
	// Present submits a completed frame buffer for display.
	Present() error
	// Close releases any backend resources.
	Close() error
}

// Headless is a no-op Backend used by tests and by TERMSTACK_BACKEND=headless
// runs: it never produces real events and Present is a no-op.
type Headless struct {
	width, height int32
	events        chan Event
	closed        bool
}

// NewHeadless creates a Headless backend reporting the given output size.
func NewHeadless(width, height int32) *Headless {
	return &Headless{
		width:  width,
		height: height,
		events: make(chan Event, 16),
	}
}

func (h *Headless) Events() <-chan Event { return h.events }

func (h *Headless) OutputSize() (int32, int32) { return h.width, h.height }

func (h *Headless) Present() error { return nil }

func (h *Headless) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	close(h.events)
	return nil
}

// Inject pushes a synthetic event onto the backend's event channel, for
// driving tests without a real input device.
func (h *Headless) Inject(e Event) {
	select {
	case h.events <- e:
	case <-time.After(time.Second):
	}
}

// Resize updates the reported output size and emits an EventResized.
func (h *Headless) Resize(width, height int32) {
	h.width, h.height = width, height
	h.Inject(Event{Kind: EventResized, Width: width, Height: height})
}
