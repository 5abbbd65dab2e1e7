// Package input implements the input router of spec.md §4.7: pointer hit
// testing against the column's current layout, scroll-wheel delta
// accumulation applied once per frame, keyboard key-repeat state, and
// stale-drag detection.
package input

import (
	"time"

	"termstack/internal/column"
	"termstack/internal/coord"
	"termstack/internal/keyenc"
)

// maxScrollDelta caps how far a single frame's accumulated wheel input may
// move the scroll offset, per §4.7.
const maxScrollDelta = 400.0

// HitKind tags what a pointer hit landed on.
type HitKind int

const (
	HitNone HitKind = iota
	HitPopup
	HitCell
)

// Hit is the result of hit-testing a pointer position against the column.
type Hit struct {
	Kind      HitKind
	CellIndex int
	CellID    column.CellID
	// LocalY is the pointer position translated into content-space,
	// relative to the hit cell's top edge.
	LocalY float64
}

// HitTest converts a screen-space pointer Y into content-space and finds the
// topmost cell whose layout range contains it. Popups are expected to be
// tested by the caller first (they render above the column and are owned by
// their parent extcell, not by the column itself); HitTest only covers the
// column's own cells.
func HitTest(col *column.Column, outputHeight int32, screenY float64) Hit {
	scroll := col.ScrollOffset()
	contentY := float64(coord.Screen(screenY).ToContent(scroll))

	lay := col.Layout(outputHeight)
	cells := col.Cells()
	for i, cl := range lay.Cells {
		top := float64(cl.Y) + scroll
		bottom := top + float64(cl.Height)
		if contentY >= top && contentY < bottom {
			return Hit{
				Kind:      HitCell,
				CellIndex: i,
				CellID:    cells[i].ID(),
				LocalY:    contentY - top,
			}
		}
	}
	return Hit{Kind: HitNone}
}

// Router accumulates per-frame pointer/scroll/keyboard state between frames.
type Router struct {
	pendingScrollDelta float64

	repeatKey   keyenc.Key
	repeatCtrl  bool
	repeatAlt   bool
	repeatAt    time.Time
	repeating   bool

	dragButtonsDown int
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{}
}

// AddScrollDelta accumulates a wheel tick into the pending per-frame scroll
// delta, clamped to +/-maxScrollDelta.
func (r *Router) AddScrollDelta(delta float64) {
	r.pendingScrollDelta += delta
	if r.pendingScrollDelta > maxScrollDelta {
		r.pendingScrollDelta = maxScrollDelta
	}
	if r.pendingScrollDelta < -maxScrollDelta {
		r.pendingScrollDelta = -maxScrollDelta
	}
}

// TakeScrollDelta returns and clears the accumulated scroll delta, to be
// applied exactly once by the frame pipeline.
func (r *Router) TakeScrollDelta() float64 {
	d := r.pendingScrollDelta
	r.pendingScrollDelta = 0
	return d
}

// KeyRepeatState is what the router tracks per pressed key to drive
// auto-repeat.
type KeyRepeatState struct {
	Key          keyenc.Key
	Ctrl, Alt    bool
	NextRepeatAt time.Time
}

// PressKey starts tracking a newly pressed key for repeat, scheduling its
// first repeat at now+delay.
func (r *Router) PressKey(key keyenc.Key, ctrl, alt bool, now time.Time, delay time.Duration) {
	r.repeatKey = key
	r.repeatCtrl = ctrl
	r.repeatAlt = alt
	r.repeatAt = now.Add(delay)
	r.repeating = true
}

// ReleaseKey stops repeat tracking, if the released key is the one
// currently repeating.
func (r *Router) ReleaseKey(key keyenc.Key) {
	if r.repeating && r.repeatKey == key {
		r.repeating = false
	}
}

// DueRepeat reports whether the tracked key is due to repeat at now, and if
// so advances the next repeat time by interval and returns its encoded
// bytes.
func (r *Router) DueRepeat(now time.Time, interval time.Duration) ([]byte, bool) {
	if !r.repeating || now.Before(r.repeatAt) {
		return nil, false
	}
	r.repeatAt = now.Add(interval)
	return keyenc.Encode(r.repeatKey, r.repeatCtrl, r.repeatAlt), true
}

// SetPressedButtons records the current count of pressed pointer buttons,
// reported by the backend alongside pointer motion events. A transition to
// zero while a drag is active indicates a stale drag that must be
// cancelled: the backend can miss a button-release event (e.g. if it
// happens outside the window), so the router treats a zero-button frame as
// authoritative.
func (r *Router) SetPressedButtons(col *column.Column, count int) {
	r.dragButtonsDown = count
	if count == 0 && col.Drag() != nil {
		col.CancelDrag()
	}
}
