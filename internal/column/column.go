// Package column owns the ordered list of cells that make up the scrollable
// stack, the focus index, scroll offset, and in-progress resize drag —
// the data model of spec.md §3, with the focus-traversal and lifecycle
// behavior of §4.4 and §4.11.
package column

import (
	"github.com/google/uuid"

	"termstack/internal/layout"
)

// CellID uniquely identifies a cell for the lifetime of the compositor.
type CellID uuid.UUID

// NewCellID generates a fresh, unique cell identifier.
func NewCellID() CellID {
	return CellID(uuid.New())
}

func (id CellID) String() string {
	return uuid.UUID(id).String()
}

// Cell is the minimal surface the registry needs from any cell variant
// (terminal or external); internal/termcell.Cell and
// internal/extcell.Cell both satisfy it without column importing
// either package.
type Cell interface {
	ID() CellID
	Height() uint32
	Visible() bool
	Focusable() bool
}

// Activatable is implemented by external cells, which track a single
// compositor-wide activated flag (required by GTK clients for animations).
type Activatable interface {
	SetActivated(bool)
}

// Demotable is implemented by terminal cells, which can be hidden
// ("demoted") when promoted by an output cell and restored later.
type Demotable interface {
	SetVisible(bool)
}

// Drag describes an in-progress resize of the cell at Index, started at
// StartY, with the height the user is currently dragging toward.
type Drag struct {
	Index        int
	StartY       float64
	TargetHeight uint32
}

// Column is the ordered registry of cells plus the scroll/focus/drag state
// that goes with it.
type Column struct {
	cells        []Cell
	focus        int // index into cells, or -1 for no focus
	scrollOffset float64
	drag         *Drag

	// launcherOf maps an "output" cell's id to the id of the launcher
	// terminal it was promoted over (see §4.11 promotion).
	launcherOf map[CellID]CellID
}

// New returns an empty Column with no focus.
func New() *Column {
	return &Column{focus: -1, launcherOf: make(map[CellID]CellID)}
}

// Cells returns the cells in stack order. Callers must not mutate the
// returned slice.
func (c *Column) Cells() []Cell {
	return c.cells
}

// Len returns the number of cells.
func (c *Column) Len() int {
	return len(c.cells)
}

// Append adds a cell to the bottom of the stack.
func (c *Column) Append(cell Cell) {
	c.cells = append(c.cells, cell)
}

// IndexOf returns the index of the cell with the given id, or -1.
func (c *Column) IndexOf(id CellID) int {
	for i, cell := range c.cells {
		if cell.ID() == id {
			return i
		}
	}
	return -1
}

// Remove deletes the cell at index, shifting subsequent indices down and
// resolving focus to the nearest surviving focusable neighbour (prefer the
// successor, else the predecessor, else none).
func (c *Column) Remove(index int) {
	if index < 0 || index >= len(c.cells) {
		return
	}
	removedID := c.cells[index].ID()
	c.cells = append(c.cells[:index], c.cells[index+1:]...)
	delete(c.launcherOf, removedID)
	for out, launcher := range c.launcherOf {
		if launcher == removedID {
			delete(c.launcherOf, out)
		}
	}

	if c.drag != nil {
		switch {
		case c.drag.Index == index:
			c.drag = nil
		case c.drag.Index > index:
			c.drag.Index--
		}
	}

	switch {
	case len(c.cells) == 0:
		c.focus = -1
	case c.focus == index:
		c.focus = -1
		if c.focusFrom(index, 1) {
			return
		}
		if c.focusFrom(index-1, -1) {
			return
		}
	case c.focus > index:
		c.focus--
	}
}

// focusFrom scans starting at idx in the given direction (+1/-1) for the
// first focusable cell and focuses it if found.
func (c *Column) focusFrom(idx, dir int) bool {
	for idx >= 0 && idx < len(c.cells) {
		if c.cells[idx].Focusable() {
			c.setFocusIndex(idx)
			return true
		}
		idx += dir
	}
	return false
}

// Heights returns the visual height of every cell, in order, suitable for
// internal/layout.Compute.
func (c *Column) Heights() []uint32 {
	heights := make([]uint32, len(c.cells))
	for i, cell := range c.cells {
		heights[i] = cell.Height()
	}
	return heights
}

// ScrollOffset returns the current scroll offset.
func (c *Column) ScrollOffset() float64 {
	return c.scrollOffset
}

// SetScrollOffset clamps and sets the scroll offset per the invariant
// 0 <= scroll_offset <= max(0, total_height - viewportHeight).
func (c *Column) SetScrollOffset(offset float64, viewportHeight int32) {
	c.scrollOffset = clampScroll(offset, c.totalHeight(), viewportHeight)
}

func (c *Column) totalHeight() uint32 {
	var total uint32
	for _, h := range c.Heights() {
		total += h
	}
	return total
}

func clampScroll(offset float64, totalHeight uint32, viewportHeight int32) float64 {
	maxScroll := float64(totalHeight) - float64(viewportHeight)
	if maxScroll < 0 {
		maxScroll = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > maxScroll {
		return maxScroll
	}
	return offset
}

// Layout computes the current frame's cell positions for the given output
// height. While a resize drag is active, the dragged cell's target height is
// used for positioning (per spec.md §4.11/the height-cache design note) so
// the user sees the final geometry live; DragHeights never writes back into
// the cell's own stored height, so this has no feedback-loop risk.
func (c *Column) Layout(outputHeight int32) layout.Layout {
	return layout.Compute(c.DragHeights(), outputHeight, c.scrollOffset)
}

// FocusIndex returns the currently focused index, or -1.
func (c *Column) FocusIndex() int {
	return c.focus
}

// FocusedID returns the currently focused cell's id, or ok=false if none.
func (c *Column) FocusedID() (CellID, bool) {
	if c.focus < 0 || c.focus >= len(c.cells) {
		return CellID{}, false
	}
	return c.cells[c.focus].ID(), true
}

// setFocusIndex moves focus to idx, syncing the activated flag on external
// cells as §4.4 requires.
func (c *Column) setFocusIndex(idx int) {
	for i, cell := range c.cells {
		if a, ok := cell.(Activatable); ok {
			a.SetActivated(i == idx)
		}
	}
	c.focus = idx
}

// SetFocus focuses the cell with the given id, if it exists and is
// focusable.
func (c *Column) SetFocus(id CellID) bool {
	idx := c.IndexOf(id)
	if idx < 0 || !c.cells[idx].Focusable() {
		return false
	}
	c.setFocusIndex(idx)
	return true
}

// FocusNext moves focus to the next focusable cell, wrapping at the end.
func (c *Column) FocusNext() bool {
	return c.focusStep(1)
}

// FocusPrev moves focus to the previous focusable cell, wrapping at the
// start.
func (c *Column) FocusPrev() bool {
	return c.focusStep(-1)
}

func (c *Column) focusStep(dir int) bool {
	n := len(c.cells)
	if n == 0 {
		return false
	}
	start := c.focus
	if start < 0 {
		if dir > 0 {
			start = -1
		} else {
			start = 0
		}
	}
	idx := start
	for i := 0; i < n; i++ {
		idx = ((idx+dir)%n + n) % n
		if c.cells[idx].Focusable() {
			c.setFocusIndex(idx)
			return true
		}
	}
	return false
}

// ScrollToShowFocusedBottom adjusts scroll so the focused cell's bottom is
// visible, per §4.4's "after a focus change" rule.
func (c *Column) ScrollToShowFocusedBottom(outputHeight int32) {
	if c.focus < 0 {
		return
	}
	l := c.Layout(outputHeight)
	if offset, ok := l.ScrollToShowBottom(c.focus, outputHeight, c.scrollOffset); ok {
		c.SetScrollOffset(offset, outputHeight)
	}
}

// Drag returns the in-progress resize drag, or nil.
func (c *Column) Drag() *Drag {
	return c.drag
}

// StartDrag begins a resize drag on the cell at index.
func (c *Column) StartDrag(index int, startY float64, initialHeight uint32) {
	if index < 0 || index >= len(c.cells) {
		return
	}
	c.drag = &Drag{Index: index, StartY: startY, TargetHeight: initialHeight}
}

// UpdateDrag sets the drag's target height.
func (c *Column) UpdateDrag(height uint32) {
	if c.drag != nil {
		c.drag.TargetHeight = height
	}
}

// CancelDrag clears any in-progress drag; called by the frame pipeline's
// step 1 when no pointer buttons are pressed.
func (c *Column) CancelDrag() {
	c.drag = nil
}

// DragHeights returns Heights() with the dragged cell's height overridden by
// the drag's target height, for positioning purposes only — per §4.11 the
// cell's stored height is never written back from this.
func (c *Column) DragHeights() []uint32 {
	heights := c.Heights()
	if c.drag != nil && c.drag.Index >= 0 && c.drag.Index < len(heights) {
		heights[c.drag.Index] = c.drag.TargetHeight
	}
	return heights
}

// Promote hides the launcher cell behind outputID, recording the pairing so
// Restore can find it again.
func (c *Column) Promote(outputID, launcherID CellID) {
	idx := c.IndexOf(launcherID)
	if idx < 0 {
		return
	}
	if d, ok := c.cells[idx].(Demotable); ok {
		d.SetVisible(false)
	}
	c.launcherOf[outputID] = launcherID
	if c.focus == idx {
		c.focus = -1
		c.focusFrom(idx, 1)
	}
}

// Restore shows the launcher cell that was promoted behind outputID, if
// any, and forgets the pairing.
func (c *Column) Restore(outputID CellID) {
	launcherID, ok := c.launcherOf[outputID]
	if !ok {
		return
	}
	delete(c.launcherOf, outputID)
	idx := c.IndexOf(launcherID)
	if idx < 0 {
		return
	}
	if d, ok := c.cells[idx].(Demotable); ok {
		d.SetVisible(true)
	}
}

// LauncherFor reports the launcher id promoted behind outputID, if any.
func (c *Column) LauncherFor(outputID CellID) (CellID, bool) {
	id, ok := c.launcherOf[outputID]
	return id, ok
}
