// Package layout implements the pure cell-positioning function of
// spec.md §4.3: given cell heights, an output height, and a scroll offset,
// it computes each cell's position and visibility, with no side effects and
// no hidden state.
package layout

// Cell is one entry of a computed Layout: the top-left Y position (at the
// current scroll offset), height, and whether any part of it is visible.
type Cell struct {
	Y       int32
	Height  uint32
	Visible bool
}

// Layout is the result of Compute: one Cell per input height, in order,
// plus the total content height.
type Layout struct {
	Cells       []Cell
	TotalHeight uint32
}

// Compute positions cells top to bottom, offsetting by scrollOffset. It is
// deterministic: identical inputs always produce identical output.
func Compute(heights []uint32, outputHeight int32, scrollOffset float64) Layout {
	l := Layout{Cells: make([]Cell, len(heights))}
	var cumulative uint32
	for i, h := range heights {
		y := int32(float64(cumulative) - scrollOffset)
		visible := y < outputHeight && y+int32(h) > 0
		l.Cells[i] = Cell{Y: y, Height: h, Visible: visible}
		cumulative += h
	}
	l.TotalHeight = cumulative
	return l
}

// ScrollToShow returns the scroll offset that brings cell index into view,
// aligning its top to the viewport top if it is above, or its bottom to the
// viewport bottom if it is below. ok is false if the cell is already fully
// visible or the index is out of range.
func (l Layout) ScrollToShow(index int, outputHeight int32, scrollOffset float64) (newScrollOffset float64, ok bool) {
	if index < 0 || index >= len(l.Cells) {
		return scrollOffset, false
	}
	c := l.Cells[index]
	if c.Y < 0 {
		return scrollOffset + float64(c.Y), true
	}
	bottom := c.Y + int32(c.Height)
	if bottom > outputHeight {
		return scrollOffset + float64(bottom-outputHeight), true
	}
	return scrollOffset, false
}

// ScrollToShowBottom returns the scroll offset that aligns cell index's
// bottom edge to the viewport bottom, regardless of where its top currently
// sits. ok is false if the index is out of range or the bottom edge is
// already at the viewport bottom.
func (l Layout) ScrollToShowBottom(index int, outputHeight int32, scrollOffset float64) (newScrollOffset float64, ok bool) {
	if index < 0 || index >= len(l.Cells) {
		return scrollOffset, false
	}
	c := l.Cells[index]
	bottom := c.Y + int32(c.Height)
	if bottom == outputHeight {
		return scrollOffset, false
	}
	return scrollOffset + float64(bottom-outputHeight), true
}

// VisibleIndices returns the indices of every cell with Visible set, in
// order.
func (l Layout) VisibleIndices() []int {
	var out []int
	for i, c := range l.Cells {
		if c.Visible {
			out = append(out, i)
		}
	}
	return out
}
