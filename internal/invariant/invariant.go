//go:build termstack_debug

// Package invariant implements the debug-build-only consistency checker of
// spec.md §4.12. It is meant to run at the end of every frame in
// non-release builds; a violation indicates a bug in the frame pipeline or
// one of its collaborators, not a recoverable runtime condition.
package invariant

import (
	"fmt"

	"termstack/internal/column"
)

// Validate checks every invariant §4.12 names against the column's current
// state and returns one error per violation found (nil if none).
func Validate(col *column.Column, outputHeight int32) []error {
	var errs []error

	errs = append(errs, checkFocus(col)...)
	errs = append(errs, checkUniqueIDs(col)...)
	errs = append(errs, checkLayoutMatchesRegistry(col, outputHeight)...)
	errs = append(errs, checkNoOverlap(col, outputHeight)...)
	errs = append(errs, checkTotalHeight(col, outputHeight)...)
	errs = append(errs, checkScrollBounds(col, outputHeight)...)
	errs = append(errs, checkSizingRows(col)...)

	return errs
}

// sizedCell is implemented by termcell.Cell; checked via type assertion so
// this package doesn't need to import internal/termcell.
type sizedCell interface {
	SizingRows() int
}

// checkSizingRows: sizing.rows >= 1 for every terminal cell.
func checkSizingRows(col *column.Column) []error {
	var errs []error
	for _, cell := range col.Cells() {
		sc, ok := cell.(sizedCell)
		if !ok {
			continue
		}
		if sc.SizingRows() < 1 {
			errs = append(errs, fmt.Errorf("cell %v has sizing.rows < 1", cell.ID()))
		}
	}
	return errs
}

// checkFocus: focus id exists and is focusable.
func checkFocus(col *column.Column) []error {
	id, ok := col.FocusedID()
	if !ok {
		return nil
	}
	idx := col.IndexOf(id)
	if idx < 0 {
		return []error{fmt.Errorf("focus id %v does not refer to an existing cell", id)}
	}
	cell := col.Cells()[idx]
	if !cell.Visible() || !cell.Focusable() {
		return []error{fmt.Errorf("focused cell %v is not focusable", id)}
	}
	return nil
}

// checkUniqueIDs: no two cells share an id.
func checkUniqueIDs(col *column.Column) []error {
	seen := map[column.CellID]bool{}
	var errs []error
	for _, cell := range col.Cells() {
		if seen[cell.ID()] {
			errs = append(errs, fmt.Errorf("duplicate cell id %v", cell.ID()))
		}
		seen[cell.ID()] = true
	}
	return errs
}

// checkLayoutMatchesRegistry: every cell index in the layout matches the
// registry (same count, same order, since layout is derived directly from
// Heights()).
func checkLayoutMatchesRegistry(col *column.Column, outputHeight int32) []error {
	lay := col.Layout(outputHeight)
	cells := col.Cells()
	if len(lay.Cells) != len(cells) {
		return []error{fmt.Errorf("layout has %d entries, registry has %d cells", len(lay.Cells), len(cells))}
	}
	return nil
}

// checkNoOverlap: the top of cell i equals the bottom of cell i-1 (zero
// gap, zero overlap), per §3's cell-height invariant.
func checkNoOverlap(col *column.Column, outputHeight int32) []error {
	lay := col.Layout(outputHeight)
	var errs []error
	for i := 1; i < len(lay.Cells); i++ {
		prevBottom := lay.Cells[i-1].Y + int32(lay.Cells[i-1].Height)
		if lay.Cells[i].Y != prevBottom {
			errs = append(errs, fmt.Errorf("cell %d top %d does not equal cell %d bottom %d", i, lay.Cells[i].Y, i-1, prevBottom))
		}
	}
	return errs
}

// checkTotalHeight: total_height = sum(heights).
func checkTotalHeight(col *column.Column, outputHeight int32) []error {
	lay := col.Layout(outputHeight)
	var sum uint32
	for _, h := range col.Heights() {
		sum += h
	}
	if lay.TotalHeight != sum {
		return []error{fmt.Errorf("layout total height %d does not equal sum of cell heights %d", lay.TotalHeight, sum)}
	}
	return nil
}

// checkScrollBounds: 0 <= scroll_offset <= max_scroll.
func checkScrollBounds(col *column.Column, outputHeight int32) []error {
	scroll := col.ScrollOffset()
	if scroll < 0 {
		return []error{fmt.Errorf("scroll_offset %v is negative", scroll)}
	}
	var total uint32
	for _, h := range col.Heights() {
		total += h
	}
	maxScroll := float64(total) - float64(outputHeight)
	if maxScroll < 0 {
		maxScroll = 0
	}
	if scroll > maxScroll {
		return []error{fmt.Errorf("scroll_offset %v exceeds max_scroll %v", scroll, maxScroll)}
	}
	return nil
}
