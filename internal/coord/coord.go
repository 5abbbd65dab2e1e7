// Package coord provides the three Y-axis types the compositor uses and the
// total, lossless conversions between them.
//
// Screen, Render, and Content are distinct types rather than plain float64 so
// that mixing axes is a compile error rather than a runtime bug: the original
// column-compositor implementation flipped click targets vertically more
// than once before the axes were pinned to distinct types, and that design
// rationale carries forward unchanged here.
//
// Screen and Render form one flip pair (origin top vs. origin bottom), used
// only at the boundary to the out-of-scope rendering collaborator. Content
// is the absolute, scroll-independent position within the scrollable column
// and is derived directly from Screen, not by chaining through Render — see
// DESIGN.md for why: the layout engine's cell positions are screen-relative
// top-down offsets at the current scroll, so converting a pointer event's
// screen Y into content space for hit-testing is a plain addition of the
// scroll offset, with no Y-flip involved.
package coord

// Screen is a Y coordinate with origin at the top of the output, as input
// events report it.
type Screen float64

// Render is a Y coordinate with origin at the bottom of the output, as the
// rendering collaborator expects it.
type Render float64

// Content is an absolute Y coordinate within the scrollable column: the
// position a cell occupies independent of the current scroll offset. Cell 0
// sits at Content 0, with later cells at increasing Content.
type Content float64

// ToRender converts a screen-space Y into render-space given the output
// height in pixels. This exists solely for handing geometry to a bottom-up
// rendering backend; it is not used by layout or hit-testing.
func (s Screen) ToRender(outputHeight float64) Render {
	return Render(outputHeight - float64(s))
}

// ToScreen converts a render-space Y back into screen-space. It is the exact
// inverse of ToRender for the same outputHeight.
func (r Render) ToScreen(outputHeight float64) Screen {
	return Screen(outputHeight - float64(r))
}

// ToContent converts a screen-space Y (viewport-relative, as reported by a
// pointer event) into absolute content-space given the current scroll
// offset.
func (s Screen) ToContent(scrollOffset float64) Content {
	return Content(float64(s) + scrollOffset)
}

// ToScreen converts an absolute content-space Y back into screen-space at
// the given scroll offset. It is the exact inverse of Screen.ToContent for
// the same scrollOffset.
func (c Content) ToScreen(scrollOffset float64) Screen {
	return Screen(float64(c) - scrollOffset)
}
