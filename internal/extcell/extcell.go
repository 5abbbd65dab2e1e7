// Package extcell implements the external cell of spec.md §4.6: a cell
// backed by a foreign toplevel surface (an xdg-shell or X11 window) rather
// than a PTY, including the xdg-shell-subset configure protocol, CSD
// detection, activation, and parent-anchored popups.
package extcell

import (
	"strings"
	"time"

	"termstack/internal/column"
)

// pendingConfigureTimeout is how long a sent configure waits for the client's
// matching commit before the cell reverts to its last committed state.
const pendingConfigureTimeout = 200 * time.Millisecond

// minHeightFallback is substituted whenever a commit would otherwise leave
// the cell shorter than minHeightThreshold, per §4.6.
const minHeightFallback = 600

// minHeightThreshold is the height below which the fallback kicks in.
const minHeightThreshold = 100

// titleBarHeight is the server-drawn title bar added to the visual height of
// non-CSD cells, per §4.6 ("Non-CSD cells have a 24-pixel server-drawn title
// bar included in their visual height; CSD cells do not").
const titleBarHeight = 24

// Popup is a surface anchored to its parent's top-left corner by a fixed
// pixel offset, re-derived each frame from the parent's current render
// position.
type Popup struct {
	ID      column.CellID
	OffsetX int32
	OffsetY int32
	Width   uint32
	Height  uint32
	HasGrab bool
}

// committed is the last state the client has actually acknowledged via
// commit — what the cell reverts to if a pending configure times out.
type committed struct {
	width, height uint32
}

// Cell is an external toplevel surface tracked by the column.
type Cell struct {
	id     column.CellID
	appID  string
	title  string

	width, height uint32 // current committed size
	last          committed

	pendingSerial  uint32
	pendingSentAt  time.Time
	hasPending     bool

	csd       bool
	activated bool
	visible   bool
	focusable bool

	popups []Popup

	// compositorWidth is the column's fixed width, enforced on the client
	// via a forced second configure if its first commit disagrees.
	compositorWidth uint32
	firstCommitDone bool
}

// Config supplies the parameters needed to track a newly-mapped external
// surface.
type Config struct {
	AppID           string
	Title           string
	CompositorWidth uint32
	CSDApps         []string
}

// New tracks a newly-mapped toplevel. The caller is expected to have already
// sent the initial configure (bounds only, no size — see
// InitialConfigureBounds).
func New(cfg Config) *Cell {
	return &Cell{
		id:              column.NewCellID(),
		appID:           cfg.AppID,
		title:           cfg.Title,
		compositorWidth: cfg.CompositorWidth,
		csd:             MatchesCSD(cfg.AppID, cfg.CSDApps),
		visible:         true,
		focusable:       true,
	}
}

// MatchesCSD reports whether appID matches any of the configured csd_apps
// glob-prefix patterns ("org.gnome.*" matches any app_id starting with
// "org.gnome.").
func MatchesCSD(appID string, patterns []string) bool {
	for _, pattern := range patterns {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(appID, prefix) {
				return true
			}
		} else if appID == pattern {
			return true
		}
	}
	return false
}

// InitialConfigureBounds is the bounds sent on the very first configure: the
// full output size, with no size field set, so the client picks its own
// preferred size rather than being forced to the compositor's width.
func InitialConfigureBounds(outputWidth, outputHeight uint32) (w, h uint32) {
	return outputWidth, outputHeight
}

// Commit records a width/height the client has committed. If this is the
// first commit and the width disagrees with the column's fixed width, the
// caller must send a second, enforcing configure (ForceWidthConfigure) before
// treating the surface as settled.
func (c *Cell) Commit(width, height uint32) (needsWidthEnforce bool) {
	if height < minHeightThreshold {
		height = minHeightFallback
	}
	c.width = width
	c.height = height
	c.last = committed{width: width, height: height}
	c.hasPending = false

	if !c.firstCommitDone {
		c.firstCommitDone = true
		if width != c.compositorWidth {
			return true
		}
	}
	return false
}

// ForceWidthConfigure returns the (width, height) to send in the enforcing
// second configure: the column's width with the client's already-committed
// height, per §4.6 ("(compositor_width, client_height)").
func (c *Cell) ForceWidthConfigure() (w, h uint32) {
	c.pendingSerial++
	c.pendingSentAt = time.Now()
	c.hasPending = true
	return c.compositorWidth, c.height
}

// CheckPendingTimeout reverts to the last committed state if a sent
// configure has gone unacknowledged past pendingConfigureTimeout, and
// reports whether it did so.
func (c *Cell) CheckPendingTimeout(now time.Time) bool {
	if !c.hasPending {
		return false
	}
	if now.Sub(c.pendingSentAt) < pendingConfigureTimeout {
		return false
	}
	c.width = c.last.width
	c.height = c.last.height
	c.hasPending = false
	return true
}

// --- popups ---

// AddPopup registers a popup anchored to this cell by a byte offset from its
// top-left corner.
func (c *Cell) AddPopup(offsetX, offsetY int32, width, height uint32, grab bool) column.CellID {
	p := Popup{
		ID:      column.NewCellID(),
		OffsetX: offsetX,
		OffsetY: offsetY,
		Width:   width,
		Height:  height,
		HasGrab: grab,
	}
	c.popups = append(c.popups, p)
	return p.ID
}

// Popups returns the cell's currently open popups, parent-relative.
func (c *Cell) Popups() []Popup {
	return c.popups
}

// DismissPopup removes one popup by ID.
func (c *Cell) DismissPopup(id column.CellID) {
	for i, p := range c.popups {
		if p.ID == id {
			c.popups = append(c.popups[:i], c.popups[i+1:]...)
			return
		}
	}
}

// DismissAllGrabbing removes every popup that holds an input grab — called
// when a click lands outside all popups of this cell.
func (c *Cell) DismissAllGrabbing() {
	kept := c.popups[:0]
	for _, p := range c.popups {
		if !p.HasGrab {
			kept = append(kept, p)
		}
	}
	c.popups = kept
}

// PopupScreenOrigin returns a popup's absolute screen position given the
// parent's current render-space top-left corner, re-derived each frame
// rather than stored, since the parent can move within the column.
func PopupScreenOrigin(parentX, parentY float64, p Popup) (x, y float64) {
	return parentX + float64(p.OffsetX), parentY + float64(p.OffsetY)
}

// --- column.Cell / column.Activatable / column.Demotable ---

func (c *Cell) ID() column.CellID { return c.id }

// Height returns the cell's visual height: its committed content height plus
// a server-drawn title bar for non-CSD cells. Per the "no feedback loop"
// design note, this rendered value is never written back into c.height —
// only Commit (driven by the client's own configure_notify) does that.
func (c *Cell) Height() uint32 {
	h := c.height
	if h == 0 {
		h = minHeightFallback
	}
	if !c.csd {
		h += titleBarHeight
	}
	return h
}

func (c *Cell) Visible() bool { return c.visible }

func (c *Cell) Focusable() bool { return c.focusable }

func (c *Cell) SetActivated(activated bool) { c.activated = activated }

func (c *Cell) Activated() bool { return c.activated }

func (c *Cell) SetVisible(v bool) { c.visible = v }

// AppID returns the client's app_id, for CSD matching and window-class
// export.
func (c *Cell) AppID() string { return c.appID }

// CSD reports whether this cell draws its own window decorations.
func (c *Cell) CSD() bool { return c.csd }
