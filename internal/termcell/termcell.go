// Package termcell implements the terminal cell of spec.md §4.5: a PTY-backed
// child process, a VT100 screen over it, and the §4.2 sizing state machine
// that decides when the cell should grow and when a pending resize should be
// applied to the PTY and the VT screen together.
package termcell

import (
	"sync"

	"termstack/internal/column"
	"termstack/internal/compositorerr"
	"termstack/internal/logging"
	"termstack/internal/pty"
	"termstack/internal/sizing"
	"termstack/internal/vterm"
)

// Snapshot is the rendered state of a terminal cell for one frame.
type Snapshot struct {
	Lines      []string
	CursorX    int
	CursorY    int
	ShowCursor bool
	Version    uint64
}

// Cell is a single terminal: a PTY child process, its VT100 screen, and the
// sizing state machine that governs how its content height grows and how
// resizes are applied. It satisfies column.Cell, column.Activatable and
// column.Demotable.
type Cell struct {
	mu sync.Mutex

	id         column.CellID
	term       *pty.Terminal
	vt         *vterm.VTerm
	sizing     *sizing.Machine
	cols       int
	cellHeight uint32 // rows*lineHeight in pixels, the Height() the column layout sees
	lineHeight uint32

	visible      bool
	activated    bool
	focusable    bool
	showTitleBar bool
}

// titleBarHeight is the server-drawn title bar pixel height added to a
// terminal cell's visual height when showTitleBar is set, per spec.md §3's
// show_title_bar field and §4.6's "24-pixel server-drawn title bar"
// (terminal cells have no CSD concept, so they always carry one).
const titleBarHeight = 24

// Config supplies the parameters for spawning a terminal cell.
type Config struct {
	Command    string
	Dir        string
	Env        []string
	Cols       int
	InitRows   int
	LineHeight uint32 // pixel height of one terminal row
}

// New spawns the child process and wires its PTY output into a VT100 screen
// tracked by a sizing.Machine.
func New(cfg Config) (*Cell, error) {
	if cfg.LineHeight == 0 {
		cfg.LineHeight = 20
	}
	if cfg.InitRows <= 0 {
		cfg.InitRows = 24
	}
	if cfg.Cols <= 0 {
		cfg.Cols = 80
	}

	term, err := pty.NewWithSize(cfg.Command, cfg.Dir, cfg.Env, uint16(cfg.InitRows), uint16(cfg.Cols))
	if err != nil {
		return nil, compositorerr.New(compositorerr.FatalInit, "termcell.New", err)
	}

	vt := vterm.New(cfg.Cols, cfg.InitRows)
	sm := sizing.New(cfg.InitRows)

	c := &Cell{
		id:           column.NewCellID(),
		term:         term,
		vt:           vt,
		sizing:       sm,
		cols:         cfg.Cols,
		lineHeight:   cfg.LineHeight,
		cellHeight:   uint32(cfg.InitRows) * cfg.LineHeight,
		visible:      true,
		focusable:    true,
		showTitleBar: true,
	}

	vt.SetResponseWriter(func(b []byte) {
		if _, err := term.Write(b); err != nil {
			logging.Error("termcell: response write failed: %v", err)
		}
	})
	vt.OnNewLine = c.onNewLine

	return c, nil
}

// onNewLine is the vterm.VTerm.OnNewLine hook: every line feed drives the
// sizing machine, and a RequestGrowth action grows the cell's pixel height
// without touching the VT screen (the screen only changes size once the
// compositor actually calls Configure after a frame's layout pass). It runs
// inside c.vt.Write, which ProcessPTY calls with mu already held, so it does
// not lock mu itself.
func (c *Cell) onNewLine(altScreen bool) {
	action := c.sizing.OnNewLine(altScreen)
	c.applyAction(action)
}

// applyAction must be called with mu held.
func (c *Cell) applyAction(action sizing.Action) {
	switch action.Kind {
	case sizing.RequestGrowth:
		c.cellHeight = uint32(action.TargetRows) * c.lineHeight
	case sizing.ApplyResize:
		c.vt.Resize(c.cols, action.Rows)
		c.cellHeight = uint32(action.Rows) * c.lineHeight
	case sizing.RestoreScrollback:
		// Scrollback already holds the overflowed lines; nothing to replay,
		// the VT screen's own trim-to-scrollback behavior already moved them.
	}
}

// ProcessPTY reads whatever output is currently available from the child and
// feeds it to the VT screen. It blocks on the PTY's Read; callers run it on a
// dedicated goroutine per spec.md §5 ("each terminal cell gets exactly one
// goroutine reading its PTY").
func (c *Cell) ProcessPTY(buf []byte) (int, error) {
	n, err := c.term.Read(buf)
	if n > 0 {
		c.mu.Lock()
		c.vt.Write(buf[:n])
		c.mu.Unlock()
	}
	return n, err
}

// Write sends input bytes (already encoded via internal/keyenc) to the PTY.
func (c *Cell) Write(p []byte) (int, error) {
	return c.term.Write(p)
}

// Configure applies a new pixel height decided by the layout engine, driven
// by the compositor (not by the sizing machine directly) when a frame's
// layout pass settles the column's geometry. It reports the resulting action
// so the caller knows whether the PTY/VT screen actually changed size.
func (c *Cell) Configure(heightPx uint32) sizing.Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := int(heightPx / c.lineHeight)
	if rows < 1 {
		rows = 1
	}
	action := c.sizing.OnConfigure(rows)
	c.applyAction(action)
	if action.Kind == sizing.ApplyResize {
		if err := c.term.SetSize(uint16(action.Rows), uint16(c.cols)); err != nil {
			logging.Error("termcell: SetSize failed: %v", err)
		}
	}
	return action
}

// ResizeComplete tells the sizing machine the PTY/VT resize from Configure
// has taken effect (i.e. the child has redrawn for the new size), which may
// emit a RestoreScrollback action if lines arrived during ResizePending.
func (c *Cell) ResizeComplete() sizing.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	action := c.sizing.OnResizeComplete()
	c.applyAction(action)
	return action
}

// Render returns the current snapshot for drawing.
func (c *Cell) Render() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Lines:      c.vt.GetAllLines(),
		CursorX:    c.vt.LastCursorX(),
		CursorY:    c.vt.LastCursorY(),
		ShowCursor: c.vt.LastShowCursor(),
		Version:    c.vt.Version(),
	}
}

// SendInterrupt sends Ctrl+C to the child.
func (c *Cell) SendInterrupt() error {
	return c.term.SendInterrupt()
}

// Running reports whether the child process is still alive.
func (c *Cell) Running() bool {
	return c.term.Running()
}

// Close tears down the PTY and its child process group.
func (c *Cell) Close() error {
	return c.term.Close()
}

// --- column.Cell / column.Activatable / column.Demotable ---

func (c *Cell) ID() column.CellID { return c.id }

func (c *Cell) Height() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.cellHeight
	if c.showTitleBar {
		h += titleBarHeight
	}
	return h
}

// ContentHeight returns the cell's height excluding the title bar — the
// rows*lineHeight value Configure itself works in. Callers that feed a
// height back into Configure (e.g. a "resize to content" request) must use
// this, not Height(), or the title bar compounds into content on every call
// (the same feedback loop §9's design notes warn about for X11 heights).
func (c *Cell) ContentHeight() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cellHeight
}

// ShowTitleBar reports whether the cell's visual height includes the
// server-drawn title bar.
func (c *Cell) ShowTitleBar() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.showTitleBar
}

// SetShowTitleBar toggles the title bar without touching cellHeight, which
// remains strictly the content height — the same "no feedback loop" rule
// internal/extcell's Height() follows.
func (c *Cell) SetShowTitleBar(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.showTitleBar = v
}

func (c *Cell) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Cell) Focusable() bool { return c.focusable }

// SizingRows reports the sizing machine's current row count, for
// internal/invariant's "sizing.rows >= 1" check.
func (c *Cell) SizingRows() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sizing.Rows()
}

func (c *Cell) SetActivated(activated bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activated = activated
	c.vt.ShowCursor = activated
}

func (c *Cell) Activated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activated
}

func (c *Cell) SetVisible(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = v
}
