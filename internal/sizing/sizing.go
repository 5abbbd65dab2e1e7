// Package sizing implements the per-terminal content-row tracking and
// resize protocol described in spec.md §4.2: it decides when a terminal
// cell should ask to grow, carries a resize through to completion without
// losing scrollback, and stays inert while a full-screen program owns the
// alternate screen.
package sizing

// ActionKind tags the command a Machine emits to its caller (the frame
// pipeline, via internal/termcell).
type ActionKind int

const (
	// None means no action is required.
	None ActionKind = iota
	// RequestGrowth asks the caller to negotiate a larger terminal size;
	// TargetRows carries the row count that would make content_rows fit.
	RequestGrowth
	// ApplyResize asks the caller to actually resize the PTY/VT to Rows.
	ApplyResize
	// RestoreScrollback tells the caller that Lines rows of scrollback were
	// produced while a resize was pending and should be folded back in.
	RestoreScrollback
)

// Action is the tagged command emitted by a state transition.
type Action struct {
	Kind       ActionKind
	TargetRows int
	Rows       int
	Lines      int
}

type stateKind int

const (
	stateStable stateKind = iota
	stateGrowthRequested
	stateResizePending
)

// Machine is the terminal sizing state machine. The zero value is not
// usable; construct with New.
type Machine struct {
	state stateKind

	rows        int
	contentRows int

	targetRows int

	oldRows              int
	newRows              int
	contentRowsAtRequest int
	linesDuringResize    int
	linesDuringGrowth    int
}

// New creates a Machine in the Stable state with the given initial row
// count.
func New(rows int) *Machine {
	if rows < 1 {
		rows = 1
	}
	return &Machine{state: stateStable, rows: rows}
}

// Rows returns the terminal's current row count.
func (m *Machine) Rows() int {
	return m.rows
}

// ContentRows returns the number of rows of content produced on the normal
// screen. The count carries over across resizes; a resize does not reset it.
func (m *Machine) ContentRows() int {
	return m.contentRows
}

// OnNewLine records a newline delivered by the VT parser. onAltScreen must
// reflect whether the VT was in alternate-screen mode when the line was
// emitted: per the alternate-screen rule, content_rows never changes while
// the alt screen is active, in any state.
func (m *Machine) OnNewLine(onAltScreen bool) Action {
	if onAltScreen {
		return Action{Kind: None}
	}
	switch m.state {
	case stateStable:
		m.contentRows++
		if m.contentRows > m.rows {
			m.targetRows = m.contentRows
			m.state = stateGrowthRequested
			return Action{Kind: RequestGrowth, TargetRows: m.targetRows}
		}
		return Action{Kind: None}
	case stateGrowthRequested:
		m.linesDuringGrowth++
		return Action{Kind: None}
	case stateResizePending:
		m.linesDuringResize++
		return Action{Kind: None}
	}
	return Action{Kind: None}
}

// OnConfigure records that the caller is (re)sizing the terminal to r rows,
// regardless of which state negotiated it.
func (m *Machine) OnConfigure(r int) Action {
	if r < 1 {
		r = 1
	}
	switch m.state {
	case stateStable, stateGrowthRequested:
		m.oldRows = m.rows
		m.newRows = r
		m.contentRowsAtRequest = m.contentRows
		// Lines fed to OnNewLine while GrowthRequested (the request was
		// already in flight but not yet configured) still count toward the
		// scrollback the resize owes back, per spec.md's seed scenario 3.
		m.linesDuringResize = m.linesDuringGrowth
		m.linesDuringGrowth = 0
		m.state = stateResizePending
		return Action{Kind: ApplyResize, Rows: r}
	case stateResizePending:
		m.newRows = r
		return Action{Kind: None}
	}
	return Action{Kind: None}
}

// OnResizeComplete records that the caller finished applying the resize
// (PTY winsize set, VT grid resized). Only meaningful in ResizePending; a
// no-op otherwise.
func (m *Machine) OnResizeComplete() Action {
	if m.state != stateResizePending {
		return Action{Kind: None}
	}
	m.rows = m.newRows
	m.contentRows = m.contentRowsAtRequest + m.linesDuringResize
	lines := m.linesDuringResize
	m.state = stateStable
	m.linesDuringResize = 0
	if lines > 0 {
		return Action{Kind: RestoreScrollback, Lines: lines}
	}
	return Action{Kind: None}
}

// RequestGrowth is an explicit, caller-initiated growth request (e.g. an
// initial spawn size), distinct from the automatic request OnNewLine emits.
func (m *Machine) RequestGrowth(target int) Action {
	switch m.state {
	case stateStable:
		m.targetRows = target
		m.state = stateGrowthRequested
	case stateGrowthRequested:
		m.targetRows = target
	case stateResizePending:
		// no change
	}
	return Action{Kind: None}
}

// TargetRows returns the most recently requested target row count while in
// GrowthRequested; meaningless in other states.
func (m *Machine) TargetRows() int {
	return m.targetRows
}
