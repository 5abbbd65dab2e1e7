package frame

import (
	"testing"
	"time"

	"termstack/internal/column"
	"termstack/internal/ipcserver"
	"termstack/internal/keymap"
	"termstack/internal/termcell"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	col := column.New()
	p := New(col, keymap.New(nil), func(command, dir string, env []string) (*termcell.Cell, error) {
		return termcell.New(termcell.Config{Command: command, Cols: 80, InitRows: 24})
	})
	p.OutputWidth = 1280
	p.OutputHeight = 720
	t.Cleanup(func() {
		for _, term := range p.Terminals {
			term.Close()
		}
	})
	return p
}

func TestSpawnIPCCreatesTerminalAndFocusesIt(t *testing.T) {
	p := newTestPipeline(t)
	p.SpawnIPC(ipcserver.SpawnRequest{Command: "sleep 1", Cwd: ""})

	p.RunFrame(nil)

	if p.Column.Len() != 1 {
		t.Fatalf("expected 1 cell after spawn, got %d", p.Column.Len())
	}
	if _, ok := p.Column.FocusedID(); !ok {
		t.Fatalf("expected newly spawned terminal to be focused")
	}
}

func TestTerminalSpawnKeybindingSpawnsShell(t *testing.T) {
	p := newTestPipeline(t)
	p.RequestTerminalSpawn()
	p.RunFrame(nil)

	if p.Column.Len() != 1 {
		t.Fatalf("expected 1 cell after terminal-spawn keybinding, got %d", p.Column.Len())
	}
}

func TestFontSizeDeltaClampedToRange(t *testing.T) {
	p := newTestPipeline(t)
	p.RequestFontSizeDelta(-100)
	p.RunFrame(nil)
	if got := p.FontSize(); got != minFontSize {
		t.Fatalf("expected clamp to %v, got %v", minFontSize, got)
	}

	p.RequestFontSizeDelta(1000)
	p.RunFrame(nil)
	if got := p.FontSize(); got != maxFontSize {
		t.Fatalf("expected clamp to %v, got %v", maxFontSize, got)
	}
}

func TestScrollDeltaClampedToZeroWhenContentFitsViewport(t *testing.T) {
	p := newTestPipeline(t)
	p.SpawnIPC(ipcserver.SpawnRequest{Command: "sleep 1"})
	p.RunFrame(nil)

	p.Router.AddScrollDelta(50)
	p.RunFrame(nil)

	// A single terminal's content height fits the viewport, so no amount of
	// scroll delta should move the offset off zero.
	if got := p.Column.ScrollOffset(); got != 0 {
		t.Fatalf("expected scroll offset to stay clamped at 0, got %v", got)
	}
}

func TestSweepRemovesDeadTerminalAndReportsAllExited(t *testing.T) {
	p := newTestPipeline(t)
	p.SpawnIPC(ipcserver.SpawnRequest{Command: "true"})
	p.RunFrame(nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, term := range p.Terminals {
			if !term.Running() {
				goto dead
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
dead:
	result := p.RunFrame(nil)
	if !result.AllTerminalsExited {
		t.Fatalf("expected AllTerminalsExited after the only terminal exits")
	}
	if p.Column.Len() != 0 {
		t.Fatalf("expected column to be empty after sweep, got %d cells", p.Column.Len())
	}
}
