//go:build !windows

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	"termstack/internal/backend"
	"termstack/internal/column"
	"termstack/internal/config"
	"termstack/internal/frame"
	"termstack/internal/ipcserver"
	"termstack/internal/keymap"
	"termstack/internal/logging"
	"termstack/internal/safego"
	"termstack/internal/termcell"
)

// Version info set by GoReleaser via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	frameInterval     = 16 * time.Millisecond
	socketDialTimeout = 500 * time.Millisecond
	resizeAckTimeout  = time.Second

	defaultLineHeight uint32 = 20
	defaultCharWidth  int32  = 10
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("termstack %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// COLUMN_COMPOSITOR_TUI=1 tells shell integration to eval the command
	// in-place rather than spawn a terminal for it; this is checked before
	// any socket I/O, per spec.md §6.
	if strings.TrimSpace(os.Getenv("COLUMN_COMPOSITOR_TUI")) == "1" {
		os.Exit(2)
	}

	if socketPath, ok := os.LookupEnv("TERMSTACK_SOCKET"); ok {
		os.Exit(runCLI(socketPath, os.Args[1:]))
		return
	}

	runCompositor()
}

// --- CLI mode ---

// runCLI sends one request to the compositor's IPC socket and maps the
// outcome to spec.md §6's exit codes (0 success, 1 error, 2 run-in-shell).
func runCLI(socketPath string, args []string) int {
	if socketPath == "" {
		socketPath = ipcserver.SocketPath()
	}

	req, wantAck, err := parseCLIArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "termstack: %v\n", err)
		return 1
	}

	conn, err := net.DialTimeout("unix", socketPath, socketDialTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "termstack: connect %s: %v\n", socketPath, err)
		return 1
	}
	defer conn.Close()

	line, err := json.Marshal(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "termstack: encode request: %v\n", err)
		return 1
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "termstack: send request: %v\n", err)
		return 1
	}

	if !wantAck {
		return 0
	}

	if err := conn.SetReadDeadline(time.Now().Add(resizeAckTimeout)); err != nil {
		fmt.Fprintf(os.Stderr, "termstack: set deadline: %v\n", err)
		return 1
	}
	reply, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil || strings.TrimSpace(reply) != "ok" {
		fmt.Fprintf(os.Stderr, "termstack: no acknowledgement from compositor\n")
		return 1
	}
	return 0
}

// wireRequest mirrors internal/ipcserver's line-delimited JSON shape from
// the client side.
type wireRequest struct {
	Type       string            `json:"type"`
	Command    string            `json:"command,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
	Env        map[string]string `json:"env,omitempty"`
	Foreground *bool             `json:"foreground,omitempty"`
	Mode       string            `json:"mode,omitempty"`
}

// parseCLIArgs builds the request for one of the three CLI forms documented
// in original_source/crates/termstack/src/main.rs: `-c CMD` (spawn a
// terminal), `gui CMD...` (spawn a GUI window, optionally `--foreground`),
// and `--resize full|content`.
func parseCLIArgs(args []string) (wireRequest, bool, error) {
	cwd, _ := os.Getwd()
	env := map[string]string{"TERM": os.Getenv("TERM")}

	if len(args) == 0 {
		return wireRequest{}, false, fmt.Errorf("usage: termstack -c CMD | gui CMD... | --resize full|content")
	}

	switch args[0] {
	case "-c":
		if len(args) < 2 {
			return wireRequest{}, false, fmt.Errorf("-c requires a command")
		}
		return wireRequest{Type: "spawn", Command: args[1], Cwd: cwd, Env: env}, false, nil

	case "gui":
		rest := args[1:]
		foreground := false
		var parts []string
		for _, a := range rest {
			if a == "--foreground" {
				foreground = true
				continue
			}
			parts = append(parts, a)
		}
		if len(parts) == 0 {
			return wireRequest{}, false, fmt.Errorf("gui requires a command")
		}
		return wireRequest{
			Type:       "spawn",
			Command:    strings.Join(parts, " "),
			Cwd:        cwd,
			Env:        env,
			Foreground: &foreground,
		}, false, nil

	case "--resize":
		if len(args) < 2 {
			return wireRequest{}, false, fmt.Errorf("--resize requires full or content")
		}
		mode := args[1]
		if mode != string(ipcserver.ResizeFull) && mode != string(ipcserver.ResizeContent) {
			return wireRequest{}, false, fmt.Errorf("--resize expects full or content, got %q", mode)
		}
		return wireRequest{Type: "resize", Mode: mode}, true, nil

	default:
		return wireRequest{}, false, fmt.Errorf("unrecognized arguments: %s", strings.Join(args, " "))
	}
}

// --- Compositor mode ---

func runCompositor() {
	logDir := logDirectory()
	if err := logging.Initialize(logDir, logging.LevelDebug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize logging: %v\n", err)
	}
	defer logging.Close()

	logging.Info("Starting termstack")
	startSignalDebug()
	startPprof()

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		logging.Error("Failed to load config: %v", err)
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	be := selectBackend()
	width, height := be.OutputSize()

	col := column.New()
	km := keymap.New(nil)

	var pipeline *frame.Pipeline
	spawn := func(command, dir string, env []string) (*termcell.Cell, error) {
		if command == "$SHELL" {
			if sh := os.Getenv("SHELL"); sh != "" {
				command = sh
			} else {
				command = "/bin/sh"
			}
		}
		cols := int(pipeline.OutputWidth / defaultCharWidth)
		rows := int(pipeline.OutputHeight) / int(defaultLineHeight)
		return termcell.New(termcell.Config{
			Command:    command,
			Dir:        dir,
			Env:        withSocketEnv(env),
			Cols:       cols,
			InitRows:   rows,
			LineHeight: defaultLineHeight,
		})
	}
	pipeline = frame.New(col, km, spawn)
	pipeline.OutputWidth = width
	pipeline.OutputHeight = height
	_ = cfg // background_color/window_gap/etc. are consumed by the rendering
	// collaborator (out of scope here); min/max window height and scroll
	// speed are applied where internal/column's SetScrollOffset and the
	// height calculator are wired by a real renderer.

	server, err := ipcserver.Listen(ipcserver.SocketPath(), &ipcHandler{p: pipeline})
	if err != nil {
		logging.Error("Failed to bind IPC socket: %v", err)
		fmt.Fprintf(os.Stderr, "Error binding IPC socket: %v\n", err)
		os.Exit(1)
	}
	safego.Go("ipcserver.Serve", server.Serve)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	events := be.Events()
	quit := false
	for !quit {
		select {
		case <-sig:
			quit = true
		case ev, ok := <-events:
			if !ok {
				quit = true
				break
			}
			applyBackendEvent(pipeline, ev)
		case <-ticker.C:
			result := pipeline.RunFrame(nil)
			if err := be.Present(); err != nil {
				logging.Error("present failed: %v", err)
			}
			if result.AllTerminalsExited {
				quit = true
			}
		}
	}

	if err := server.Close(); err != nil {
		logging.Error("ipcserver close failed: %v", err)
	}
	if err := be.Close(); err != nil {
		logging.Error("backend close failed: %v", err)
	}
	logging.Info("termstack shutdown complete")
}

func applyBackendEvent(p *frame.Pipeline, ev backend.Event) {
	switch ev.Kind {
	case backend.EventResized:
		p.OutputWidth, p.OutputHeight = ev.Width, ev.Height
	case backend.EventCloseRequested:
		// handled by the caller's select loop breaking on a closed channel
		// or quit flag; nothing to do to compositor state here.
	}
}

// selectBackend reads TERMSTACK_BACKEND (spec.md §6): "headless" or "x11".
// Only headless is implemented in this module — a real Wayland/X11 host is
// an out-of-scope rendering collaborator (see internal/backend) — so an
// unrecognized or "x11" value falls back to headless with a warning rather
// than silently pretending to support it.
func selectBackend() backend.Backend {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("TERMSTACK_BACKEND")))
	if raw != "" && raw != "headless" {
		logging.Warn("TERMSTACK_BACKEND=%q not implemented in this build, using headless", raw)
	}
	return backend.NewHeadless(1280, 720)
}

// withSocketEnv appends TERMSTACK_SOCKET to env so a shell spawned inside a
// terminal cell can detect it is running inside the compositor, matching
// spec.md §4.9's "foreground GUI spawn" rule generalized to every terminal.
func withSocketEnv(env []string) []string {
	for _, kv := range env {
		if strings.HasPrefix(kv, "TERMSTACK_SOCKET=") {
			return env
		}
	}
	return append(append([]string{}, env...), "TERMSTACK_SOCKET="+ipcserver.SocketPath())
}

func logDirectory() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "termstack", "logs")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".termstack", "logs")
}

// ipcHandler adapts frame.Pipeline to ipcserver.Handler. Both Spawn and
// Resize queue onto the pipeline rather than mutating column/pipeline state
// directly, since Serve's per-connection goroutines run concurrently with
// the single frame-processing goroutine (spec.md §5's single-threaded
// model) — queuing is the only safe crossing point. Resize's queue entry
// carries a completion channel that step7ApplyIPCResize closes once the
// resize has actually been applied, so ipcserver's per-connection goroutine
// blocks on it before writing the ack — the CLI's "ok\n" really does follow
// the resize taking effect, not just being queued.
type ipcHandler struct {
	p *frame.Pipeline
}

func (h *ipcHandler) Spawn(req ipcserver.SpawnRequest) { h.p.SpawnIPC(req) }

func (h *ipcHandler) Resize(req ipcserver.ResizeRequest) <-chan struct{} {
	return h.p.ResizeIPC(req)
}

func startPprof() {
	raw := strings.TrimSpace(os.Getenv("TERMSTACK_PPROF"))
	if raw == "" {
		return
	}
	switch strings.ToLower(raw) {
	case "0", "false", "no":
		return
	}

	addr := raw
	if raw == "1" || strings.ToLower(raw) == "true" {
		addr = "127.0.0.1:6060"
	} else if _, err := strconv.Atoi(raw); err == nil {
		addr = "127.0.0.1:" + raw
	}

	safego.Go("pprof", func() {
		logging.Info("pprof listening on %s", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			logging.Warn("pprof server stopped: %v", err)
		}
	})
}

// startSignalDebug registers a SIGUSR1 handler for debug goroutine dumps.
// The goroutine and signal handler intentionally live for the process
// lifetime since this is only active in dev builds or when
// TERMSTACK_DEBUG_SIGNALS is set.
func startSignalDebug() {
	if version != "dev" && strings.TrimSpace(os.Getenv("TERMSTACK_DEBUG_SIGNALS")) == "" {
		return
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	safego.Go("signal-debug", func() {
		for range ch {
			var buf bytes.Buffer
			if err := pprof.Lookup("goroutine").WriteTo(&buf, 2); err != nil {
				logging.Warn("Failed to write goroutine dump: %v", err)
				continue
			}
			logging.Warn("GOROUTINE DUMP\n%s", buf.String())
		}
	})
}
