package ipcserver

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

// fakeHandler records requests delivered by Serve. resizeGate, if set, is
// returned as-is from Resize so a test can control when a resize
// "completes"; left nil, Resize reports completion immediately.
type fakeHandler struct {
	spawns     []SpawnRequest
	resizes    []ResizeRequest
	resizeGate chan struct{}
}

func (f *fakeHandler) Spawn(req SpawnRequest) { f.spawns = append(f.spawns, req) }

func (f *fakeHandler) Resize(req ResizeRequest) <-chan struct{} {
	f.resizes = append(f.resizes, req)
	if f.resizeGate != nil {
		return f.resizeGate
	}
	done := make(chan struct{})
	close(done)
	return done
}

func startServer(t *testing.T, h Handler) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "termstack.sock")
	s, err := Listen(path, h)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	go s.Serve()
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSpawnRequestNeverReplies(t *testing.T) {
	h := &fakeHandler{}
	_, path := startServer(t, h)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	line := `{"type":"spawn","command":"bash","cwd":"/tmp","env":{}}` + "\n"
	if _, err := conn.Write([]byte(line)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("expected no reply to spawn, got n=%d err=%v", n, err)
	}

	time.Sleep(20 * time.Millisecond)
	if len(h.spawns) != 1 || h.spawns[0].Command != "bash" {
		t.Fatalf("expected spawn to be dispatched, got %+v", h.spawns)
	}
}

func TestResizeRequestReceivesAck(t *testing.T) {
	h := &fakeHandler{}
	_, path := startServer(t, h)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	line := `{"type":"resize","mode":"full"}` + "\n"
	if _, err := conn.Write([]byte(line)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	reader := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	reply, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("expected ack, got error: %v", err)
	}
	if reply != "ok\n" {
		t.Fatalf("expected ok reply, got %q", reply)
	}
	if len(h.resizes) != 1 || h.resizes[0].Mode != ResizeFull {
		t.Fatalf("expected resize dispatched, got %+v", h.resizes)
	}
}

func TestResizeRequestWaitsForHandlerCompletion(t *testing.T) {
	gate := make(chan struct{})
	h := &fakeHandler{resizeGate: gate}
	_, path := startServer(t, h)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	line := `{"type":"resize","mode":"content"}` + "\n"
	if _, err := conn.Write([]byte(line)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	buf := make([]byte, 16)
	if n, err := conn.Read(buf); err == nil || n != 0 {
		t.Fatalf("expected no ack before the handler completes, got n=%d err=%v", n, err)
	}

	close(gate)

	reader := bufio.NewReader(conn)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	reply, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("expected ack once the handler completes, got error: %v", err)
	}
	if reply != "ok\n" {
		t.Fatalf("expected ok reply, got %q", reply)
	}
}

func TestResizeRequestNoAckIfHandlerNeverCompletes(t *testing.T) {
	h := &fakeHandler{resizeGate: make(chan struct{})}
	_, path := startServer(t, h)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	line := `{"type":"resize","mode":"full"}` + "\n"
	if _, err := conn.Write([]byte(line)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(resizeCompleteTimeout + 500*time.Millisecond))
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if n != 0 || err == nil {
		t.Fatalf("expected no reply once the completion wait times out, got n=%d err=%v", n, err)
	}
}

func TestMalformedJSONClosesSilently(t *testing.T) {
	h := &fakeHandler{}
	_, path := startServer(t, h)

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("not json at all\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 16)
	n, _ := conn.Read(buf)
	if n != 0 {
		t.Fatalf("expected no reply for malformed JSON, got %q", buf[:n])
	}
}

func TestSocketPathFormat(t *testing.T) {
	path := SocketPath()
	want := filepath.Join("/run/user", strconv.Itoa(os.Getuid()), "termstack.sock")
	if path != want {
		t.Fatalf("SocketPath() = %q, want %q", path, want)
	}
}
