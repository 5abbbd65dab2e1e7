package backend

import "testing"

func TestHeadlessOutputSize(t *testing.T) {
	h := NewHeadless(1280, 720)
	w, hgt := h.OutputSize()
	if w != 1280 || hgt != 720 {
		t.Fatalf("expected (1280,720), got (%d,%d)", w, hgt)
	}
}

func TestHeadlessResizeEmitsEvent(t *testing.T) {
	h := NewHeadless(800, 600)
	h.Resize(1024, 768)

	ev := <-h.Events()
	if ev.Kind != EventResized || ev.Width != 1024 || ev.Height != 768 {
		t.Fatalf("unexpected event: %+v", ev)
	}
	w, hgt := h.OutputSize()
	if w != 1024 || hgt != 768 {
		t.Fatalf("expected updated size, got (%d,%d)", w, hgt)
	}
}

func TestHeadlessCloseClosesChannel(t *testing.T) {
	h := NewHeadless(100, 100)
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-h.Events(); ok {
		t.Fatalf("expected closed events channel")
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got %v", err)
	}
}
