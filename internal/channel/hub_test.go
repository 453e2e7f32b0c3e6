package channel

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thamiris-ramos/BotServer/internal/bot"
)

type fakeWriter struct {
	written []any
	err     error
}

func (f *fakeWriter) WriteJSON(v any) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, v)
	return nil
}

func testActivity(text string) bot.Activity {
	return bot.Activity{
		Type:         bot.ActivityMessage,
		Text:         text,
		Conversation: bot.ConversationAccount{ID: "conv-1"},
	}
}

func TestHubDeliversToAttachedConn(t *testing.T) {
	h := NewHub(log.New(io.Discard, "", 0))
	conn := &fakeWriter{}
	if err := h.Attach("conv-1", conn); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	if err := h.SendActivity(context.Background(), "conv-1", testActivity("hello")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(conn.written) != 1 {
		t.Fatalf("expected one write, got %d", len(conn.written))
	}
	if got := conn.written[0].(bot.Activity); got.Text != "hello" {
		t.Fatalf("unexpected activity: %+v", got)
	}
}

func TestHubBuffersUntilAttach(t *testing.T) {
	h := NewHub(log.New(io.Discard, "", 0))

	if err := h.SendActivity(context.Background(), "conv-1", testActivity("first")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := h.SendActivity(context.Background(), "conv-1", testActivity("second")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	conn := &fakeWriter{}
	if err := h.Attach("conv-1", conn); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if len(conn.written) != 2 {
		t.Fatalf("expected buffered flush of 2, got %d", len(conn.written))
	}
	if got := conn.written[0].(bot.Activity); got.Text != "first" {
		t.Fatalf("buffered order broken: %+v", conn.written)
	}
}

func TestHubDropsOldestBeyondCap(t *testing.T) {
	h := NewHub(log.New(io.Discard, "", 0))

	for i := 0; i < pendingCap+1; i++ {
		if err := h.SendActivity(context.Background(), "conv-1", testActivity(string(rune('a'+i%26)))); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	conn := &fakeWriter{}
	if err := h.Attach("conv-1", conn); err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if len(conn.written) != pendingCap {
		t.Fatalf("expected %d buffered, got %d", pendingCap, len(conn.written))
	}
	if got := conn.written[0].(bot.Activity); got.Text != "b" {
		t.Fatalf("oldest was not dropped, first=%+v", got)
	}
}

func TestHubDetachesOnWriteError(t *testing.T) {
	h := NewHub(log.New(io.Discard, "", 0))
	conn := &fakeWriter{err: errors.New("gone")}
	if err := h.Attach("conv-1", conn); err != nil {
		t.Fatalf("attach failed: %v", err)
	}

	if err := h.SendActivity(context.Background(), "conv-1", testActivity("x")); err == nil {
		t.Fatalf("expected write error")
	}

	// After the failed write the conversation buffers again.
	if err := h.SendActivity(context.Background(), "conv-1", testActivity("y")); err != nil {
		t.Fatalf("send after detach failed: %v", err)
	}
	replacement := &fakeWriter{}
	if err := h.Attach("conv-1", replacement); err != nil {
		t.Fatalf("re-attach failed: %v", err)
	}
	if len(replacement.written) != 1 {
		t.Fatalf("expected buffered activity after re-attach, got %d", len(replacement.written))
	}
}

// gatedWriter blocks its first write until released and records whether two
// writes ever overlapped.
type gatedWriter struct {
	entered  chan struct{}
	release  chan struct{}
	inflight int32
	overlap  int32
	calls    int32
	written  []any
	mu       sync.Mutex
}

func (g *gatedWriter) WriteJSON(v any) error {
	if atomic.AddInt32(&g.inflight, 1) > 1 {
		atomic.StoreInt32(&g.overlap, 1)
	}
	if atomic.AddInt32(&g.calls, 1) == 1 {
		close(g.entered)
		<-g.release
	}
	g.mu.Lock()
	g.written = append(g.written, v)
	g.mu.Unlock()
	atomic.AddInt32(&g.inflight, -1)
	return nil
}

func TestHubSerializesFlushAndSend(t *testing.T) {
	h := NewHub(log.New(io.Discard, "", 0))

	if err := h.SendActivity(context.Background(), "conv-1", testActivity("buffered")); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	conn := &gatedWriter{entered: make(chan struct{}), release: make(chan struct{})}
	attachDone := make(chan error, 1)
	go func() { attachDone <- h.Attach("conv-1", conn) }()
	<-conn.entered

	// The flush is parked inside WriteJSON; a turn's send for the same
	// conversation must wait for it rather than write concurrently.
	sendDone := make(chan error, 1)
	go func() { sendDone <- h.SendActivity(context.Background(), "conv-1", testActivity("live")) }()
	time.Sleep(50 * time.Millisecond)
	close(conn.release)

	if err := <-attachDone; err != nil {
		t.Fatalf("attach failed: %v", err)
	}
	if err := <-sendDone; err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if atomic.LoadInt32(&conn.overlap) != 0 {
		t.Fatalf("writes overlapped on one connection")
	}
	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.written) != 2 {
		t.Fatalf("expected 2 writes, got %d", len(conn.written))
	}
	if got := conn.written[0].(bot.Activity); got.Text != "buffered" {
		t.Fatalf("flush did not complete first: %+v", conn.written)
	}
}

func TestHubRejectsEmptyAttach(t *testing.T) {
	h := NewHub(log.New(io.Discard, "", 0))
	if err := h.Attach(" ", &fakeWriter{}); err == nil {
		t.Fatalf("expected empty conversation id to fail")
	}
	if err := h.Attach("conv-1", nil); err == nil {
		t.Fatalf("expected nil conn to fail")
	}
}
