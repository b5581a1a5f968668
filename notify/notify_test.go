package notify

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/reqkit/logger"
)

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) Display(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestNotifier_DedupWhileDisplayed(t *testing.T) {
	rec := &recorder{}
	n := New(Config{Duration: time.Hour}, rec)
	defer n.Close()

	if !n.Show(context.Background(), "Network Error", LevelError) {
		t.Fatal("expected first message shown")
	}
	if n.Show(context.Background(), "Network Error", LevelError) {
		t.Error("expected duplicate suppressed")
	}
	if !n.Show(context.Background(), "Forbidden", LevelError) {
		t.Error("expected distinct message shown")
	}
	if got := rec.count(); got != 2 {
		t.Errorf("expected 2 displayed, got %d", got)
	}
	if got := n.Active(); len(got) != 2 || got[0] != "Forbidden" {
		t.Errorf("unexpected active messages %v", got)
	}
}

func TestNotifier_ConcurrentDuplicates(t *testing.T) {
	rec := &recorder{}
	n := New(Config{Duration: time.Hour}, rec)
	defer n.Close()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Show(context.Background(), "Network Error", LevelError)
		}()
	}
	wg.Wait()

	if got := rec.count(); got != 1 {
		t.Errorf("expected 1 displayed, got %d", got)
	}
}

func TestNotifier_ShowAgainAfterExpiry(t *testing.T) {
	rec := &recorder{}
	n := New(Config{Duration: 10 * time.Millisecond}, rec)

	n.Show(context.Background(), "timeout", LevelError)

	deadline := time.Now().Add(time.Second)
	for len(n.Active()) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("message never expired")
		}
		time.Sleep(time.Millisecond)
	}
	if !n.Show(context.Background(), "timeout", LevelError) {
		t.Error("expected message shown again after expiry")
	}
}

func TestNotifier_Dismiss(t *testing.T) {
	n := New(Config{Duration: time.Hour}, SinkFunc(func(context.Context, Message) {}))

	n.Show(context.Background(), "a", LevelInfo)
	if !n.Dismiss("a") {
		t.Error("expected dismiss to find the message")
	}
	if n.Dismiss("a") {
		t.Error("expected second dismiss to miss")
	}
	if !n.Show(context.Background(), "a", LevelInfo) {
		t.Error("expected message shown again after dismiss")
	}
	n.Close()
	if got := n.Active(); len(got) != 0 {
		t.Errorf("expected nothing active after close, got %v", got)
	}
}

func TestNotifier_LateExpiryKeepsNewerShowing(t *testing.T) {
	n := New(Config{Duration: time.Hour}, SinkFunc(func(context.Context, Message) {}))
	ctx := context.Background()

	n.Show(ctx, "a", LevelInfo)
	n.mu.Lock()
	stale := n.active["a"]
	n.mu.Unlock()

	// Dismiss and re-show, then let the first timer's callback run as if it
	// had fired just before Dismiss stopped it.
	n.Dismiss("a")
	if !n.Show(ctx, "a", LevelInfo) {
		t.Fatal("expected message shown again after dismiss")
	}
	n.expire("a", stale)

	if got := n.Active(); len(got) != 1 || got[0] != "a" {
		t.Errorf("expected newer showing still active, got %v", got)
	}
	if n.Show(ctx, "a", LevelInfo) {
		t.Error("expected duplicate suppressed while newer showing is displayed")
	}
	n.Close()
}

func TestNotifier_EmptyText(t *testing.T) {
	rec := &recorder{}
	n := New(Config{}, rec)
	if n.Show(context.Background(), "", LevelError) {
		t.Error("expected empty text ignored")
	}
	if rec.count() != 0 {
		t.Error("expected nothing displayed")
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Duration != DefaultDuration {
		t.Errorf("expected %v, got %v", DefaultDuration, cfg.Duration)
	}
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	l := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "svc", &buf)
	sink := NewLogSink(l)

	sink.Display(context.Background(), Message{Text: "Network Error", Level: LevelError, Duration: time.Second})

	out := buf.String()
	for _, want := range []string{`"level":"error"`, `"message":"Network Error"`, `"component":"notify"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}
