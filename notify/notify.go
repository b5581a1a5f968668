// Package notify shows user-visible messages without repeating one that is
// already on screen.
package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/reqkit/logger"
)

// DefaultDuration is how long a message stays displayed.
const DefaultDuration = 3 * time.Second

// Level is the message severity.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
)

// Message is one displayed notification.
type Message struct {
	Text     string
	Level    Level
	Duration time.Duration
}

// Sink renders messages.
type Sink interface {
	Display(ctx context.Context, msg Message)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, msg Message)

// Display calls f.
func (f SinkFunc) Display(ctx context.Context, msg Message) { f(ctx, msg) }

// Config configures a Notifier.
type Config struct {
	// Duration defaults to DefaultDuration.
	Duration time.Duration `mapstructure:"duration"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Duration <= 0 {
		c.Duration = DefaultDuration
	}
}

// Notifier dedups messages by text for as long as they are displayed.
type Notifier struct {
	sink     Sink
	duration time.Duration

	mu     sync.Mutex
	active map[string]*showing
}

// showing is one display of a text. Its identity tells a late timer
// callback apart from a newer showing of the same text.
type showing struct {
	timer *time.Timer
}

// New creates a Notifier that renders through sink.
func New(cfg Config, sink Sink) *Notifier {
	cfg.ApplyDefaults()
	return &Notifier{
		sink:     sink,
		duration: cfg.Duration,
		active:   make(map[string]*showing),
	}
}

// Show displays text unless the same text is already displayed. It reports
// whether the message was shown.
func (n *Notifier) Show(ctx context.Context, text string, level Level) bool {
	if text == "" {
		return false
	}

	n.mu.Lock()
	if _, ok := n.active[text]; ok {
		n.mu.Unlock()
		return false
	}
	sh := &showing{}
	sh.timer = time.AfterFunc(n.duration, func() { n.expire(text, sh) })
	n.active[text] = sh
	n.mu.Unlock()

	n.sink.Display(ctx, Message{Text: text, Level: level, Duration: n.duration})
	return true
}

// Dismiss closes a displayed message early. It reports whether text was
// displayed.
func (n *Notifier) Dismiss(text string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	sh, ok := n.active[text]
	if !ok {
		return false
	}
	sh.timer.Stop()
	delete(n.active, text)
	return true
}

// Active returns the displayed texts, sorted.
func (n *Notifier) Active() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.active))
	for text := range n.active {
		out = append(out, text)
	}
	sort.Strings(out)
	return out
}

// Close dismisses everything.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for text, sh := range n.active {
		sh.timer.Stop()
		delete(n.active, text)
	}
}

// expire removes text only while sh is still the displayed showing. A timer
// that already fired when Dismiss stopped it must not drop a newer one.
func (n *Notifier) expire(text string, sh *showing) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.active[text] == sh {
		delete(n.active, text)
	}
}

// LogSink renders messages as log lines.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a LogSink. A nil logger uses the global one.
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &LogSink{log: log.WithComponent("notify")}
}

// Display implements Sink.
func (s *LogSink) Display(_ context.Context, msg Message) {
	fields := logger.Fields("severity", string(msg.Level), "display", msg.Duration.String())
	switch msg.Level {
	case LevelError:
		s.log.Error(msg.Text, fields)
	case LevelWarning:
		s.log.Warn(msg.Text, fields)
	default:
		s.log.Info(msg.Text, fields)
	}
}
