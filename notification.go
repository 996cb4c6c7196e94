package datalab

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultToastDuration is how long a notification stays visible by default.
const DefaultToastDuration = 3 * time.Second

// Notifier shows short user-facing messages. Show must not block.
type Notifier interface {
	Show(message string, duration time.Duration)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string, duration time.Duration)

// Show calls f(message, duration).
func (f NotifierFunc) Show(message string, duration time.Duration) {
	f(message, duration)
}

// Toast is one visible notification.
type Toast struct {
	ID       int           `json:"id"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

// Toasts is an in-memory Notifier. Each toast is removed once its duration
// has elapsed.
type Toasts struct {
	mu     sync.Mutex
	nextID int
	toasts []Toast
	timers map[int]*time.Timer
}

// NewToasts creates an empty toast queue.
func NewToasts() *Toasts {
	return &Toasts{timers: make(map[int]*time.Timer)}
}

// Show queues a toast. A non-positive duration uses DefaultToastDuration.
func (t *Toasts) Show(message string, duration time.Duration) {
	if duration <= 0 {
		duration = DefaultToastDuration
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.toasts = append(t.toasts, Toast{ID: id, Message: message, Duration: duration})
	t.timers[id] = time.AfterFunc(duration, func() { t.Remove(id) })
}

// Remove drops the toast with the given ID. Unknown IDs are ignored.
func (t *Toasts) Remove(id int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[id]; ok {
		timer.Stop()
		delete(t.timers, id)
	}
	for i, toast := range t.toasts {
		if toast.ID == id {
			t.toasts = append(t.toasts[:i], t.toasts[i+1:]...)
			return
		}
	}
}

// List returns the visible toasts, oldest first.
func (t *Toasts) List() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.toasts))
	copy(out, t.toasts)
	return out
}

// LogNotifier writes notifications to a structured logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a Notifier that logs at info level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LogNotifier{logger: logger}
}

// Show logs the message.
func (n *LogNotifier) Show(message string, duration time.Duration) {
	n.logger.Info(message, "duration", duration)
}

// discardNotifier drops every message
type discardNotifier struct{}

func (discardNotifier) Show(string, time.Duration) {}
