// Package notify is the user-facing notification sink. Producers fire and
// forget; nothing reads a result back from Notify.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"brickvault-api/pkg/logger"
	"brickvault-api/pkg/uid"
)

// Severity is the presentation level of a notification.
type Severity string

const (
	Success Severity = "success"
	Danger  Severity = "danger"
	Info    Severity = "info"
	Warning Severity = "warning"
)

// DefaultDuration is how long a toast stays visible unless told otherwise.
const DefaultDuration = 5 * time.Second

// Notifier accepts a message for display.
type Notifier interface {
	Notify(message string, severity Severity)
}

// Func adapts a plain function to Notifier.
type Func func(message string, severity Severity)

// Notify calls f.
func (f Func) Notify(message string, severity Severity) { f(message, severity) }

// Toast is one recorded notification as delivered to the browser.
type Toast struct {
	ID         string   `json:"id"`
	Message    string   `json:"message"`
	Severity   Severity `json:"type"`
	DurationMS int64    `json:"duration"`
}

// Recorder keeps notifications in memory until the response is written.
type Recorder struct {
	mu       sync.Mutex
	toasts   []Toast
	duration time.Duration
}

// NewRecorder creates a recorder using DefaultDuration for every toast.
func NewRecorder() *Recorder {
	return &Recorder{duration: DefaultDuration}
}

// Notify records a toast.
func (r *Recorder) Notify(message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, Toast{
		ID:         uid.NewKSUID(),
		Message:    message,
		Severity:   severity,
		DurationMS: r.duration.Milliseconds(),
	})
}

// Toasts returns a snapshot of recorded toasts, never nil.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}

// LogNotifier mirrors notifications into the structured log.
type LogNotifier struct {
	log *zap.SugaredLogger
}

// NewLogNotifier creates a notifier writing to l.
func NewLogNotifier(l *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(l).Named("notify")}
}

// Notify logs the message at a level matching its severity.
func (n *LogNotifier) Notify(message string, severity Severity) {
	switch severity {
	case Danger:
		n.log.Errorw(message, "severity", severity)
	case Warning:
		n.log.Warnw(message, "severity", severity)
	default:
		n.log.Infow(message, "severity", severity)
	}
}

type multi []Notifier

func (m multi) Notify(message string, severity Severity) {
	for _, n := range m {
		n.Notify(message, severity)
	}
}

// Multi fans a notification out to every non-nil notifier.
func Multi(notifiers ...Notifier) Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

type recorderKey struct{}

// WithRecorder returns a context carrying r.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, recorderKey{}, r)
}

// RecorderFromContext returns the recorder attached by WithRecorder, or nil.
func RecorderFromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(recorderKey{}).(*Recorder)
	return r
}
