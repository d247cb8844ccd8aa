package social

import (
	"sync"

	"go.uber.org/zap"
)

type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityError Severity = "error"
)

// Notice is a user-visible message produced at a component boundary.
type Notice struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type Notifier interface {
	Notify(n Notice)
}

type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// NoticeRecorder collects notices, typically for the lifetime of one HTTP request.
type NoticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *NoticeRecorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded so far, never nil.
func (r *NoticeRecorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// LogNotifier writes notices to logger, errors at warn level.
func LogNotifier(logger *zap.Logger) Notifier {
	logger = orNop(logger)
	return NotifierFunc(func(n Notice) {
		fields := []zap.Field{zap.String("title", n.Title), zap.String("description", n.Description)}
		if n.Severity == SeverityError {
			logger.Warn("notice", fields...)
			return
		}
		logger.Info("notice", fields...)
	})
}

func notify(n Notifier, title, description string, sev Severity) {
	if n == nil {
		return
	}
	n.Notify(Notice{Title: title, Description: description, Severity: sev})
}

func signInRequired(n Notifier, description string) {
	notify(n, "Sign in required", description, SeverityError)
}

func orNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
