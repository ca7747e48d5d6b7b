package events

import (
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a user-visible, dismissible message.
type Notification struct {
	Level     Level
	Title     string
	Message   string
	Retryable bool
}

type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to the log. Used by command line tools.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(notification Notification) {
	fields := []zap.Field{
		zap.String("title", notification.Title),
		zap.String("message", notification.Message),
	}
	switch notification.Level {
	case LevelError:
		n.logger.Error("Notification", append(fields, zap.Bool("retryable", notification.Retryable))...)
	default:
		n.logger.Info("Notification", append(fields, zap.String("level", string(notification.Level)))...)
	}
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *Recorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}
