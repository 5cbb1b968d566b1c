package service

import (
	"sync"
	"time"
)

const (
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
}

// EventLog keeps the last N lifecycle events for the admin logs page. Old
// entries are overwritten.
type EventLog struct {
	mu   sync.Mutex
	buf  []Event
	next int
	full bool
	now  func() time.Time
}

func NewEventLog(size int) *EventLog {
	if size <= 0 {
		size = 1
	}

	return &EventLog{
		buf: make([]Event, size),
		now: time.Now,
	}
}

// Add is safe to call on a nil EventLog
func (l *EventLog) Add(level, msg string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.buf[l.next] = Event{Timestamp: l.now(), Level: level, Message: msg}
	l.next = (l.next + 1) % len(l.buf)
	if l.next == 0 {
		l.full = true
	}
}

// Recent returns the stored events, newest first
func (l *EventLog) Recent() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next
	if l.full {
		n = len(l.buf)
	}

	out := make([]Event, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, l.buf[(l.next-i+len(l.buf))%len(l.buf)])
	}

	return out
}
