// Package logger provides a thread-safe in-memory message log for the
// dashboard's status console. Messages are kept in a bounded ring and can
// be watched live by the status websocket.
package logger

import (
	"sync"
	"time"
)

// Level classifies a log message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a single log entry.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Level     Level     `json:"level"`
}

// Logger keeps the most recent messages and fans new ones out to watchers.
type Logger struct {
	mu       sync.RWMutex
	messages []Message
	maxSize  int
	watchers map[chan Message]struct{}
}

// New creates a logger retaining at most maxSize messages.
func New(maxSize int) *Logger {
	return &Logger{
		messages: make([]Message, 0, maxSize),
		maxSize:  maxSize,
		watchers: make(map[chan Message]struct{}),
	}
}

// Log appends a message and delivers it to all watchers. Slow watchers are
// skipped rather than blocking the caller.
func (l *Logger) Log(level Level, text string) {
	msg := Message{
		Timestamp: time.Now(),
		Text:      text,
		Level:     level,
	}

	l.mu.Lock()
	l.messages = append(l.messages, msg)
	if len(l.messages) > l.maxSize {
		l.messages = l.messages[len(l.messages)-l.maxSize:]
	}
	for ch := range l.watchers {
		select {
		case ch <- msg:
		default:
		}
	}
	l.mu.Unlock()
}

// Info logs an info-level message.
func (l *Logger) Info(text string) {
	l.Log(LevelInfo, text)
}

// Warning logs a warning-level message.
func (l *Logger) Warning(text string) {
	l.Log(LevelWarning, text)
}

// Error logs an error-level message.
func (l *Logger) Error(text string) {
	l.Log(LevelError, text)
}

// Watch registers a live feed of new messages. The returned stop function
// must be called to release the watcher.
func (l *Logger) Watch() (<-chan Message, func()) {
	ch := make(chan Message, 32)

	l.mu.Lock()
	l.watchers[ch] = struct{}{}
	l.mu.Unlock()

	stop := func() {
		l.mu.Lock()
		if _, ok := l.watchers[ch]; ok {
			delete(l.watchers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, stop
}

// GetRecent returns the most recent n messages, newest first.
func (l *Logger) GetRecent(n int) []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.messages) {
		n = len(l.messages)
	}

	result := make([]Message, n)
	for i := 0; i < n; i++ {
		result[i] = l.messages[len(l.messages)-1-i]
	}
	return result
}
