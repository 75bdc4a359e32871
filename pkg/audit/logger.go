package audit

import (
	"context"
	"sync"
)

// Logger stamps entries with run defaults and writes them to its appenders
type Logger struct {
	mu        sync.RWMutex
	appenders []Appender
	config    LoggerConfig
}

// LoggerConfig configures a Logger
type LoggerConfig struct {
	// RunID is set on entries that carry none
	RunID string

	// OnError receives append errors; an audit failure never fails the import
	OnError func(error)
}

// NewLogger creates a logger
func NewLogger(config LoggerConfig, appenders ...Appender) *Logger {
	return &Logger{appenders: appenders, config: config}
}

// Log writes the entry to every appender
func (l *Logger) Log(ctx context.Context, entry *Entry) {
	if entry.RunID == "" {
		entry.RunID = l.config.RunID
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, appender := range l.appenders {
		if err := appender.Append(ctx, entry); err != nil {
			l.handleError(err)
		}
	}
}

// RunID returns the run id entries are stamped with
func (l *Logger) RunID() string {
	return l.config.RunID
}

// AddAppender adds an appender
func (l *Logger) AddAppender(appender Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, appender)
}

// Close closes every appender and returns the first error
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, appender := range l.appenders {
		if err := appender.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.appenders = nil
	return firstErr
}

func (l *Logger) handleError(err error) {
	if l.config.OnError != nil {
		l.config.OnError(err)
	}
}
