package audit

import (
	"context"
)

// Appender writes audit entries
type Appender interface {
	Append(ctx context.Context, entry *Entry) error

	Close() error
}

// MultiAppender fans an entry out to several appenders
type MultiAppender struct {
	appenders []Appender
}

// NewMultiAppender creates a multi appender
func NewMultiAppender(appenders ...Appender) *MultiAppender {
	return &MultiAppender{
		appenders: appenders,
	}
}

// Append writes to every appender and returns the first error
func (ma *MultiAppender) Append(ctx context.Context, entry *Entry) error {
	var firstErr error

	for _, appender := range ma.appenders {
		if err := appender.Append(ctx, entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Close closes every appender
func (ma *MultiAppender) Close() error {
	var firstErr error

	for _, appender := range ma.appenders {
		if err := appender.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Add appends an appender
func (ma *MultiAppender) Add(appender Appender) {
	ma.appenders = append(ma.appenders, appender)
}

// Len returns the number of appenders
func (ma *MultiAppender) Len() int {
	return len(ma.appenders)
}

// FailuresAppender forwards only failed entries
type FailuresAppender struct {
	next Appender
}

// NewFailuresAppender wraps next
func NewFailuresAppender(next Appender) *FailuresAppender {
	return &FailuresAppender{next: next}
}

func (fa *FailuresAppender) Append(ctx context.Context, entry *Entry) error {
	if entry.Status != StatusFailure {
		return nil
	}
	return fa.next.Append(ctx, entry)
}

func (fa *FailuresAppender) Close() error {
	return fa.next.Close()
}

// NullAppender discards everything
type NullAppender struct{}

// NewNullAppender creates a null appender
func NewNullAppender() *NullAppender {
	return &NullAppender{}
}

func (na *NullAppender) Append(ctx context.Context, entry *Entry) error {
	return nil
}

func (na *NullAppender) Close() error {
	return nil
}
