package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileAppender writes one line per entry to a file and rotates it by size:
// audit.log becomes audit.log.1, audit.log.1 becomes audit.log.2 and so on,
// keeping at most MaxBackups old files.
type FileAppender struct {
	mu          sync.Mutex
	file        *os.File
	filePath    string
	maxSize     int64
	maxBackups  int
	currentSize int64
	level       Level
	formatJSON  bool
}

// FileAppenderConfig configures a FileAppender
type FileAppenderConfig struct {
	FilePath   string
	MaxSize    int64 // megabytes, default 100
	MaxBackups int   // default 5
	Level      Level
	FormatJSON bool
}

// NewFileAppender opens (or creates) the audit file
func NewFileAppender(config FileAppenderConfig) (*FileAppender, error) {
	if config.FilePath == "" {
		return nil, fmt.Errorf("audit file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := openAppend(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	maxSize := config.MaxSize
	if maxSize == 0 {
		maxSize = 100
	}
	maxBackups := config.MaxBackups
	if maxBackups == 0 {
		maxBackups = 5
	}

	return &FileAppender{
		file:        file,
		filePath:    config.FilePath,
		maxSize:     maxSize * 1024 * 1024,
		maxBackups:  maxBackups,
		currentSize: info.Size(),
		level:       config.Level,
		formatJSON:  config.FormatJSON,
	}, nil
}

// Append writes the entry, rotating first if it would not fit
func (fa *FileAppender) Append(ctx context.Context, entry *Entry) error {
	data, err := encodeLine(entry.FilterByLevel(fa.level), fa.formatJSON)
	if err != nil {
		return err
	}

	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.currentSize > 0 && fa.currentSize+int64(len(data)) > fa.maxSize {
		if err := fa.rotate(); err != nil {
			return fmt.Errorf("failed to rotate file: %w", err)
		}
	}

	n, err := fa.file.Write(data)
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	fa.currentSize += int64(n)
	return nil
}

func (fa *FileAppender) rotate() error {
	if err := fa.file.Close(); err != nil {
		return err
	}

	os.Remove(backupPath(fa.filePath, fa.maxBackups))
	for i := fa.maxBackups - 1; i > 0; i-- {
		if _, err := os.Stat(backupPath(fa.filePath, i)); err == nil {
			if err := os.Rename(backupPath(fa.filePath, i), backupPath(fa.filePath, i+1)); err != nil {
				return err
			}
		}
	}
	if err := os.Rename(fa.filePath, backupPath(fa.filePath, 1)); err != nil {
		return err
	}

	file, err := openAppend(fa.filePath)
	if err != nil {
		return err
	}
	fa.file = file
	fa.currentSize = 0
	return nil
}

// Close syncs and closes the file
func (fa *FileAppender) Close() error {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	if fa.file == nil {
		return nil
	}
	if err := fa.file.Sync(); err != nil {
		fa.file.Close()
		return err
	}
	return fa.file.Close()
}

// CurrentSize returns the size of the active file in bytes
func (fa *FileAppender) CurrentSize() int64 {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.currentSize
}

// FilePath returns the active file path
func (fa *FileAppender) FilePath() string {
	return fa.filePath
}

// WriterAppender writes one line per entry to any writer, e.g. stdout
type WriterAppender struct {
	mu         sync.Mutex
	w          io.Writer
	level      Level
	formatJSON bool
}

// NewWriterAppender creates a writer appender
func NewWriterAppender(w io.Writer, level Level, formatJSON bool) *WriterAppender {
	return &WriterAppender{w: w, level: level, formatJSON: formatJSON}
}

func (wa *WriterAppender) Append(ctx context.Context, entry *Entry) error {
	data, err := encodeLine(entry.FilterByLevel(wa.level), wa.formatJSON)
	if err != nil {
		return err
	}
	wa.mu.Lock()
	defer wa.mu.Unlock()
	_, err = wa.w.Write(data)
	return err
}

func (wa *WriterAppender) Close() error {
	return nil
}

func encodeLine(entry *Entry, formatJSON bool) ([]byte, error) {
	if !formatJSON {
		return []byte(entry.String() + "\n"), nil
	}
	data, err := entry.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return append(data, '\n'), nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}

func backupPath(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}
