package logbuf

import (
	"log/slog"
	"sync"
	"time"
)

// Logger buffers the log lines emitted while serving one request so the
// request produces a single structured record instead of interleaved lines.
// The root logger holds shared attrs; With derives a per-request logger
// with its own entry buffer.
type Logger struct {
	mu    sync.Mutex
	attrs []slog.Attr
	buf   *buffer
}

type Entry struct {
	Level   string
	Message string
	At      time.Time
	Seq     uint64
	Attrs   []slog.Attr
}

type buffer struct {
	mu      sync.Mutex
	entries []Entry
	seq     uint64
}

func New(attrs ...slog.Attr) *Logger {
	logger := &Logger{}
	logger.attrs = append(logger.attrs, attrs...)
	return logger
}

// With derives a logger carrying extra attrs. Deriving from the root starts
// a fresh entry buffer; deriving from a request logger shares its buffer.
func (l *Logger) With(attrs ...slog.Attr) *Logger {
	l.mu.Lock()
	base := append([]slog.Attr(nil), l.attrs...)
	l.mu.Unlock()

	child := &Logger{attrs: append(base, attrs...), buf: l.buf}
	if child.buf == nil {
		child.buf = &buffer{}
	}
	return child
}

// Add attaches attrs to the final flushed record.
func (l *Logger) Add(attrs ...slog.Attr) {
	l.mu.Lock()
	l.attrs = append(l.attrs, attrs...)
	l.mu.Unlock()
}

func (l *Logger) Debug(message string, attrs ...slog.Attr) error {
	l.appendEntry("debug", message, attrs...)
	return nil
}

func (l *Logger) Info(message string, attrs ...slog.Attr) error {
	l.appendEntry("info", message, attrs...)
	return nil
}

func (l *Logger) Warn(message string, attrs ...slog.Attr) error {
	l.appendEntry("warn", message, attrs...)
	return nil
}

func (l *Logger) Error(message string, attrs ...slog.Attr) error {
	l.appendEntry("error", message, attrs...)
	return nil
}

// Flush drains the buffer and returns one group attr holding the logger's
// attrs plus every buffered entry.
func (l *Logger) Flush() slog.Attr {
	entries := []Entry{}
	if l.buf != nil {
		l.buf.mu.Lock()
		entries = make([]Entry, len(l.buf.entries))
		copy(entries, l.buf.entries)
		l.buf.entries = l.buf.entries[:0]
		l.buf.seq = 0
		l.buf.mu.Unlock()
	}

	l.mu.Lock()
	attrs := append([]slog.Attr(nil), l.attrs...)
	l.mu.Unlock()

	args := make([]any, 0, len(attrs)+1)
	for _, attr := range attrs {
		args = append(args, attr)
	}
	args = append(args, slog.Any("entries", entriesToPayload(entries)))
	return slog.Group("", args...)
}

func (l *Logger) appendEntry(level, message string, attrs ...slog.Attr) {
	if l.buf == nil {
		return
	}
	l.buf.mu.Lock()
	l.buf.seq++
	entry := Entry{
		Level:   level,
		Message: message,
		At:      time.Now(),
		Seq:     l.buf.seq,
	}
	entry.Attrs = append(entry.Attrs, attrs...)
	l.buf.entries = append(l.buf.entries, entry)
	l.buf.mu.Unlock()
}

func entriesToPayload(entries []Entry) []map[string]any {
	payload := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		record := map[string]any{
			"message": entry.Message,
			"level":   entry.Level,
			"at":      entry.At,
			"seq":     entry.Seq,
		}
		for _, attr := range entry.Attrs {
			if attr.Key == "" {
				continue
			}
			if _, exists := record[attr.Key]; exists {
				continue
			}
			record[attr.Key] = attr.Value.Resolve().Any()
		}
		payload = append(payload, record)
	}
	return payload
}
