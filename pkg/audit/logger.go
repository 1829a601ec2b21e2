package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metalfabric/swadm/pkg/util"
)

// Logger is the audit trail surface: record events, query history.
type Logger interface {
	Log(event *Event) error
	Query(filter Filter) ([]*Event, error)
	Close() error
}

// RotationConfig bounds the trail on disk.
type RotationConfig struct {
	MaxSize    int64 // bytes in the live file before it is rotated out
	MaxBackups int   // rotated files kept; older ones are removed
}

// FileLogger appends events to a JSON-lines file, rotating it out once
// it grows past the configured size. Queries read the rotated files too,
// oldest first, so history spans rotation.
type FileLogger struct {
	mu       sync.RWMutex
	path     string
	file     *os.File
	enc      *json.Encoder
	rotation RotationConfig
}

func NewFileLogger(path string, rotation RotationConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	l := &FileLogger{path: path, rotation: rotation}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *FileLogger) open() error {
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	l.file = file
	l.enc = json.NewEncoder(file)
	return nil
}

// Log appends the event, rotating the live file first when it is full.
func (l *FileLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.rotation.MaxSize > 0 {
		if info, err := l.file.Stat(); err == nil && info.Size() >= l.rotation.MaxSize {
			if err := l.rotate(); err != nil {
				return fmt.Errorf("rotating audit log: %w", err)
			}
		}
	}
	return l.enc.Encode(event)
}

// Query returns matching events in write order, rotated files included.
// Offset and Limit apply after filtering.
func (l *FileLogger) Query(filter Filter) ([]*Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var events []*Event
	for _, path := range append(l.backups(), l.path) {
		var err error
		events, err = scanEvents(path, filter, events)
		if err != nil {
			return nil, err
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(events) {
			events = nil
		} else {
			events = events[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(events) {
		events = events[:filter.Limit]
	}
	return events, nil
}

// scanEvents appends the matching events from one trail file. A missing
// file contributes nothing; malformed entries are skipped with a warning
// so one corrupt line cannot hide the rest of the trail.
func scanEvents(path string, filter Filter, events []*Event) ([]*Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return events, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		var event Event
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			util.Warnf("audit: skipping malformed entry at %s:%d: %v", path, line, err)
			continue
		}
		if filter.matches(&event) {
			events = append(events, &event)
		}
	}
	return events, scanner.Err()
}

// backups lists the rotated trail files, oldest first. The timestamped
// suffixes sort lexically in write order.
func (l *FileLogger) backups() []string {
	matches, err := filepath.Glob(l.path + ".*")
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return err
	}

	// Timestamps have second resolution; a sequence suffix keeps rapid
	// rotations from overwriting each other.
	stamp := time.Now().Format("20060102-150405")
	rotated := l.path + "." + stamp
	for seq := 1; ; seq++ {
		if _, err := os.Stat(rotated); os.IsNotExist(err) {
			break
		}
		rotated = fmt.Sprintf("%s.%s-%d", l.path, stamp, seq)
	}
	if err := os.Rename(l.path, rotated); err != nil {
		return err
	}
	if err := l.open(); err != nil {
		return err
	}

	if n := l.rotation.MaxBackups; n > 0 {
		backups := l.backups()
		for len(backups) > n {
			os.Remove(backups[0])
			backups = backups[1:]
		}
	}
	return nil
}

// Close closes the live trail file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// loggerHolder wraps a Logger so atomic.Value always stores the same concrete type.
type loggerHolder struct {
	logger Logger
}

var defaultLogger atomic.Value

// SetDefaultLogger sets the default audit logger
func SetDefaultLogger(logger Logger) {
	defaultLogger.Store(loggerHolder{logger: logger})
}

func getDefaultLogger() Logger {
	v := defaultLogger.Load()
	if v == nil {
		return nil
	}
	return v.(loggerHolder).logger
}

// Log logs an event using the default logger
func Log(event *Event) error {
	l := getDefaultLogger()
	if l == nil {
		return nil // No-op if no logger configured
	}
	return l.Log(event)
}

// Query queries events from the default logger
func Query(filter Filter) ([]*Event, error) {
	l := getDefaultLogger()
	if l == nil {
		return []*Event{}, nil
	}
	return l.Query(filter)
}
