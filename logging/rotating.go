package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	logFilePrefix = "portal-"
	logFileSuffix = ".log"

	defaultMaxFileSize = 100 * 1024 * 1024
)

var numberedFilePattern = regexp.MustCompile(`^portal-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingWriter is an io.Writer over weekly log files. A week's file is
// split into numbered parts once it reaches maxFileSize, and files older
// than the retention period are removed once a day.
type RotatingWriter struct {
	dir         string
	retention   time.Duration
	maxFileSize int64

	mu      sync.Mutex
	file    *os.File
	week    string
	size    atomic.Int64
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
}

// NewRotatingWriter opens the current week's file in dir and starts the
// retention cleanup loop. Close must be called to stop it.
func NewRotatingWriter(dir string, retentionWeeks int, maxFileSize int64) (*RotatingWriter, error) {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	rw := &RotatingWriter{
		dir:         dir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		stopped:     make(chan struct{}),
	}

	rw.mu.Lock()
	err := rw.rotate(weekKey(time.Now()), false)
	rw.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}

	go rw.cleanupLoop(24 * time.Hour)
	return rw, nil
}

// weekKey returns the ISO week in YYYY-Www form.
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// Write appends p to the current file, rotating first when the week has
// changed or p would push the file past its size limit.
func (rw *RotatingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	week := weekKey(time.Now())
	full := rw.size.Load()+int64(len(p)) > rw.maxFileSize
	if week != rw.week || full {
		if err := rw.rotate(week, full && week == rw.week); err != nil {
			return 0, err
		}
	}

	if rw.file == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err := rw.file.Write(p)
	rw.size.Add(int64(n))
	return n, err
}

// rotate switches to the file for week. Caller holds mu.
func (rw *RotatingWriter) rotate(week string, forceNext bool) error {
	if rw.file != nil {
		_ = rw.file.Close()
		rw.file = nil
	}

	name := rw.pickFile(week, forceNext)
	path := filepath.Join(rw.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	rw.file = f
	rw.week = week
	rw.size.Store(0)
	if info, err := f.Stat(); err == nil {
		rw.size.Store(info.Size())
	}
	return nil
}

// pickFile returns the base file for week while it has room, otherwise the
// latest numbered part with room, otherwise the next numbered part.
func (rw *RotatingWriter) pickFile(week string, forceNext bool) string {
	base := logFilePrefix + week + logFileSuffix

	highest, lastName, lastSize := rw.highestPart(week)
	if !forceNext {
		if highest == 0 {
			if info, err := os.Stat(filepath.Join(rw.dir, base)); err != nil || info.Size() < rw.maxFileSize {
				return base
			}
		} else if lastSize < rw.maxFileSize {
			return lastName
		}
	}

	return fmt.Sprintf("%s%s_%02d%s", logFilePrefix, week, highest+1, logFileSuffix)
}

func (rw *RotatingWriter) highestPart(week string) (int, string, int64) {
	matches, _ := filepath.Glob(filepath.Join(rw.dir, logFilePrefix+week+"_??"+logFileSuffix))

	highest := 0
	var name string
	var size int64
	for _, match := range matches {
		m := numberedFilePattern.FindStringSubmatch(filepath.Base(match))
		if len(m) < 2 {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		if num <= highest {
			continue
		}
		highest = num
		name = filepath.Base(match)
		size = 0
		if info, err := os.Stat(match); err == nil {
			size = info.Size()
		}
	}
	return highest, name, size
}

// removeExpired deletes portal log files last modified before the
// retention cutoff and returns how many were removed.
func (rw *RotatingWriter) removeExpired(now time.Time) (int, error) {
	entries, err := os.ReadDir(rw.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := now.Add(-rw.retention)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, logFileSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rw.dir, name)); err == nil {
			removed++
		}
	}
	return removed, nil
}

func (rw *RotatingWriter) cleanupLoop(every time.Duration) {
	defer close(rw.stopped)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rw.ctx.Done():
			return
		case now := <-ticker.C:
			if n, err := rw.removeExpired(now); err != nil {
				// stderr, the logger may be writing through us
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "removed %d expired log files\n", n)
			}
		}
	}
}

// Close stops the cleanup loop and closes the current file.
func (rw *RotatingWriter) Close() error {
	rw.cancel()

	select {
	case <-rw.stopped:
	case <-time.After(5 * time.Second):
		fmt.Fprintln(os.Stderr, "log cleanup loop did not stop in time")
	}

	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.file == nil {
		return nil
	}
	err := rw.file.Close()
	rw.file = nil
	return err
}
