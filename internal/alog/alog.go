/*
Package alog is the simulator's asynchronous file logger.

Producers format an entry, stamp it and push it onto a bounded queue; a
single drain goroutine writes entries through a buffered writer to an
append-only file. A full queue drops the entry and counts the drop, so
logging never blocks a latency-sensitive caller.
*/
package alog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"

	"main/internal/spsc"
)

// Level orders log severities.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARNING", "ERROR", "FATAL"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel maps a config string to a level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warning", "warn":
		return LevelWarning
	case "error":
		return LevelError
	case "fatal":
		return LevelFatal
	}
	return LevelInfo
}

const (
	// DefaultQueueSize bounds the number of in-flight entries.
	DefaultQueueSize = 1024
	// DefaultFlushInterval is how long the drain goroutine idles before
	// flushing buffered bytes.
	DefaultFlushInterval = 10 * time.Millisecond

	timeLayout = "2006-01-02 15:04:05.000000"
)

// Config controls the logger. The zero value is completed by withDefaults.
type Config struct {
	// Path is the append-only log file.
	Path string
	// Level is the minimum severity written.
	Level Level
	// QueueSize bounds in-flight entries, rounded up to a power of two.
	QueueSize int
	// FlushInterval is the idle flush period.
	FlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = DefaultFlushInterval
	}
	return c
}

type entry struct {
	level Level
	ts    time.Time
	msg   string
}

// Logger writes stamped log lines through a background drain goroutine.
// Producers may log from any goroutine; the queue's consumer side belongs to
// the drain goroutine alone.
type Logger struct {
	cfg      Config
	minLevel atomic.Int32
	dropped  atomic.Uint64

	pushMu sync.Mutex
	queue  *spsc.Queue[entry]

	f *os.File
	w *bufio.Writer

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup

	scratch []byte
}

// New opens the log file for appending. Start must be called before entries
// reach the file.
func New(cfg Config) (*Logger, error) {
	cfg = cfg.withDefaults()
	f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open log file").With("path", cfg.Path)
	}
	l := &Logger{
		cfg:     cfg,
		queue:   spsc.New[entry](cfg.QueueSize),
		f:       f,
		w:       bufio.NewWriter(f),
		scratch: make([]byte, 0, len(timeLayout)),
	}
	l.minLevel.Store(int32(cfg.Level))
	return l, nil
}

// SetLevel changes the minimum severity at runtime.
func (l *Logger) SetLevel(level Level) { l.minLevel.Store(int32(level)) }

// Enabled reports whether entries at level would be written.
func (l *Logger) Enabled(level Level) bool { return int32(level) >= l.minLevel.Load() }

// Dropped returns how many entries were discarded on a full queue.
func (l *Logger) Dropped() uint64 { return l.dropped.Load() }

// Start launches the drain goroutine. Starting a running logger does
// nothing.
func (l *Logger) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.done = make(chan struct{})
	l.wg.Add(1)
	go l.drain()
}

// Stop drains the queue, flushes buffered bytes and closes the file. A
// stopped logger cannot be restarted.
func (l *Logger) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.done)
	l.mu.Unlock()

	l.wg.Wait()
	l.f.Close()
}

// Log enqueues a pre-formatted message.
func (l *Logger) Log(level Level, msg string) {
	if !l.Enabled(level) {
		return
	}
	l.push(entry{level: level, ts: time.Now(), msg: msg})
}

// Tracef logs at trace level. Formatting is skipped below the threshold.
func (l *Logger) Tracef(format string, args ...any) { l.logf(LevelTrace, format, args...) }

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) { l.logf(LevelInfo, format, args...) }

// Warnf logs at warning level.
func (l *Logger) Warnf(format string, args ...any) { l.logf(LevelWarning, format, args...) }

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}
	l.push(entry{level: level, ts: time.Now(), msg: fmt.Sprintf(format, args...)})
}

func (l *Logger) push(e entry) {
	l.pushMu.Lock()
	ok := l.queue.TryPush(e)
	l.pushMu.Unlock()
	if !ok {
		l.dropped.Add(1)
	}
}

func (l *Logger) drain() {
	defer l.wg.Done()
	for {
		if e, ok := l.queue.TryPop(); ok {
			l.writeEntry(e)
			continue
		}
		l.w.Flush()
		select {
		case <-l.done:
			for {
				e, ok := l.queue.TryPop()
				if !ok {
					break
				}
				l.writeEntry(e)
			}
			l.w.Flush()
			return
		case <-time.After(l.cfg.FlushInterval):
		}
	}
}

func (l *Logger) writeEntry(e entry) {
	l.scratch = e.ts.AppendFormat(l.scratch[:0], timeLayout)
	l.w.Write(l.scratch)
	l.w.WriteString(" [")
	l.w.WriteString(e.level.String())
	l.w.WriteString("] ")
	l.w.WriteString(e.msg)
	l.w.WriteByte('\n')
}
