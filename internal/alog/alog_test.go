package alog

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempLogger(t *testing.T, cfg Config) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sim.log")
	cfg.Path = path
	l, err := New(cfg)
	require.NoError(t, err)
	return l, path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

var lineRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{6} \[[A-Z]+\] .+$`)

func TestWriteAndStop(t *testing.T) {
	l, path := tempLogger(t, Config{Level: LevelDebug})
	l.Start()
	l.Infof("hello %d", 42)
	l.Errorf("boom: %s", "cause")
	l.Stop()

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Regexp(t, lineRe, lines[0])
	assert.Contains(t, lines[0], "[INFO] hello 42")
	assert.Contains(t, lines[1], "[ERROR] boom: cause")
	assert.Zero(t, l.Dropped())
}

func TestLevelFiltering(t *testing.T) {
	l, path := tempLogger(t, Config{Level: LevelWarning})

	assert.False(t, l.Enabled(LevelInfo))
	assert.True(t, l.Enabled(LevelError))

	l.Start()
	l.Debugf("hidden")
	l.Infof("hidden")
	l.Warnf("kept")

	l.SetLevel(LevelTrace)
	l.Tracef("kept after SetLevel")
	l.Stop()

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[WARNING] kept")
	assert.Contains(t, lines[1], "[TRACE] kept after SetLevel")
}

func TestFullQueueDropsAndCounts(t *testing.T) {
	l, path := tempLogger(t, Config{QueueSize: 4})
	// Not started: the queue fills and the fifth entry is discarded.
	for i := 0; i < 5; i++ {
		l.Infof("entry %d", i)
	}
	assert.Equal(t, uint64(1), l.Dropped())

	l.Start()
	l.Stop()
	lines := readLines(t, path)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], "entry 3")
}

func TestStopDrainsQueuedEntries(t *testing.T) {
	l, path := tempLogger(t, Config{QueueSize: 256})
	for i := 0; i < 100; i++ {
		l.Infof("entry %d", i)
	}
	l.Start()
	l.Stop()

	lines := readLines(t, path)
	assert.Len(t, lines, 100)
	assert.Contains(t, lines[99], "entry 99")
}

func TestStartStopIdempotent(t *testing.T) {
	l, _ := tempLogger(t, Config{})
	l.Start()
	l.Start()
	l.Stop()
	l.Stop()
}

func TestNewRejectsUnwritablePath(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "missing", "sim.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"trace", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"WARN", LevelWarning},
		{"warning", LevelWarning},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "UNKNOWN", Level(99).String())
}
