package capture

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yanun0323/errors"
)

// PlaybackConfig controls capture replay. Speed 1 replays at recorded
// pace, 2 at double speed; 0 disables pacing entirely.
type PlaybackConfig struct {
	Dir             string
	FilePrefix      string
	Speed           float64
	DisableChecksum bool
	MaxPayloadSize  int
}

func (c PlaybackConfig) withDefaults() PlaybackConfig {
	if c.FilePrefix == "" {
		c.FilePrefix = DefaultFilePrefix
	}
	return c
}

func (c PlaybackConfig) validate() error {
	if c.Dir == "" {
		return errors.New("capture: dir is empty")
	}
	if c.Speed < 0 {
		return errors.New("capture: speed must not be negative")
	}
	if c.MaxPayloadSize < 0 {
		return errors.New("capture: max payload size must not be negative")
	}
	return nil
}

// Clock abstracts pacing sleeps so tests can replay deterministically.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Playback replays capture frames across segments in file order.
type Playback struct {
	cfg   PlaybackConfig
	clock Clock
}

// NewPlayback validates the config and creates a playback engine.
func NewPlayback(cfg PlaybackConfig) (*Playback, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Playback{cfg: cfg, clock: realClock{}}, nil
}

// WithClock swaps the pacing clock.
func (p *Playback) WithClock(clock Clock) *Playback {
	if clock != nil {
		p.clock = clock
	}
	return p
}

// Run replays every frame and calls the handler for each. The payload is
// only valid for the duration of the call.
func (p *Playback) Run(ctx context.Context, handler func(Frame, []byte) error) error {
	if handler == nil {
		return errors.New("capture: playback handler is nil")
	}
	files, err := p.collectFiles()
	if err != nil {
		return err
	}

	var prevWall int64
	for _, path := range files {
		if err := p.playFile(ctx, path, handler, &prevWall); err != nil {
			return err
		}
	}
	return nil
}

func (p *Playback) collectFiles() ([]string, error) {
	entries, err := os.ReadDir(p.cfg.Dir)
	if err != nil {
		return nil, errors.Wrap(err, "read capture dir").With("dir", p.cfg.Dir)
	}
	prefix := p.cfg.FilePrefix + "-"
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".cap") {
			continue
		}
		files = append(files, filepath.Join(p.cfg.Dir, name))
	}
	sort.Strings(files)
	return files, nil
}

func (p *Playback) playFile(ctx context.Context, path string, handler func(Frame, []byte) error, prevWall *int64) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open capture segment").With("path", path)
	}
	defer file.Close()

	reader := NewReader(file, ReaderOptions{
		DisableChecksum: p.cfg.DisableChecksum,
		MaxPayloadSize:  p.cfg.MaxPayloadSize,
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		frame, payload, err := reader.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "read capture segment").With("path", path)
		}

		if err := p.pace(ctx, frame, prevWall); err != nil {
			return err
		}
		if err := handler(frame, payload); err != nil {
			return err
		}
	}
}

func (p *Playback) pace(ctx context.Context, frame Frame, prevWall *int64) error {
	if p.cfg.Speed <= 0 || frame.WallTime <= 0 {
		return nil
	}
	if *prevWall > 0 {
		if delta := frame.WallTime - *prevWall; delta > 0 {
			sleep := time.Duration(float64(delta) / p.cfg.Speed)
			if err := p.clock.Sleep(ctx, sleep); err != nil {
				return err
			}
		}
	}
	*prevWall = frame.WallTime
	return nil
}
