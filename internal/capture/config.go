package capture

import (
	"time"

	"github.com/yanun0323/errors"
)

const (
	DefaultSegmentMaxBytes int64 = 1 << 30
	DefaultQueueSize             = 4096
	DefaultBufferSize            = 256 * 1024
	DefaultFilePrefix            = "feed"
)

// Config controls the capture writer. Zero values take the defaults above;
// zero intervals disable the corresponding ticker.
type Config struct {
	Dir                string
	FilePrefix         string
	SegmentMaxBytes    int64
	SegmentMaxDuration time.Duration
	QueueSize          int
	BufferSize         int
	FlushInterval      time.Duration
	SyncInterval       time.Duration

	// CopyPayload must be set when callers reuse the payload buffer after
	// TryAppend returns.
	CopyPayload bool
}

func (c Config) withDefaults() Config {
	if c.FilePrefix == "" {
		c.FilePrefix = DefaultFilePrefix
	}
	if c.SegmentMaxBytes == 0 {
		c.SegmentMaxBytes = DefaultSegmentMaxBytes
	}
	if c.QueueSize == 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	return c
}

func (c Config) validate() error {
	if c.Dir == "" {
		return errors.New("capture: dir is empty")
	}
	if c.SegmentMaxBytes <= 0 {
		return errors.New("capture: segment max bytes must be positive")
	}
	if c.QueueSize <= 0 {
		return errors.New("capture: queue size must be positive")
	}
	if c.BufferSize <= 0 {
		return errors.New("capture: buffer size must be positive")
	}
	if c.FlushInterval < 0 || c.SyncInterval < 0 {
		return errors.New("capture: intervals must not be negative")
	}
	return nil
}
