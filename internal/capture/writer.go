/*
Package capture persists the encoded market data stream to segmented files
and plays it back for deterministic replays. Each appended batch becomes a
checksummed frame; segments rotate by size or age. Writing is asynchronous
behind a bounded queue so the hot path never blocks on disk.
*/
package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/errors"
)

var (
	ErrQueueFull      = errors.New("capture: queue full")
	ErrClosed         = errors.New("capture: writer closed")
	ErrNotStarted     = errors.New("capture: writer not started")
	ErrAlreadyStarted = errors.New("capture: writer already started")
)

type frameRequest struct {
	frame   Frame
	payload []byte
}

// Writer appends frames to capture segments from a buffered queue. Start
// it once; Close flushes and reports the first write error, if any.
type Writer struct {
	cfg Config
	ch  chan frameRequest
	wg  sync.WaitGroup
	err atomic.Value

	started atomic.Bool
	closed  atomic.Bool
}

// NewWriter validates the config and ensures the target directory exists.
func NewWriter(cfg Config) (*Writer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create capture dir").With("dir", cfg.Dir)
	}
	return &Writer{
		cfg: cfg,
		ch:  make(chan frameRequest, cfg.QueueSize),
	}, nil
}

// Start runs the writer loop in a new goroutine. Cancelling ctx stops the
// loop after a non-blocking drain; Close remains responsible for flushing.
func (w *Writer) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
	return nil
}

// Close stops the writer, flushes buffered frames and syncs the open
// segment.
func (w *Writer) Close() error {
	if w.closed.CompareAndSwap(false, true) {
		close(w.ch)
	}
	w.wg.Wait()
	return w.Err()
}

// Err returns the first error observed by the writer loop, if any.
func (w *Writer) Err() error {
	if v := w.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// TryAppend enqueues a frame without blocking. A zero WallTime is stamped
// with the current time.
func (w *Writer) TryAppend(f Frame, payload []byte) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if !w.started.Load() {
		return ErrNotStarted
	}
	if err := w.Err(); err != nil {
		return err
	}
	if uint64(len(payload)) > maxPayloadLen {
		return ErrFrameTooLarge
	}
	if f.WallTime == 0 {
		f.WallTime = time.Now().UTC().UnixNano()
	}
	if w.cfg.CopyPayload && len(payload) > 0 {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		payload = cp
	}

	select {
	case w.ch <- frameRequest{frame: f, payload: payload}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (w *Writer) run(ctx context.Context) {
	var (
		seg         *segment
		segSeq      uint64
		headerBuf   = make([]byte, frameHeaderSize)
		trailerBuf  [frameTrailerSize]byte
		flushC      <-chan time.Time
		syncC       <-chan time.Time
		flushTicker *time.Ticker
		syncTicker  *time.Ticker
	)

	if w.cfg.FlushInterval > 0 {
		flushTicker = time.NewTicker(w.cfg.FlushInterval)
		flushC = flushTicker.C
	}
	if w.cfg.SyncInterval > 0 {
		syncTicker = time.NewTicker(w.cfg.SyncInterval)
		syncC = syncTicker.C
	}

	defer func() {
		if flushTicker != nil {
			flushTicker.Stop()
		}
		if syncTicker != nil {
			syncTicker.Stop()
		}
		if err := seg.close(); err != nil && w.Err() == nil {
			w.setErr(err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.drain(&seg, &segSeq, headerBuf, &trailerBuf)
			return
		case req, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.writeFrame(&seg, &segSeq, headerBuf, &trailerBuf, req); err != nil {
				w.setErr(err)
				return
			}
		case <-flushC:
			if err := seg.flush(); err != nil {
				w.setErr(err)
				return
			}
		case <-syncC:
			if err := seg.sync(); err != nil {
				w.setErr(err)
				return
			}
		}
	}
}

func (w *Writer) drain(seg **segment, segSeq *uint64, headerBuf []byte, trailerBuf *[frameTrailerSize]byte) {
	for {
		select {
		case req, ok := <-w.ch:
			if !ok {
				return
			}
			if err := w.writeFrame(seg, segSeq, headerBuf, trailerBuf, req); err != nil {
				w.setErr(err)
				return
			}
		default:
			return
		}
	}
}

func (w *Writer) writeFrame(seg **segment, segSeq *uint64, headerBuf []byte, trailerBuf *[frameTrailerSize]byte, req frameRequest) error {
	now := time.Now().UTC()
	frameSize := int64(frameHeaderSize + len(req.payload) + frameTrailerSize)
	if w.shouldRotate(*seg, now, frameSize) {
		if err := (*seg).close(); err != nil {
			return err
		}
		opened, err := w.openSegment(segSeq, now)
		if err != nil {
			return err
		}
		*seg = opened
	}

	encodeFrameHeader(headerBuf, req.frame, len(req.payload))
	binary.LittleEndian.PutUint32(trailerBuf[:], checksum(headerBuf, req.payload))

	if _, err := (*seg).buf.Write(headerBuf); err != nil {
		return err
	}
	if len(req.payload) > 0 {
		if _, err := (*seg).buf.Write(req.payload); err != nil {
			return err
		}
	}
	if _, err := (*seg).buf.Write(trailerBuf[:]); err != nil {
		return err
	}

	(*seg).size += frameSize
	return nil
}

func (w *Writer) shouldRotate(seg *segment, now time.Time, nextSize int64) bool {
	if seg == nil {
		return true
	}
	if w.cfg.SegmentMaxBytes > 0 && seg.size+nextSize > w.cfg.SegmentMaxBytes {
		return true
	}
	if w.cfg.SegmentMaxDuration > 0 && now.Sub(seg.openedAt) >= w.cfg.SegmentMaxDuration {
		return true
	}
	return false
}

func (w *Writer) openSegment(segSeq *uint64, now time.Time) (*segment, error) {
	ts := now.Format("20060102-150405")
	for {
		*segSeq = *segSeq + 1
		name := fmt.Sprintf("%s-%s-%06d.cap", w.cfg.FilePrefix, ts, *segSeq)
		path := filepath.Join(w.cfg.Dir, name)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
		if err != nil {
			if os.IsExist(err) {
				continue
			}
			return nil, errors.Wrap(err, "open capture segment").With("path", path)
		}
		return &segment{
			file:     file,
			buf:      bufio.NewWriterSize(file, w.cfg.BufferSize),
			openedAt: now,
		}, nil
	}
}

func (w *Writer) setErr(err error) {
	if err == nil {
		return
	}
	if w.err.Load() != nil {
		return
	}
	w.err.Store(err)
}

type segment struct {
	file     *os.File
	buf      *bufio.Writer
	size     int64
	openedAt time.Time
}

func (s *segment) flush() error {
	if s == nil {
		return nil
	}
	return s.buf.Flush()
}

func (s *segment) sync() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *segment) close() error {
	if s == nil {
		return nil
	}
	if err := s.buf.Flush(); err != nil {
		_ = s.file.Close()
		return err
	}
	if err := s.file.Sync(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
