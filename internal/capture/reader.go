package capture

import (
	"bufio"
	"encoding/binary"
	"io"
)

// ReaderOptions controls frame decoding.
type ReaderOptions struct {
	DisableChecksum bool
	MaxPayloadSize  int
}

// Reader decodes capture frames sequentially from one segment.
type Reader struct {
	r         *bufio.Reader
	opts      ReaderOptions
	headerBuf []byte
	payload   []byte
}

// NewReader wraps an io.Reader with frame decoding.
func NewReader(r io.Reader, opts ReaderOptions) *Reader {
	return &Reader{
		r:         bufio.NewReader(r),
		opts:      opts,
		headerBuf: make([]byte, frameHeaderSize),
	}
}

// Next returns the next frame and its payload. The payload is only valid
// until the following call to Next. A clean end of stream is io.EOF.
func (r *Reader) Next() (Frame, []byte, error) {
	n, err := io.ReadFull(r.r, r.headerBuf)
	if err != nil {
		if err == io.EOF && n == 0 {
			return Frame{}, nil, io.EOF
		}
		return Frame{}, nil, err
	}

	frame, payloadLen, err := decodeFrameHeader(r.headerBuf)
	if err != nil {
		return frame, nil, err
	}
	if r.opts.MaxPayloadSize > 0 && payloadLen > uint32(r.opts.MaxPayloadSize) {
		return frame, nil, ErrFrameTooLarge
	}

	if payloadLen > 0 {
		if cap(r.payload) < int(payloadLen) {
			r.payload = make([]byte, payloadLen)
		}
		r.payload = r.payload[:payloadLen]
		if _, err := io.ReadFull(r.r, r.payload); err != nil {
			return frame, nil, err
		}
	} else {
		r.payload = r.payload[:0]
	}

	var trailerBuf [frameTrailerSize]byte
	if _, err := io.ReadFull(r.r, trailerBuf[:]); err != nil {
		return frame, nil, err
	}

	if !r.opts.DisableChecksum {
		expected := binary.LittleEndian.Uint32(trailerBuf[:])
		if checksum(r.headerBuf, r.payload) != expected {
			return frame, nil, ErrChecksumMismatch
		}
	}

	return frame, r.payload, nil
}
