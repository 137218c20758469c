package capture

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/yanun0323/errors"
)

const (
	frameVersion     uint16 = 1
	frameHeaderSize         = 32
	frameTrailerSize        = 4
)

const maxPayloadLen = uint64(^uint32(0))

var (
	frameMagic = [4]byte{'F', 'C', 'A', 'P'}
	crcTable   = crc32.MakeTable(crc32.Castagnoli)
)

var (
	ErrInvalidMagic       = errors.New("capture: invalid magic")
	ErrUnsupportedVersion = errors.New("capture: unsupported frame version")
	ErrInvalidHeader      = errors.New("capture: invalid frame header")
	ErrChecksumMismatch   = errors.New("capture: checksum mismatch")
	ErrFrameTooLarge      = errors.New("capture: frame too large")
)

// Frame describes one captured batch of encoded market data messages.
// Count is the number of messages in the payload; WallTime is the capture
// time in Unix nanoseconds and drives replay pacing.
type Frame struct {
	Seq      uint64
	WallTime int64
	Count    uint32
}

// Frame layout, little-endian:
//
//	0:4   magic "FCAP"
//	4:6   frame version
//	6:8   header size
//	8:12  message count
//	12:16 payload length
//	16:24 sequence
//	24:32 wall time (unix nanoseconds)
//
// The payload follows the header, then a CRC-32C of header plus payload.
func encodeFrameHeader(dst []byte, f Frame, payloadLen int) {
	_ = dst[frameHeaderSize-1]
	copy(dst[0:4], frameMagic[:])
	binary.LittleEndian.PutUint16(dst[4:6], frameVersion)
	binary.LittleEndian.PutUint16(dst[6:8], uint16(frameHeaderSize))
	binary.LittleEndian.PutUint32(dst[8:12], f.Count)
	binary.LittleEndian.PutUint32(dst[12:16], uint32(payloadLen))
	binary.LittleEndian.PutUint64(dst[16:24], f.Seq)
	binary.LittleEndian.PutUint64(dst[24:32], uint64(f.WallTime))
}

func decodeFrameHeader(src []byte) (Frame, uint32, error) {
	if len(src) < frameHeaderSize {
		return Frame{}, 0, ErrInvalidHeader
	}
	if !bytes.Equal(src[0:4], frameMagic[:]) {
		return Frame{}, 0, ErrInvalidMagic
	}
	if ver := binary.LittleEndian.Uint16(src[4:6]); ver != frameVersion {
		return Frame{}, 0, ErrUnsupportedVersion
	}
	if size := binary.LittleEndian.Uint16(src[6:8]); size != frameHeaderSize {
		return Frame{}, 0, ErrInvalidHeader
	}
	f := Frame{
		Count:    binary.LittleEndian.Uint32(src[8:12]),
		Seq:      binary.LittleEndian.Uint64(src[16:24]),
		WallTime: int64(binary.LittleEndian.Uint64(src[24:32])),
	}
	payloadLen := binary.LittleEndian.Uint32(src[12:16])
	return f, payloadLen, nil
}

func checksum(header, payload []byte) uint32 {
	crc := crc32.Update(0, crcTable, header)
	return crc32.Update(crc, crcTable, payload)
}
