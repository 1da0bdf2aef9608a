package protocol

import "errors"

// Frame constants.
const (
	// FrameHeaderSize is the size of the length prefix in bytes.
	FrameHeaderSize = 4

	// DefaultMaxFrameSize is the default ceiling for a single frame payload.
	DefaultMaxFrameSize = 64 * 1024
)

// Framing errors.
var (
	ErrFrameTooLarge = errors.New("protocol: frame payload too large")
)

// EncodeFrame prefixes a payload with its 4-byte big-endian length.
func EncodeFrame(payload []byte) []byte {
	buf := make([]byte, FrameHeaderSize+len(payload))
	n := uint32(len(payload))
	buf[0] = byte(n >> 24)
	buf[1] = byte(n >> 16)
	buf[2] = byte(n >> 8)
	buf[3] = byte(n)
	copy(buf[FrameHeaderSize:], payload)
	return buf
}

// FrameBuffer reassembles length-prefixed frames from an arbitrary byte
// stream. Inbound chunks may carry partial frames or several frames at once;
// Append buffers what arrived and yields every frame that is complete.
type FrameBuffer struct {
	buf []byte

	// MaxFrameSize caps the declared payload length. Zero means
	// DefaultMaxFrameSize.
	MaxFrameSize int
}

// Append adds inbound bytes and returns all complete frame payloads, in
// order. Remaining partial data stays buffered for the next call. A declared
// payload length above the cap returns ErrFrameTooLarge; the buffer is then
// poisoned and the owning connection must be torn down.
func (fb *FrameBuffer) Append(data []byte) ([][]byte, error) {
	fb.buf = append(fb.buf, data...)

	limit := fb.MaxFrameSize
	if limit <= 0 {
		limit = DefaultMaxFrameSize
	}

	var frames [][]byte
	for len(fb.buf) >= FrameHeaderSize {
		length := int(fb.buf[0])<<24 | int(fb.buf[1])<<16 | int(fb.buf[2])<<8 | int(fb.buf[3])
		if length > limit {
			return frames, ErrFrameTooLarge
		}
		if len(fb.buf) < FrameHeaderSize+length {
			break
		}
		payload := make([]byte, length)
		copy(payload, fb.buf[FrameHeaderSize:FrameHeaderSize+length])
		frames = append(frames, payload)

		// Compact the remainder to the front.
		rest := len(fb.buf) - FrameHeaderSize - length
		copy(fb.buf, fb.buf[FrameHeaderSize+length:])
		fb.buf = fb.buf[:rest]
	}
	return frames, nil
}

// Buffered returns the number of bytes waiting for frame completion.
func (fb *FrameBuffer) Buffered() int {
	return len(fb.buf)
}
