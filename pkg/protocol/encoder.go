package protocol

import "sort"

// Encoder is a binary encoder that appends data to an internal buffer.
// It is designed for building one message payload without intermediate
// allocations in the hot path.
type Encoder struct {
	buf []byte
}

// NewEncoder creates a new encoder with a default initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{
		buf: make([]byte, 0, 256),
	}
}

// NewEncoderWithCap creates a new encoder with the specified initial capacity.
func NewEncoderWithCap(cap int) *Encoder {
	return &Encoder{
		buf: make([]byte, 0, cap),
	}
}

// Reset resets the encoder to empty state, reusing the underlying buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The returned slice is valid until
// the next call to Reset or any Write method.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes currently encoded.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteByte appends a single byte.
// Note: this intentionally doesn't return error (unlike io.ByteWriter)
// because the buffer is unbounded and can always append.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteBytes appends raw bytes.
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteUint16 appends a uint16 in big-endian byte order.
func (e *Encoder) WriteUint16(v uint16) {
	e.buf = append(e.buf, byte(v>>8), byte(v))
}

// WriteUint32 appends a uint32 in big-endian byte order.
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = append(e.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteString appends a string with a 2-byte big-endian length prefix.
func (e *Encoder) WriteString(s string) {
	e.WriteUint16(uint16(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteName appends a string with a 1-byte length prefix. Only the in-room
// display name field uses this form; names longer than 255 bytes are
// truncated to keep the prefix honest.
func (e *Encoder) WriteName(s string) {
	if len(s) > 255 {
		s = s[:255]
	}
	e.WriteByte(byte(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteValues appends data-object key/value groups. When keys is nil or
// empty, every key in values is written in ascending key order so that
// identical logical input produces identical bytes. Otherwise only the
// listed keys are written, in the given order; keys absent from values are
// skipped.
func (e *Encoder) WriteValues(values map[uint16][]byte, keys []uint16) {
	if len(keys) == 0 {
		ordered := make([]uint16, 0, len(values))
		for k := range values {
			ordered = append(ordered, k)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
		keys = ordered
	}
	for _, k := range keys {
		v, ok := values[k]
		if !ok {
			continue
		}
		e.WriteUint16(k)
		e.WriteUint32(uint32(len(v)))
		e.buf = append(e.buf, v...)
	}
}
