package protocol

import (
	"errors"
	"io"
)

// Allocation limits to prevent oversized reads via malicious length prefixes.
const (
	// MaxValueSize is the maximum size of a single data-object value (4MB).
	MaxValueSize = 4 * 1024 * 1024
)

// Common decoding errors.
var (
	ErrValueTooLarge = errors.New("protocol: value size exceeds limit")
	ErrEmptyPayload  = errors.New("protocol: empty payload")
)

// Decoder is a binary decoder that reads from a byte buffer.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a new decoder from the given byte slice.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF returns true if all bytes have been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadUint16 reads a uint16 in big-endian byte order.
func (d *Decoder) ReadUint16() (uint16, error) {
	if d.pos+2 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint16(d.buf[d.pos])<<8 | uint16(d.buf[d.pos+1])
	d.pos += 2
	return v, nil
}

// ReadUint32 reads a uint32 in big-endian byte order.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 |
		uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

// ReadString reads a string with a 2-byte big-endian length prefix.
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUint16()
	if err != nil {
		return "", err
	}
	if int(length) > d.Remaining() {
		return "", io.ErrUnexpectedEOF
	}
	s := string(d.buf[d.pos : d.pos+int(length)])
	d.pos += int(length)
	return s, nil
}

// ReadName reads a string with a 1-byte length prefix.
func (d *Decoder) ReadName() (string, error) {
	length, err := d.ReadByte()
	if err != nil {
		return "", err
	}
	if int(length) > d.Remaining() {
		return "", io.ErrUnexpectedEOF
	}
	s := string(d.buf[d.pos : d.pos+int(length)])
	d.pos += int(length)
	return s, nil
}

// ReadRest returns a copy of all unread bytes and advances to EOF.
func (d *Decoder) ReadRest() []byte {
	b := make([]byte, d.Remaining())
	copy(b, d.buf[d.pos:])
	d.pos = len(d.buf)
	return b
}

// KeyValue is one data-object key/value pair in wire order.
type KeyValue struct {
	Key   uint16
	Value []byte
}

// ReadValues reads [u16 key][u32 length][bytes] groups until the end of the
// buffer. An already-empty tail yields an empty slice. Values are copied and
// safe to retain. A value length exceeding MaxValueSize or overrunning the
// buffer fails the whole read.
func (d *Decoder) ReadValues() ([]KeyValue, error) {
	var pairs []KeyValue
	for !d.EOF() {
		key, err := d.ReadUint16()
		if err != nil {
			return nil, err
		}
		length, err := d.ReadUint32()
		if err != nil {
			return nil, err
		}
		if length > MaxValueSize {
			return nil, ErrValueTooLarge
		}
		if int(length) > d.Remaining() {
			return nil, io.ErrUnexpectedEOF
		}
		v := make([]byte, length)
		copy(v, d.buf[d.pos:d.pos+int(length)])
		d.pos += int(length)
		pairs = append(pairs, KeyValue{Key: key, Value: v})
	}
	return pairs, nil
}
