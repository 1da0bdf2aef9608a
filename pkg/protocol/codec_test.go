package protocol

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestEncoderPrimitives(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0x01)
	e.WriteUint16(0x0203)
	e.WriteUint32(0x04050607)
	e.WriteString("ab")
	e.WriteName("c")

	want := []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x00, 0x02, 'a', 'b',
		0x01, 'c',
	}
	if !bytes.Equal(e.Bytes(), want) {
		t.Errorf("encoded = %v, want %v", e.Bytes(), want)
	}
}

func TestWriteNameTruncatesLongNames(t *testing.T) {
	e := NewEncoder()
	e.WriteName(strings.Repeat("x", 300))

	got := e.Bytes()
	if got[0] != 255 {
		t.Fatalf("length prefix = %d, want 255", got[0])
	}
	if len(got) != 1+255 {
		t.Fatalf("encoded %d bytes, want %d", len(got), 1+255)
	}

	d := NewDecoder(got)
	name, err := d.ReadName()
	if err != nil {
		t.Fatalf("ReadName: %v", err)
	}
	if name != strings.Repeat("x", 255) {
		t.Errorf("name length = %d, want 255", len(name))
	}
}

func TestDecoderPrimitives(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0xFF)
	e.WriteUint16(515)
	e.WriteUint32(70000)
	e.WriteString("hello")
	e.WriteName("hi")

	d := NewDecoder(e.Bytes())

	if b, err := d.ReadByte(); err != nil || b != 0xFF {
		t.Fatalf("ReadByte() = %v, %v", b, err)
	}
	if v, err := d.ReadUint16(); err != nil || v != 515 {
		t.Fatalf("ReadUint16() = %v, %v", v, err)
	}
	if v, err := d.ReadUint32(); err != nil || v != 70000 {
		t.Fatalf("ReadUint32() = %v, %v", v, err)
	}
	if s, err := d.ReadString(); err != nil || s != "hello" {
		t.Fatalf("ReadString() = %q, %v", s, err)
	}
	if s, err := d.ReadName(); err != nil || s != "hi" {
		t.Fatalf("ReadName() = %q, %v", s, err)
	}
	if !d.EOF() {
		t.Errorf("decoder not at EOF, %d bytes remaining", d.Remaining())
	}
}

func TestDecoderTruncated(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		read func(d *Decoder) error
	}{
		{
			name: "uint16_short",
			buf:  []byte{0x01},
			read: func(d *Decoder) error { _, err := d.ReadUint16(); return err },
		},
		{
			name: "uint32_short",
			buf:  []byte{0x01, 0x02, 0x03},
			read: func(d *Decoder) error { _, err := d.ReadUint32(); return err },
		},
		{
			name: "string_body_short",
			buf:  []byte{0x00, 0x05, 'a', 'b'},
			read: func(d *Decoder) error { _, err := d.ReadString(); return err },
		},
		{
			name: "name_body_short",
			buf:  []byte{0x03, 'a'},
			read: func(d *Decoder) error { _, err := d.ReadName(); return err },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.read(NewDecoder(tc.buf))
			if !errors.Is(err, io.ErrUnexpectedEOF) {
				t.Errorf("error = %v, want io.ErrUnexpectedEOF", err)
			}
		})
	}
}

func TestValuesRoundTrip(t *testing.T) {
	values := map[uint16][]byte{
		1: {0x10},
		2: {0x20, 0x21},
		7: {},
	}

	e := NewEncoder()
	e.WriteValues(values, nil)

	pairs, err := NewDecoder(e.Bytes()).ReadValues()
	if err != nil {
		t.Fatalf("ReadValues() error = %v", err)
	}
	if len(pairs) != len(values) {
		t.Fatalf("decoded %d pairs, want %d", len(pairs), len(values))
	}
	// All-key encodes are sorted ascending.
	wantOrder := []uint16{1, 2, 7}
	for i, p := range pairs {
		if p.Key != wantOrder[i] {
			t.Errorf("pair %d key = %d, want %d", i, p.Key, wantOrder[i])
		}
		if !bytes.Equal(p.Value, values[p.Key]) {
			t.Errorf("key %d value = %v, want %v", p.Key, p.Value, values[p.Key])
		}
	}
}

func TestValuesDeterministicEncoding(t *testing.T) {
	values := map[uint16][]byte{5: {1}, 3: {2}, 9: {3}, 1: {4}}

	e1 := NewEncoder()
	e1.WriteValues(values, nil)
	for i := 0; i < 16; i++ {
		e2 := NewEncoder()
		e2.WriteValues(values, nil)
		if !bytes.Equal(e1.Bytes(), e2.Bytes()) {
			t.Fatal("identical logical input produced different bytes")
		}
	}
}

func TestValuesKeyFilter(t *testing.T) {
	values := map[uint16][]byte{1: []byte("a"), 2: []byte("b")}

	e := NewEncoder()
	e.WriteValues(values, []uint16{1})

	pairs, err := NewDecoder(e.Bytes()).ReadValues()
	if err != nil {
		t.Fatalf("ReadValues() error = %v", err)
	}
	if len(pairs) != 1 || pairs[0].Key != 1 || !bytes.Equal(pairs[0].Value, []byte("a")) {
		t.Errorf("filtered pairs = %v, want only key 1", pairs)
	}
}

func TestValuesTruncated(t *testing.T) {
	// Declared value length overruns the buffer.
	buf := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 'a', 'b'}
	_, err := NewDecoder(buf).ReadValues()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestValuesTooLarge(t *testing.T) {
	buf := []byte{0x00, 0x01, 0xFF, 0xFF, 0xFF, 0xFF}
	_, err := NewDecoder(buf).ReadValues()
	if !errors.Is(err, ErrValueTooLarge) {
		t.Errorf("error = %v, want ErrValueTooLarge", err)
	}
}
