package binary

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	_, err := r.ReadByte()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestReaderReadBytesAndSkip(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes: got %v, want [1 2 3]", got)
	}
	if err := r.Skip(1); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len: got %d, want 1", r.Len())
	}
	if _, err := r.ReadBytes(10); err == nil {
		t.Error("expected error for reading past end")
	}
	if err := r.Skip(-1); err == nil {
		t.Error("expected error for negative skip")
	}
	if r.Position() != 4 {
		t.Errorf("Position after failed reads: got %d, want 4", r.Position())
	}
}

func TestReaderReadU32(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		got, err := NewReader(tt.encoded).ReadU32()
		if err != nil {
			t.Errorf("ReadU32(%v): %v", tt.encoded, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadU32(%v) = %d, want %d", tt.encoded, got, tt.want)
		}
	}

	_, err := NewReader([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01}).ReadU32()
	if !errors.Is(err, ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU32(624485)
	w.WriteU64(1 << 40)
	w.WriteS64(-129)
	w.WriteS64(1<<62 - 1)
	w.WriteName("GLib")
	w.WriteBool(true)
	w.WriteU32LE(0xCAFEBABE)
	w.Byte(0x42)

	r := NewReader(w.Bytes())
	if v, err := r.ReadU32(); err != nil || v != 624485 {
		t.Errorf("ReadU32 = %d, %v", v, err)
	}
	if v, err := r.ReadU64(); err != nil || v != 1<<40 {
		t.Errorf("ReadU64 = %d, %v", v, err)
	}
	if v, err := r.ReadS64(); err != nil || v != -129 {
		t.Errorf("ReadS64 = %d, %v", v, err)
	}
	if v, err := r.ReadS64(); err != nil || v != 1<<62-1 {
		t.Errorf("ReadS64 = %d, %v", v, err)
	}
	if v, err := r.ReadName(); err != nil || v != "GLib" {
		t.Errorf("ReadName = %q, %v", v, err)
	}
	if v, err := r.ReadBool(); err != nil || !v {
		t.Errorf("ReadBool = %v, %v", v, err)
	}
	if v, err := r.ReadU32LE(); err != nil || v != 0xCAFEBABE {
		t.Errorf("ReadU32LE = 0x%x, %v", v, err)
	}
	if v, err := r.ReadByte(); err != nil || v != 0x42 {
		t.Errorf("ReadByte = 0x%x, %v", v, err)
	}
	if r.Len() != 0 {
		t.Errorf("%d bytes left over", r.Len())
	}
}

func TestReaderInvalid(t *testing.T) {
	if _, err := NewReader([]byte{0x02}).ReadBool(); err == nil {
		t.Error("expected error for boolean byte 2")
	}
	if _, err := NewReader([]byte{0x02, 0xff, 0xfe}).ReadName(); err == nil {
		t.Error("expected error for invalid UTF-8 name")
	}
}

func TestParseError(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, _ = r.ReadByte()
	err := r.WrapError("directory", io.ErrUnexpectedEOF)

	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatal("expected ParseError")
	}
	if pe.Position != 1 || pe.Section != "directory" {
		t.Errorf("got %+v", pe)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("ParseError should unwrap")
	}
}
