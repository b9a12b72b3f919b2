package tdf

import "testing"

func TestCursorTakeAdvancesOffset(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4, 5})
	b, err := c.Take(2)
	if err != nil {
		t.Fatalf("Take(2) error = %v", err)
	}
	if len(b) != 2 || b[0] != 1 || b[1] != 2 {
		t.Errorf("Take(2) = %v, want [1 2]", b)
	}
	if c.Offset() != 2 {
		t.Errorf("Offset() = %d, want 2", c.Offset())
	}
	if c.Remaining() != 3 {
		t.Errorf("Remaining() = %d, want 3", c.Remaining())
	}
}

func TestCursorPeekDoesNotAdvance(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3})
	if _, err := c.Peek(2); err != nil {
		t.Fatalf("Peek(2) error = %v", err)
	}
	if c.Offset() != 0 {
		t.Errorf("Offset() after Peek = %d, want 0", c.Offset())
	}
}

func TestCursorSkip(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4})
	if err := c.Skip(3); err != nil {
		t.Fatalf("Skip(3) error = %v", err)
	}
	if c.Offset() != 3 {
		t.Errorf("Offset() = %d, want 3", c.Offset())
	}
}

func TestCursorUnderrun(t *testing.T) {
	c := NewCursor([]byte{1, 2})
	if _, err := c.Take(5); err == nil {
		t.Fatal("Take(5) on 2-byte buffer: want error, got nil")
	}
	if err := c.Skip(5); err == nil {
		t.Fatal("Skip(5) on 2-byte buffer: want error, got nil")
	}
}

func TestCursorIntegerReaders(t *testing.T) {
	c := NewCursor([]byte{
		0xAB,                   // U8
		0x34, 0x12,             // U16LE -> 0x1234
		0x12, 0x34,             // U16BE -> 0x1234
		0x78, 0x56, 0x34, 0x12, // U32LE -> 0x12345678
		0x12, 0x34, 0x56, 0x78, // U32BE -> 0x12345678
		0xFF, 0xFF, 0x7F, // I24LE -> 0x7FFFFF (positive)
		0x01, 0x00, 0x80, // I24LE -> negative (sign bit set)
		0x01, 0x00, 0x00, 0x00, 0x00, 0x01, // U48LE
	})

	u8, err := c.U8()
	if err != nil || u8 != 0xAB {
		t.Fatalf("U8() = %v, %v, want 0xAB, nil", u8, err)
	}
	u16le, err := c.U16LE()
	if err != nil || u16le != 0x1234 {
		t.Fatalf("U16LE() = %v, %v, want 0x1234, nil", u16le, err)
	}
	u16be, err := c.U16BE()
	if err != nil || u16be != 0x1234 {
		t.Fatalf("U16BE() = %v, %v, want 0x1234, nil", u16be, err)
	}
	u32le, err := c.U32LE()
	if err != nil || u32le != 0x12345678 {
		t.Fatalf("U32LE() = %v, %v, want 0x12345678, nil", u32le, err)
	}
	u32be, err := c.U32BE()
	if err != nil || u32be != 0x12345678 {
		t.Fatalf("U32BE() = %v, %v, want 0x12345678, nil", u32be, err)
	}
	i24pos, err := c.I24LE()
	if err != nil || i24pos != 0x7FFFFF {
		t.Fatalf("I24LE() positive = %v, %v, want 0x7FFFFF, nil", i24pos, err)
	}
	i24neg, err := c.I24LE()
	if err != nil {
		t.Fatalf("I24LE() negative error = %v", err)
	}
	if i24neg >= 0 {
		t.Errorf("I24LE() with sign bit set = %d, want negative", i24neg)
	}
	u48, err := c.U48LE()
	want48 := uint64(0x01) | uint64(0x00)<<8 | uint64(0x00)<<16 | uint64(0x00)<<24 | uint64(0x00)<<32 | uint64(0x01)<<40
	if err != nil || u48 != want48 {
		t.Fatalf("U48LE() = %v, %v, want %v, nil", u48, err, want48)
	}
}

func TestCursorU48BE(t *testing.T) {
	c := NewCursor([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})
	got, err := c.U48BE()
	if err != nil {
		t.Fatalf("U48BE() error = %v", err)
	}
	want := uint64(0x010203040506)
	if got != want {
		t.Errorf("U48BE() = 0x%x, want 0x%x", got, want)
	}
}

func TestCursorU64LE(t *testing.T) {
	c := NewCursor([]byte{1, 0, 0, 0, 0, 0, 0, 0})
	got, err := c.U64LE()
	if err != nil || got != 1 {
		t.Fatalf("U64LE() = %v, %v, want 1, nil", got, err)
	}
}
