package decode

import "testing"

func TestDiffWidths(t *testing.T) {
	cases := []struct {
		diffType        uint8
		baseW, deltaW   int
		wantErr         bool
	}{
		{1, 2, 1, false},
		{2, 4, 1, false},
		{3, 4, 2, false},
		{0, 0, 0, true},
		{4, 0, 0, true},
	}
	for _, tc := range cases {
		base, delta, err := diffWidths(tc.diffType)
		if tc.wantErr {
			if err == nil {
				t.Errorf("diffWidths(%d): want error, got nil", tc.diffType)
			}
			continue
		}
		if err != nil {
			t.Errorf("diffWidths(%d) error = %v", tc.diffType, err)
		}
		if base != tc.baseW || delta != tc.deltaW {
			t.Errorf("diffWidths(%d) = (%d, %d), want (%d, %d)", tc.diffType, base, delta, tc.baseW, tc.deltaW)
		}
	}
}

func TestWrapAdd(t *testing.T) {
	if got := wrapAdd(100, 27, 1); got != 127 {
		t.Errorf("wrapAdd(100, 27, 1) = %d, want 127", got)
	}
	// int16 overflow wraps.
	sum := int64(32760 + 100)
	if got := wrapAdd(32760, 100, 2); got != int64(int16(sum)) {
		t.Errorf("wrapAdd int16 overflow = %d, want %d", got, int64(int16(sum)))
	}
}

type fakeCursor struct {
	buf []byte
	off int
}

func (c *fakeCursor) Take(n int) ([]byte, error) {
	if c.off+n > len(c.buf) {
		return nil, errUnderrun
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

var errUnderrun = errShort("decode test: cursor underrun")

type errShort string

func (e errShort) Error() string { return string(e) }

func TestReconstructDiffOneFieldWidth1(t *testing.T) {
	// diff_type 1: base i16, delta i8. One field, base=10, two deltas: +5, -3.
	buf := []byte{
		10, 0, // base i16LE = 10
		5,          // delta[0] = +5
		0xFD,       // delta[1] = -3 (two's complement)
	}
	cur := &fakeCursor{buf: buf}
	out, err := reconstructDiff(cur, 2, 2, 2, 1)
	if err != nil {
		t.Fatalf("reconstructDiff error = %v", err)
	}
	// Expect 3 samples (base + 2 deltas) of width 2: 10, 15, 12.
	want := []byte{10, 0, 15, 0, 12, 0}
	if len(out) != len(want) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d (full: %v)", i, out[i], want[i], out)
		}
	}
}

func TestReconstructDiffRejectsNonMultipleSize(t *testing.T) {
	cur := &fakeCursor{buf: []byte{1, 2, 3}}
	if _, err := reconstructDiff(cur, 3, 1, 2, 1); err == nil {
		t.Fatal("reconstructDiff with size not a multiple of baseWidth: want error, got nil")
	}
}
