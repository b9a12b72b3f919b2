package decode

import (
	"encoding/binary"
	"fmt"
)

// diffWidths returns the byte widths of one base-array element and of one
// delta for a given diff_type (spec §4.3): 1 -> i16 base/i8 delta, 2 -> i32 base/i8 delta,
// 3 -> i32 base/i16 delta.
func diffWidths(diffType uint8) (baseWidth, deltaWidth int, err error) {
	switch diffType {
	case 1:
		return 2, 1, nil
	case 2:
		return 4, 1, nil
	case 3:
		return 4, 2, nil
	default:
		return 0, 0, fmt.Errorf("tdf: unknown diff type %d", diffType)
	}
}

// reconstructDiff reads a DIFF record's payload (one base sample of
// `fields` values of width baseWidth, followed by diffNum*fields deltas of
// width deltaWidth) from cur and returns the reconstructed array of
// (diffNum+1)*fields values, serialised back to little-endian bytes of
// baseWidth each — ready to be fed to the per-sample dispatch as an
// ordinary payload cursor.
//
// out[k+1][f] = out[k][f] + delta[k][f], using wrapping addition in the
// base width; Go's sized-integer arithmetic already wraps on overflow, so
// no manual masking is needed beyond truncating through the correctly
// sized type.
func reconstructDiff(cur cursorReader, size uint8, diffNum int, baseWidth, deltaWidth int) ([]byte, error) {
	if baseWidth <= 0 || int(size)%baseWidth != 0 {
		return nil, fmt.Errorf("tdf: invalid diff base TDF len %d for base width %d", size, baseWidth)
	}
	fields := int(size) / baseWidth

	base := make([]int64, fields)
	for f := 0; f < fields; f++ {
		v, err := readSigned(cur, baseWidth)
		if err != nil {
			return nil, err
		}
		base[f] = v
	}

	out := make([]int64, (diffNum+1)*fields)
	copy(out[:fields], base)

	cur64 := make([]int64, fields)
	copy(cur64, base)
	for k := 0; k < diffNum; k++ {
		for f := 0; f < fields; f++ {
			delta, err := readSigned(cur, deltaWidth)
			if err != nil {
				return nil, err
			}
			cur64[f] = wrapAdd(cur64[f], delta, baseWidth)
			out[(k+1)*fields+f] = cur64[f]
		}
	}

	buf := make([]byte, len(out)*baseWidth)
	for i, v := range out {
		writeSigned(buf[i*baseWidth:], v, baseWidth)
	}
	return buf, nil
}

// wrapAdd adds a and b and truncates (with sign wraparound) to the given
// byte width, matching the fixed-width wrapping-add semantics the format
// requires.
func wrapAdd(a, b int64, width int) int64 {
	sum := a + b
	switch width {
	case 2:
		return int64(int16(sum))
	case 4:
		return int64(int32(sum))
	default:
		return sum
	}
}

// cursorReader is the minimal cursor surface reconstructDiff needs; it is
// satisfied by *tdf.Cursor.
type cursorReader interface {
	Take(n int) ([]byte, error)
}

func readSigned(cur cursorReader, width int) (int64, error) {
	b, err := cur.Take(width)
	if err != nil {
		return 0, err
	}
	switch width {
	case 1:
		return int64(int8(b[0])), nil
	case 2:
		return int64(int16(binary.LittleEndian.Uint16(b))), nil
	case 4:
		return int64(int32(binary.LittleEndian.Uint32(b))), nil
	default:
		return 0, fmt.Errorf("tdf: unsupported signed width %d", width)
	}
}

func writeSigned(buf []byte, v int64, width int) {
	switch width {
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(int16(v)))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(int32(v)))
	}
}
