// Package registry is the static TDF field schema (spec §4.2): a table
// keyed by 16-bit TDF id giving a channel name, ordered field names, and a
// byte-cursor reader that produces one CSV row body. It is data, not
// logic — each entry's reader is composed from the small set of
// primitives in this file.
package registry

import (
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/infuse-iot/tdf2csv/internal/tdf"
)

// field is one column of a registry row: read one value from cur and
// return its formatted CSV representation.
type field func(cur *tdf.Cursor) (string, error)

func u8(cur *tdf.Cursor) (string, error) {
	v, err := cur.U8()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(v)), nil
}

func i8(cur *tdf.Cursor) (string, error) {
	v, err := cur.U8()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(int8(v))), nil
}

func u16LE(cur *tdf.Cursor) (string, error) {
	v, err := cur.U16LE()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(v)), nil
}

func i16LE(cur *tdf.Cursor) (string, error) {
	v, err := cur.U16LE()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(int16(v))), nil
}

func u32LE(cur *tdf.Cursor) (string, error) {
	v, err := cur.U32LE()
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(uint64(v), 10), nil
}

func i32LE(cur *tdf.Cursor) (string, error) {
	v, err := cur.U32LE()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(int32(v))), nil
}

func i24LE(cur *tdf.Cursor) (string, error) {
	v, err := cur.I24LE()
	if err != nil {
		return "", err
	}
	return strconv.Itoa(int(v)), nil
}

func f32LE(cur *tdf.Cursor) (string, error) {
	v, err := cur.U32LE()
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(float64(math.Float32frombits(v)), 'g', -1, 32), nil
}

// scaled divides a raw integer field by divisor before formatting, used
// for fixed-point sensor readings (e.g. milli-degrees -> degrees).
func scaled(raw field, divisor float64) field {
	return func(cur *tdf.Cursor) (string, error) {
		s, err := raw(cur)
		if err != nil {
			return "", err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return "", fmt.Errorf("registry: scale non-numeric field %q: %w", s, err)
		}
		return strconv.FormatFloat(v/divisor, 'g', -1, 64), nil
	}
}

// hexFixedLE reads an n-byte little-endian unsigned identifier and
// formats it as a zero-padded "0x"-prefixed hex string of width n*2.
func hexFixedLE(n int) field {
	return func(cur *tdf.Cursor) (string, error) {
		b, err := cur.Take(n)
		if err != nil {
			return "", err
		}
		var v uint64
		for i := n - 1; i >= 0; i-- {
			v = v<<8 | uint64(b[i])
		}
		return fmt.Sprintf("0x%0*x", n*2, v), nil
	}
}

// hexFixedBE48 reads a 6-byte big-endian identifier (BSSID / Wi-Fi AP MAC
// — the only big-endian registry fields) and formats it as a zero-padded
// "0x"-prefixed 12-hex-digit string.
func hexFixedBE48(cur *tdf.Cursor) (string, error) {
	v, err := cur.U48BE()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%012x", v), nil
}

// utf8String reads n bytes, trims at the first NUL, and returns a
// double-quoted UTF-8 string field.
func utf8String(n int) field {
	return func(cur *tdf.Cursor) (string, error) {
		b, err := cur.Take(n)
		if err != nil {
			return "", err
		}
		if i := strings.IndexByte(string(b), 0); i >= 0 {
			b = b[:i]
		}
		return strconv.Quote(string(b)), nil
	}
}

// hexTail reads n bytes and returns them as a lowercase hex string with
// no further structure — used for opaque/variable-length trailing
// payloads and as the unknown-id fallback.
func hexTail(n int) field {
	return func(cur *tdf.Cursor) (string, error) {
		b, err := cur.Take(n)
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(b), nil
	}
}
