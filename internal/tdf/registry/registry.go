package registry

import (
	"strconv"
	"strings"

	"github.com/infuse-iot/tdf2csv/internal/tdf"
)

// entry is one registered TDF id's schema.
type entry struct {
	name   string
	fields []string
	// read decodes one sample's fields from cur (given the record's
	// declared size) and returns the comma-joined CSV row body. It is not
	// responsible for underflow past its own fields: ReadRow skips
	// whatever read leaves unread, up to size.
	read func(cur *tdf.Cursor, size uint8) (string, error)
}

// row builds a comma-joined CSV row body from a fixed sequence of
// size-independent field readers, in order.
func row(fields ...field) func(cur *tdf.Cursor, size uint8) (string, error) {
	return func(cur *tdf.Cursor, _ uint8) (string, error) {
		parts := make([]string, len(fields))
		for i, f := range fields {
			s, err := f(cur)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ","), nil
	}
}

// variableLength builds a single-field reader that consumes the record's
// entire declared size as one opaque hex field, for ids whose payload has
// no fixed structure (e.g. RAW_EVENT).
func variableLength(f func(n int) field) func(cur *tdf.Cursor, size uint8) (string, error) {
	return func(cur *tdf.Cursor, size uint8) (string, error) {
		return f(int(size))(cur)
	}
}

// table is the static registry of known TDF ids. It is data: every entry
// is a name, its ordered field names, and a reader built from the
// primitives in primitives.go.
var table = map[uint16]entry{
	1: {
		name:   "BATTERY_STATE",
		fields: []string{"millivolts", "percent"},
		read:   row(u16LE, u8),
	},
	2: {
		name:   "DEVICE_BOOT",
		fields: []string{"reason"},
		read:   row(hexFixedLE(1)),
	},
	4: {
		name:   "AMBIENT_TEMPERATURE",
		fields: []string{"temperature"},
		read:   row(scaled(i32LE, 1000)),
	},
	5: {
		name:   "HUMIDITY",
		fields: []string{"humidity_pct"},
		read:   row(scaled(u16LE, 100)),
	},
	6: {
		name:   "PRESSURE",
		fields: []string{"pressure_hpa"},
		read:   row(scaled(i24LE, 256)),
	},
	7: {
		name:   "DEVICE_SERIAL",
		fields: []string{"serial"},
		read:   row(hexFixedLE(8)),
	},
	8: {
		name:   "LIGHT_LEVEL",
		fields: []string{"lux"},
		read:   row(f32LE),
	},
	10: {
		name:   "ACC_2G",
		fields: []string{"x", "y", "z"},
		read:   row(i16LE, i16LE, i16LE),
	},
	11: {
		name:   "ACC_4G",
		fields: []string{"x", "y", "z"},
		read:   row(i16LE, i16LE, i16LE),
	},
	12: {
		name:   "ACC_8G",
		fields: []string{"x", "y", "z"},
		read:   row(i16LE, i16LE, i16LE),
	},
	13: {
		name:   "GYRO",
		fields: []string{"x", "y", "z"},
		read:   row(scaled(i16LE, 10), scaled(i16LE, 10), scaled(i16LE, 10)),
	},
	14: {
		name:   "MAGNETOMETER",
		fields: []string{"x", "y", "z"},
		read:   row(i16LE, i16LE, i16LE),
	},
	20: {
		name:   "WIFI_CONNECT",
		fields: []string{"bssid", "ap_mac", "rssi"},
		read:   row(hexFixedBE48, hexFixedBE48, i8),
	},
	21: {
		name:   "WIFI_SSID",
		fields: []string{"ssid"},
		read:   row(utf8String(32)),
	},
	22: {
		name:   "RAW_EVENT",
		fields: []string{"payload"},
		read:   variableLength(hexTail),
	},
	23: {
		name:   "GPS_POSITION",
		fields: []string{"latitude_deg", "longitude_deg", "altitude_m"},
		read:   row(scaled(i32LE, 1e7), scaled(i32LE, 1e7), scaled(i32LE, 1000)),
	},
}

// Name returns the canonical channel name for id, or its decimal value if
// id is not registered.
func Name(id uint16) string {
	if e, ok := table[id]; ok {
		return e.name
	}
	return strconv.Itoa(int(id))
}

// Fields returns the ordered field names for id, or a single synthetic
// "data" column for unregistered ids (whose ReadRow falls back to a hex
// dump of the whole sample).
func Fields(id uint16) []string {
	if e, ok := table[id]; ok {
		return e.fields
	}
	return []string{"data"}
}

// ReadRow reads exactly size bytes from cur for TDF id and returns one
// CSV row body (comma-joined, no trailing newline, no leading time
// column). Unknown ids are read as a single lowercase hex field.
//
// If the registered reader consumes fewer than size bytes, the remainder
// is skipped from cur (spec §4.2's underflow handling) so stream
// alignment is preserved for the next record; the skipped bytes are not
// reflected in the returned row, which always has exactly len(Fields(id))
// columns.
func ReadRow(id uint16, size uint8, cur *tdf.Cursor) (string, error) {
	start := cur.Offset()
	e, known := table[id]

	var body string
	var err error
	if known {
		body, err = e.read(cur, size)
	} else {
		body, err = hexTail(int(size))(cur)
	}
	if err != nil {
		return "", err
	}

	consumed := cur.Offset() - start
	if remaining := int(size) - consumed; remaining > 0 {
		if err := cur.Skip(remaining); err != nil {
			return "", err
		}
	}
	return body, nil
}
