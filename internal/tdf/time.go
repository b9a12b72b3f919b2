// Package tdf implements the core TDF (Tagged Data Field) block decoder:
// the bit-packed 512-byte frame format produced by an IoT edge device's
// ring-buffered flash writer.
package tdf

import (
	"fmt"
	"time"
)

// gpsEpochOffset is the offset in seconds between the Unix epoch
// (1970-01-01T00:00:00Z) and the GPS epoch (1980-01-06T00:00:00Z), adjusted
// for the leap seconds already baked into the device's GPS-derived clock.
//
// unix_seconds = gps_seconds + 315_964_800 - 18
const gpsEpochOffset = 315_964_800 - 18

// fracDenominator is the denominator of tdf_time's low-16-bit fractional
// seconds component.
const fracDenominator = 1 << 16

// UnixTime splits a raw tdf_time (signed 64-bit fixed point: high 48 bits
// GPS seconds, low 16 bits fractional seconds / 65536) into Unix seconds
// and nanoseconds.
func UnixTime(tdfTime int64) (seconds int64, nanos int64) {
	seconds = (tdfTime >> 16) + gpsEpochOffset
	frac := tdfTime & 0xFFFF
	nanos = (1_000_000_000 * frac) / fracDenominator
	return seconds, nanos
}

// AsTime converts tdfTime to a UTC time.Time.
func AsTime(tdfTime int64) time.Time {
	seconds, nanos := UnixTime(tdfTime)
	return time.Unix(seconds, nanos).UTC()
}

// RFC3339Micro renders tdfTime as an RFC3339 datetime with microsecond
// precision, UTC, trailing "Z" — the CSV time column format used when
// neither unix-time mode nor an array sample index applies.
func RFC3339Micro(tdfTime int64) string {
	return AsTime(tdfTime).Format("2006-01-02T15:04:05.000000Z")
}

// UnixDecimal renders tdfTime as "{seconds}.{microseconds:06}" — the CSV
// time column format used in unix-time mode.
func UnixDecimal(tdfTime int64) string {
	seconds, nanos := UnixTime(tdfTime)
	return fmt.Sprintf("%d.%06d", seconds, nanos/1000)
}

// PeriodUnits decodes an array-period u16 into its effective value in
// tdf_time fixed-point units: bit 15 selects a x8192 scale on the masked
// low 15 bits.
func PeriodUnits(raw uint16) int64 {
	value := int64(raw & 0x7FFF)
	if raw&0x8000 != 0 {
		value *= 8192
	}
	return value
}
