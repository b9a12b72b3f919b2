// Package decode implements the TDF block decoder: the stateful,
// bit-packed parser that consumes one 512-byte block's payload and emits
// decoded samples to a tdf.Sink. This is the core of the telemetry
// decoder (spec §4.3).
package decode

import (
	"fmt"

	"github.com/infuse-iot/tdf2csv/internal/tdf"
)

// minRecordBytes is the minimum bytes required to safely attempt another
// record read (2-byte header + 1-byte size + enough slack that a
// time/array control read can fail cleanly rather than running past the
// block); fewer bytes than this remaining in the payload ends scanning.
const minRecordBytes = 5

// Block decodes the TDF records in payload, threading a running
// buffer_time across records within this one block, and calling
// sink.Write once per emitted sample. remoteID is nil for a local TDF
// block, non-nil for a REMOTE block.
//
// Block returns a non-nil error only on a hard parse failure (spec §7);
// the caller (internal/tdf/frame) counts that as a BlockError and
// discards the rest of the block — never propagating it further.
func Block(remoteID *uint64, payload []byte, sink tdf.Sink) error {
	cur := tdf.NewCursor(payload)
	var bufferTime int64

	for cur.Remaining() >= minRecordBytes {
		raw, err := cur.U16LE()
		if err != nil {
			return err
		}
		if tdf.IsSentinel(raw) {
			return nil
		}
		hdr := tdf.DecodeHeader(raw)

		size, err := cur.U8()
		if err != nil {
			return err
		}
		if size == 0 {
			return fmt.Errorf("tdf: TDF of length 0")
		}

		bufferTime, err = applyTimeFlags(cur, hdr.TimeFlags, bufferTime)
		if err != nil {
			return err
		}

		arrayNum, period, sampleIdxBase, sampleCursor, err := applyArrayFlags(cur, hdr.ArrayFlags, size)
		if err != nil {
			return err
		}

		if err := emitSamples(sink, remoteID, hdr.TDFID, size, bufferTime, period, hdr.TimeFlags, sampleIdxBase, arrayNum, sampleCursor); err != nil {
			return err
		}
	}
	return nil
}

// applyTimeFlags reads the time bytes (if any) for time_flags and returns
// the updated buffer_time.
func applyTimeFlags(cur *tdf.Cursor, flags tdf.TimeFlags, bufferTime int64) (int64, error) {
	switch flags {
	case tdf.TimeNone:
		return bufferTime, nil
	case tdf.TimeGlobal:
		hi, err := cur.U32LE()
		if err != nil {
			return 0, err
		}
		lo, err := cur.U16LE()
		if err != nil {
			return 0, err
		}
		return (int64(hi) << 16) + int64(lo), nil
	case tdf.TimeRelU16:
		delta, err := cur.U16LE()
		if err != nil {
			return 0, err
		}
		return bufferTime + int64(delta), nil
	case tdf.TimeRelS24:
		delta, err := cur.I24LE()
		if err != nil {
			return 0, err
		}
		return bufferTime + int64(delta), nil
	default:
		return 0, fmt.Errorf("tdf: unreachable time_flags %d", flags)
	}
}

// applyArrayFlags reads the array-control bytes (if any) for array_flags
// and returns the sample count, period (in tdf_time units), an optional
// sample-index base, and a cursor over the record's sample payload(s)
// (the reconstructed array, for DIFF; otherwise cur itself).
func applyArrayFlags(cur *tdf.Cursor, flags tdf.ArrayFlags, size uint8) (arrayNum int, period int64, sampleIdxBase *uint16, payload *tdf.Cursor, err error) {
	switch flags {
	case tdf.ArrayNone:
		return 1, 0, nil, cur, nil

	case tdf.ArrayTime:
		n, err := cur.U8()
		if err != nil {
			return 0, 0, nil, nil, err
		}
		if n == 0 {
			return 0, 0, nil, nil, fmt.Errorf("tdf: time array of 0 elements")
		}
		rawPeriod, err := cur.U16LE()
		if err != nil {
			return 0, 0, nil, nil, err
		}
		return int(n), tdf.PeriodUnits(rawPeriod), nil, cur, nil

	case tdf.ArrayDiff:
		diffInfo, err := cur.U8()
		if err != nil {
			return 0, 0, nil, nil, err
		}
		rawPeriod, err := cur.U16LE()
		if err != nil {
			return 0, 0, nil, nil, err
		}
		diffType := diffInfo >> 6
		diffNum := int(diffInfo & 0x3F)
		baseWidth, deltaWidth, err := diffWidths(diffType)
		if err != nil {
			return 0, 0, nil, nil, err
		}
		reconstructed, err := reconstructDiff(cur, size, diffNum, baseWidth, deltaWidth)
		if err != nil {
			return 0, 0, nil, nil, err
		}
		return diffNum + 1, tdf.PeriodUnits(rawPeriod), nil, tdf.NewCursor(reconstructed), nil

	case tdf.ArrayIdx:
		n, err := cur.U8()
		if err != nil {
			return 0, 0, nil, nil, err
		}
		if n == 0 {
			return 0, 0, nil, nil, fmt.Errorf("tdf: index array of 0 elements")
		}
		base, err := cur.U16LE()
		if err != nil {
			return 0, 0, nil, nil, err
		}
		return int(n), 0, &base, cur, nil

	default:
		return 0, 0, nil, nil, fmt.Errorf("tdf: unreachable array_flags %d", flags)
	}
}

// emitSamples expands one record into arrayNum sink.Write calls per
// spec §4.4.
func emitSamples(sink tdf.Sink, remoteID *uint64, tdfID uint16, size uint8, bufferTime, period int64, timeFlags tdf.TimeFlags, idxBase *uint16, arrayNum int, cur *tdf.Cursor) error {
	for k := 0; k < arrayNum; k++ {
		sampleTime := bufferTime + int64(k)*period

		var sampleIdx *uint16
		if idxBase != nil {
			if k == 0 && timeFlags != tdf.TimeNone {
				sampleIdx = nil
			} else {
				v := *idxBase + uint16(k) // 16-bit wrapping add
				sampleIdx = &v
			}
		}

		if err := sink.Write(remoteID, tdfID, sampleTime, sampleIdx, size, cur); err != nil {
			return err
		}
	}
	return nil
}
