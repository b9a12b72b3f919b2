// Package frame implements the block framer (spec §4.1): classifying a raw
// 512-byte block by its two-byte prefix and delegating TDF/REMOTE payloads
// to the block decoder.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/infuse-iot/tdf2csv/internal/tdf"
	"github.com/infuse-iot/tdf2csv/internal/tdf/decode"
)

// block type discriminator byte values (the second byte of a block).
const (
	typeTDF    = 0x02
	typeRemote = 0x0B
)

const remoteIDBytes = 8

// ClassifyAndDecode classifies a 512-byte block and, for TDF/REMOTE
// blocks, decodes its payload into sink. It never returns an error: any
// parse failure is reflected only in the returned BlockType (BlockError),
// per spec §4.1 — in-block errors are counted, not surfaced.
func ClassifyAndDecode(block []byte, sink tdf.Sink) tdf.BlockType {
	if len(block) != tdf.BlockSize {
		return tdf.BlockError
	}

	b0, b1 := block[0], block[1]
	if (b0 == 0x00 && b1 == 0x00) || (b0 == 0xFF && b1 == 0xFF) {
		return tdf.BlockEmpty
	}

	switch b1 {
	case typeTDF:
		if err := decode.Block(nil, block[2:], sink); err != nil {
			return tdf.BlockError
		}
		return tdf.BlockTDF

	case typeRemote:
		if len(block) < 2+remoteIDBytes {
			return tdf.BlockError
		}
		remoteID := binary.LittleEndian.Uint64(block[2 : 2+remoteIDBytes])
		if err := decode.Block(&remoteID, block[2+remoteIDBytes:], sink); err != nil {
			return tdf.BlockError
		}
		return tdf.BlockRemote

	default:
		return tdf.BlockOther
	}
}

// ErrNotABlock describes a block whose length is not exactly BlockSize.
// ClassifyAndDecode itself never returns an error (see above; it reports
// such a block as BlockError), and no function in this module returns
// ErrNotABlock.
var ErrNotABlock = fmt.Errorf("tdf: block must be exactly %d bytes", tdf.BlockSize)
