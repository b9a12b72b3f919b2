package tdf

// Sink is the capability set the block decoder needs from its caller: one
// method per decoded sample. The production implementation is
// internal/csvsink.Sink; tests use a recording fake that only implements
// this interface.
type Sink interface {
	// Write is called once per decoded sample. cur is positioned at the
	// start of the sample's size bytes; the implementation must consume
	// exactly size bytes from it (or arrange for them to be skipped) so the
	// caller's cursor stays aligned for the next record.
	Write(remoteID *uint64, tdfID uint16, sampleTime int64, sampleIdx *uint16, size uint8, cur *Cursor) error
}
