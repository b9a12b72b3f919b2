package capture

import (
	"bytes"
	"io"

	"github.com/infuse-iot/tdf2csv/internal/serialmux"
)

var _ serialmux.SerialPorter = (*FixturePort)(nil)

// FixturePort implements serialmux.SerialPorter by replaying a recorded
// byte fixture instead of talking to real hardware (cmd/tdfcapture's
// -fixture flag). Writes (command bytes sent to the device) are discarded.
// Read returns io.EOF once the fixture is exhausted.
type FixturePort struct {
	r *bytes.Reader
}

// NewFixturePort returns a FixturePort that replays data.
func NewFixturePort(data []byte) *FixturePort {
	return &FixturePort{r: bytes.NewReader(data)}
}

func (p *FixturePort) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if err == io.EOF {
		return n, io.EOF
	}
	return n, err
}

func (p *FixturePort) Write(buf []byte) (int, error) {
	return len(buf), nil
}

func (p *FixturePort) Close() error { return nil }
