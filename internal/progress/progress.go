// Package progress implements the progress contract (spec §6): three
// operations, Start/Increment/Stop, that the core driver calls on three
// distinct reporters (copy, decode, merge) without needing to know how
// progress is actually displayed.
package progress

// Reporter is the capability the driver needs to report progress of one
// phase. Start must be called once before any Increment; Stop finalizes
// the display.
type Reporter interface {
	Start(message string, total int)
	Increment(n int)
	Stop()
}

// Noop discards all progress, for non-interactive runs (e.g. -quiet)
// and for tests that don't care about progress output.
type Noop struct{}

func (Noop) Start(string, int) {}
func (Noop) Increment(int)     {}
func (Noop) Stop()             {}
