package progress

import "github.com/pterm/pterm"

// PTerm is the interactive CLI Reporter, backed by pterm's progress bar
// widget.
type PTerm struct {
	bar *pterm.ProgressbarPrinter
}

// NewPTerm returns a Reporter that renders to the terminal via pterm.
func NewPTerm() *PTerm {
	return &PTerm{}
}

func (p *PTerm) Start(message string, total int) {
	bar, _ := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(message).
		WithShowCount(true).
		Start()
	p.bar = bar
}

func (p *PTerm) Increment(n int) {
	if p.bar == nil {
		return
	}
	for i := 0; i < n; i++ {
		p.bar.Increment()
	}
}

func (p *PTerm) Stop() {
	if p.bar == nil {
		return
	}
	_, _ = p.bar.Stop()
	p.bar = nil
}
