package report

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/infuse-iot/tdf2csv/internal/tdf/registry"
)

// SaveBarChart renders the busiest channels' row counts as a PNG bar
// chart under outDir, returning the written file's path.
func SaveBarChart(s Summary, outDir string) (string, error) {
	if len(s.Busiest) == 0 {
		return "", nil
	}

	p := plot.New()
	p.Title.Text = "Rows decoded per channel (top channels)"
	p.Y.Label.Text = "rows"

	values := make(plotter.Values, len(s.Busiest))
	labels := make([]string, len(s.Busiest))
	for i, c := range s.Busiest {
		values[i] = float64(c.Rows)
		labels[i] = registry.Name(c.TDFID)
	}

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return "", fmt.Errorf("report: build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)

	path := filepath.Join(outDir, "channel_rows.png")
	if err := p.Save(12*vg.Inch, 6*vg.Inch, path); err != nil {
		return "", fmt.Errorf("report: save chart %s: %w", path, err)
	}
	return path, nil
}
