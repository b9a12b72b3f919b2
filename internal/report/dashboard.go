package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/infuse-iot/tdf2csv/internal/driver"
	"github.com/infuse-iot/tdf2csv/internal/tdf"
	"github.com/infuse-iot/tdf2csv/internal/tdf/registry"
)

// SaveDashboard renders an HTML dashboard with a block-type bar chart and
// a per-channel row-count bar chart, mirroring the teacher's
// handleTrafficChart, and writes it to outDir/dashboard.html.
func SaveDashboard(result driver.Result, s Summary, outDir string) (string, error) {
	blockChart := newBlockTypeChart(result.BlockCounts)
	channelChart := newChannelChart(s)

	path := filepath.Join(outDir, "dashboard.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("report: create dashboard %s: %w", path, err)
	}
	defer f.Close()

	page := components.NewPage()
	page.AddCharts(blockChart, channelChart)
	if err := page.Render(f); err != nil {
		return "", fmt.Errorf("report: render dashboard: %w", err)
	}
	return path, nil
}

func newBlockTypeChart(counts map[tdf.BlockType]int) *charts.Bar {
	order := []tdf.BlockType{tdf.BlockTDF, tdf.BlockRemote, tdf.BlockOther, tdf.BlockEmpty, tdf.BlockError}

	x := make([]string, 0, len(order))
	y := make([]opts.BarData, 0, len(order))
	for _, bt := range order {
		x = append(x, bt.String())
		y = append(y, opts.BarData{Value: counts[bt]})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{Title: "Blocks by type"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("blocks", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}

func newChannelChart(s Summary) *charts.Bar {
	x := make([]string, 0, len(s.Busiest))
	y := make([]opts.BarData, 0, len(s.Busiest))
	for _, c := range s.Busiest {
		x = append(x, registry.Name(c.TDFID))
		y = append(y, opts.BarData{Value: c.Rows})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "450px"}),
		charts.WithTitleOpts(opts.Title{Title: "Rows per channel (top channels)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("rows", y,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
	)
	return bar
}
