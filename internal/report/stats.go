// Package report renders a post-run summary of a driver.Result: per-
// channel row-count statistics (gonum/stat), a bar chart of the busiest
// channels (gonum/plot), and an HTML dashboard (go-echarts) — grounded on
// the teacher's internal/db/db.go (stat.Quantile over rollup buckets) and
// internal/lidar/monitor/gridplotter.go and echarts_handlers.go.
package report

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/infuse-iot/tdf2csv/internal/driver"
)

// Summary is the computed statistics over one run's per-channel row
// counts.
type Summary struct {
	ChannelCount int
	TotalRows    uint64
	MeanRows     float64
	P50Rows      float64
	P95Rows      float64
	Busiest      []driver.ChannelResult // sorted descending by Rows, capped
}

const busiestLimit = 10

// Compute derives a Summary from a driver run's channel results.
func Compute(channels []driver.ChannelResult) Summary {
	s := Summary{ChannelCount: len(channels)}
	if len(channels) == 0 {
		return s
	}

	rows := make([]float64, len(channels))
	for i, c := range channels {
		rows[i] = float64(c.Rows)
		s.TotalRows += c.Rows
	}
	s.MeanRows = stat.Mean(rows, nil)

	sorted := make([]float64, len(rows))
	copy(sorted, rows)
	sort.Float64s(sorted)
	s.P50Rows = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P95Rows = stat.Quantile(0.95, stat.Empirical, sorted, nil)

	busiest := make([]driver.ChannelResult, len(channels))
	copy(busiest, channels)
	sort.Slice(busiest, func(i, j int) bool { return busiest[i].Rows > busiest[j].Rows })
	if len(busiest) > busiestLimit {
		busiest = busiest[:busiestLimit]
	}
	s.Busiest = busiest
	return s
}
