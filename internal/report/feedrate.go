package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// FeedrateChart renders the per-level feedrates as an HTML line chart.
func FeedrateChart(w io.Writer, title string, feedrates []int) error {
	x := make([]string, len(feedrates))
	data := make([]opts.LineData, len(feedrates))
	for i, f := range feedrates {
		x[i] = fmt.Sprintf("%d", i+1)
		data[i] = opts.LineData{Value: f}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("levels=%d", len(feedrates))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Level", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mm/min", NameLocation: "middle", NameGap: 50}),
	)
	line.SetXAxis(x).AddSeries("feedrate", data)

	return line.Render(w)
}
