package monitor

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// SaveHTML renders the heatmap as a standalone interactive HTML page using
// go-echarts. Useful for eyeballing the env-mismatch block structure and
// the positive/negative bands before a training run.
func SaveHTML(data *HeatmapChartData, title, path string) error {
	if len(data.Labels) == 0 {
		return fmt.Errorf("cannot render empty matrix")
	}

	cells := make([]opts.HeatMapData, 0, len(data.Cells))
	for _, c := range data.Cells {
		cells = append(cells, opts.HeatMapData{Value: [3]interface{}{c.X, c.Y, c.Value}})
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: title,
			Theme:     "dark",
			Width:     "900px",
			Height:    "900px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("n=%d stride=%d", data.N, data.Stride),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Name: "candidate"}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Name: "anchor", Data: data.Labels}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: []string{"#313695", "#74add1", "#fdae61", "#a50026"}},
		}),
	)

	hm.SetXAxis(data.Labels)
	hm.AddSeries("similarity", cells)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := hm.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}
