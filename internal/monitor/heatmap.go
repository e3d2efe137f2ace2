package monitor

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// heatGrid adapts HeatmapChartData to the plotter.GridXYZ interface.
type heatGrid struct {
	data *HeatmapChartData
	n    int // sampled dimension
}

func newHeatGrid(data *HeatmapChartData) *heatGrid {
	return &heatGrid{data: data, n: len(data.Labels)}
}

func (g *heatGrid) Dims() (c, r int) { return g.n, g.n }
func (g *heatGrid) X(c int) float64  { return float64(c) }
func (g *heatGrid) Y(r int) float64  { return float64(r) }

func (g *heatGrid) Z(c, r int) float64 {
	// Cells are appended row-major by PrepareHeatmapData. Flip the row
	// axis so matrix row 0 renders at the top of the plot.
	return g.data.Cells[(g.n-1-r)*g.n+c].Value
}

// SavePNG renders the heatmap to a PNG file.
func SavePNG(data *HeatmapChartData, title, path string) error {
	if len(data.Labels) == 0 {
		return fmt.Errorf("cannot render empty matrix")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "candidate index"
	p.Y.Label.Text = "anchor index"

	h := plotter.NewHeatMap(newHeatGrid(data), palette.Heat(16, 1))
	// Similarity scores live in [0, 1]; pin the colour scale so runs are
	// comparable across batches.
	h.Min = 0
	h.Max = 1
	p.Add(h)

	if err := p.Save(7*vg.Inch, 7*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save heatmap: %w", err)
	}
	return nil
}
