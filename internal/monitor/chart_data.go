// Package monitor prepares and renders visualisations of similarity
// matrices. Data preparation is separated from rendering for testability:
// PrepareHeatmapData produces a renderer-agnostic cell list consumed by
// both the PNG (gonum/plot) and HTML (go-echarts) renderers.
package monitor

import (
	"math"

	"github.com/skylark-data/privsim/internal/similarity"
)

// HeatmapCell represents a single cell in a heatmap chart.
type HeatmapCell struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	Value float64 `json:"value"`
}

// HeatmapChartData holds prepared data for rendering a similarity heatmap.
type HeatmapChartData struct {
	Cells    []HeatmapCell `json:"cells"`
	Labels   []string      `json:"labels"` // anchor_ids for the sampled rows/cols
	Stride   int           `json:"stride"`
	MinValue float64       `json:"min_value"`
	MaxValue float64       `json:"max_value"`
	N        int           `json:"n"` // full matrix dimension before downsampling
}

// PrepareHeatmapData transforms a similarity matrix into heatmap cells,
// downsampling with a uniform row/column stride so the cell count stays
// under maxCells. NaN entries are skipped for the min/max bounds but kept
// in the cell list.
func PrepareHeatmapData(m *similarity.Matrix, maxCells int) *HeatmapChartData {
	n := m.N()
	data := &HeatmapChartData{
		Cells:    []HeatmapCell{},
		Labels:   []string{},
		Stride:   1,
		MinValue: math.Inf(1),
		MaxValue: math.Inf(-1),
		N:        n,
	}
	if n == 0 {
		data.MinValue, data.MaxValue = 0, 0
		return data
	}
	if maxCells <= 0 {
		maxCells = 10000
	}

	stride := 1
	for (n/stride+1)*(n/stride+1) > maxCells {
		stride++
	}
	data.Stride = stride

	labels := m.Labels()
	for i := 0; i < n; i += stride {
		data.Labels = append(data.Labels, labels[i])
	}

	for yi, i := 0, 0; i < n; yi, i = yi+1, i+stride {
		for xi, j := 0, 0; j < n; xi, j = xi+1, j+stride {
			v := m.At(i, j)
			data.Cells = append(data.Cells, HeatmapCell{X: xi, Y: yi, Value: v})
			if !math.IsNaN(v) {
				if v < data.MinValue {
					data.MinValue = v
				}
				if v > data.MaxValue {
					data.MaxValue = v
				}
			}
		}
	}
	if math.IsInf(data.MinValue, 1) {
		data.MinValue, data.MaxValue = 0, 0
	}
	return data
}
