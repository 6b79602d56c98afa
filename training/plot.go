package training

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"recurrent-gan/tensor"
)

// Plotter renders generated digits and loss curves as PNG files under a
// single output directory.
type Plotter struct {
	dir string
}

// NewPlotter creates the output directory if needed and verifies it is
// writable. Callers run this before training so a bad path fails up
// front.
func NewPlotter(dir string) (*Plotter, error) {
	if dir == "" {
		return nil, fmt.Errorf("plot directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plot directory %s: %v", dir, err)
	}
	marker := filepath.Join(dir, ".write_check")
	f, err := os.Create(marker)
	if err != nil {
		return nil, fmt.Errorf("plot directory %s is not writable: %v", dir, err)
	}
	f.Close()
	os.Remove(marker)
	return &Plotter{dir: dir}, nil
}

// Dir returns the output directory
func (p *Plotter) Dir() string { return p.dir }

// SaveSamples writes one grayscale heatmap PNG per image. Images are
// expected in [count, rows, cols, 1] with values in [-1, 1]; files are
// named <prefix>_00.png, <prefix>_01.png and so on.
func (p *Plotter) SaveSamples(images *tensor.Tensor, prefix string) error {
	if len(images.Shape) != 4 {
		return fmt.Errorf("images must have shape [count, rows, cols, 1], got %v", images.Shape)
	}

	count, rows, cols := images.Shape[0], images.Shape[1], images.Shape[2]
	pixels := rows * cols
	for i := 0; i < count; i++ {
		grid := digitGrid{
			data: images.Data[i*pixels : (i+1)*pixels],
			rows: rows,
			cols: cols,
		}

		pl := plot.New()
		pl.HideAxes()
		pl.Add(plotter.NewHeatMap(grid, grayPalette(256)))

		name := filepath.Join(p.dir, fmt.Sprintf("%s_%02d.png", prefix, i))
		if err := pl.Save(3*vg.Inch, 3*vg.Inch, name); err != nil {
			return fmt.Errorf("failed to save %s: %v", name, err)
		}
	}
	return nil
}

// SaveLossCurves writes a single PNG with per-epoch discriminator and
// generator losses.
func (p *Plotter) SaveLossCurves(metrics []EpochMetrics, name string) error {
	if len(metrics) == 0 {
		return fmt.Errorf("no metrics to plot")
	}

	disPts := make(plotter.XYs, len(metrics))
	genPts := make(plotter.XYs, len(metrics))
	for i, m := range metrics {
		disPts[i].X = float64(m.Epoch + 1)
		disPts[i].Y = m.DisLoss
		genPts[i].X = float64(m.Epoch + 1)
		genPts[i].Y = m.GenLoss
	}

	pl := plot.New()
	pl.Title.Text = "Training Loss"
	pl.X.Label.Text = "Epoch"
	pl.Y.Label.Text = "Loss"

	disLine, err := plotter.NewLine(disPts)
	if err != nil {
		return fmt.Errorf("failed to build discriminator line: %v", err)
	}
	disLine.Color = color.RGBA{R: 196, A: 255}

	genLine, err := plotter.NewLine(genPts)
	if err != nil {
		return fmt.Errorf("failed to build generator line: %v", err)
	}
	genLine.Color = color.RGBA{B: 196, A: 255}

	pl.Add(disLine, genLine)
	pl.Legend.Add("discriminator", disLine)
	pl.Legend.Add("generator", genLine)

	path := filepath.Join(p.dir, name)
	if err := pl.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %v", path, err)
	}
	return nil
}

// digitGrid adapts a row-major pixel slice to plotter.GridXYZ. Row zero of
// the image is drawn at the top.
type digitGrid struct {
	data []float64
	rows int
	cols int
}

func (g digitGrid) Dims() (int, int)   { return g.cols, g.rows }
func (g digitGrid) X(c int) float64    { return float64(c) }
func (g digitGrid) Y(r int) float64    { return float64(r) }
func (g digitGrid) Z(c, r int) float64 { return g.data[(g.rows-1-r)*g.cols+c] }

// grayPalette builds an n-step grayscale palette
func grayPalette(n int) palette.Palette {
	return grayscale(n)
}

type grayscale int

func (g grayscale) Colors() []color.Color {
	colors := make([]color.Color, int(g))
	for i := range colors {
		v := uint8(i * 255 / (int(g) - 1))
		colors[i] = color.Gray{Y: v}
	}
	return colors
}
