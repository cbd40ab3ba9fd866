package calib

import (
	"fmt"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"path/filepath"
)

// WritePlot saves a bar chart of the per view reprojection errors.  The
// image format follows the file extension.
func WritePlot(res *Result, path string) error {

	if res == nil || len(res.Views) == 0 {
		return ErrNoCorners
	}

	values := make(plotter.Values, len(res.Views))
	names := make([]string, len(res.Views))

	for i, v := range res.Views {
		values[i] = v.Error
		names[i] = filepath.Base(v.File)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Reprojection error per view, mean %.4f px", res.MeanError)
	p.Y.Label.Text = "error (px)"

	bars, err := plotter.NewBarChart(values, vg.Points(12))

	if err != nil {
		return fmt.Errorf("failed to create bar chart: %w", err)
	}

	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -1

	// mean error reference line
	mean, err := plotter.NewLine(plotter.XYs{
		{X: -0.5, Y: res.MeanError},
		{X: float64(len(values)) - 0.5, Y: res.MeanError},
	})

	if err != nil {
		return fmt.Errorf("failed to create mean line: %w", err)
	}

	mean.Width = vg.Points(1)
	mean.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(mean)

	width := vg.Length(len(values))*vg.Points(18) + 2*vg.Inch

	if err := p.Save(width, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}

	return nil
}
