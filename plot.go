package dataset_go

import (
	"fmt"
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

// PlotSourceMix Plot bar chart of samples taken from every dataset
//
// stats - collected composition
// names - optional dataset names for X axis. Defaults to "dataset #i"
// fname - output file, format is picked by extension
//
func PlotSourceMix(stats MixStats, names []string, fname string) error {
	if len(stats.PerSource) == 0 {
		return errors.Wrap(ErrEmptyDataset, "Nothing to plot: no samples recorded")
	}
	if len(names) != 0 && len(names) != len(stats.PerSource) {
		return errors.Wrapf(ErrLengthMismatch, "Got %d names for %d datasets", len(names), len(stats.PerSource))
	}
	values := make(plotter.Values, len(stats.PerSource))
	labels := make([]string, len(stats.PerSource))
	for i, n := range stats.PerSource {
		values[i] = float64(n)
		labels[i] = fmt.Sprintf("dataset #%d", i)
		if len(names) != 0 {
			labels[i] = names[i]
		}
	}
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "Can't init new bar chart")
	}
	bars.Color = color.RGBA{R: 255, B: 128, A: 255}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Samples per dataset (%d batches)", stats.Batches)
	p.Y.Label.Text = "Samples"
	p.Add(plotter.NewGrid())
	p.Add(bars)
	p.NominalX(labels...)
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// PlotXY Plot chart for input y(x)
func PlotXY(x, y tensor.Tensor, fname string) error {
	if x.Dims() != 1 {
		return fmt.Errorf("X must have one dimension, but got %d", x.Dims())
	}
	if y.Dims() != 1 {
		return fmt.Errorf("Y(X) must have one dimension, but got %d", y.Dims())
	}
	if x.DataSize() != y.DataSize() {
		return fmt.Errorf("X and Y(X) must have same number of elements, but X has %d elements and Y(X) has %d elements", x.DataSize(), y.DataSize())
	}
	scatterData := make(plotter.XYs, x.DataSize())
	for i := 0; i < x.DataSize(); i++ {
		xval, err := x.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select X-value")
		}
		yval, err := y.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select Y(x)-value")
		}
		xf, ok := xval.(float64)
		if !ok {
			return errors.Wrapf(ErrDtypeMismatch, "X must be float64, but got %T", xval)
		}
		yf, ok := yval.(float64)
		if !ok {
			return errors.Wrapf(ErrDtypeMismatch, "Y(X) must be float64, but got %T", yval)
		}
		scatterData[i].X = xf
		scatterData[i].Y = yf
	}
	scatter, err := plotter.NewScatter(scatterData)
	if err != nil {
		return errors.Wrap(err, "Can't init new scatter")
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	p := plot.New()
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())
	p.Add(scatter)
	// Save the plot to a PNG file.
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}
