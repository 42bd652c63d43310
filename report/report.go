// Package report persists scored absenteeism batches: the augmented table as
// CSV and the probability distribution as a histogram.
package report

import (
	"fmt"
	"image/color"
	"os"
	"sort"

	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// DefaultBins is the histogram bin count used when bins <= 0.
const DefaultBins = 10

// Summary describes a probability distribution.
type Summary struct {
	Count    int
	Mean     float64
	StdDev   float64
	Median   float64
	Positive int // probabilities above the threshold
}

// Summarize computes the count, mean, sample standard deviation and median of
// probs, and counts the values above threshold.
func Summarize(probs []float64, threshold float64) (Summary, error) {
	if len(probs) == 0 {
		return Summary{}, errors.NewModelError("Summarize", "no probabilities", errors.ErrEmptyData)
	}

	sorted := append([]float64(nil), probs...)
	sort.Float64s(sorted)

	s := Summary{Count: len(sorted)}
	s.Mean, s.StdDev = stat.MeanStdDev(sorted, nil)
	if len(sorted) == 1 {
		s.StdDev = 0
	}
	s.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	for _, p := range sorted {
		if p > threshold {
			s.Positive++
		}
	}
	return s, nil
}

// SaveProbabilityHistogram plots probs as a histogram over [0, 1] with a
// vertical line at threshold. The image format follows the file extension
// (png, svg, pdf, ...).
func SaveProbabilityHistogram(probs []float64, bins int, threshold float64, path string) error {
	if len(probs) == 0 {
		return errors.NewModelError("SaveProbabilityHistogram", "no probabilities", errors.ErrEmptyData)
	}
	if bins <= 0 {
		bins = DefaultBins
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Absenteeism probability (n=%d)", len(probs))
	p.X.Label.Text = "P(excessive absenteeism)"
	p.Y.Label.Text = "Employees"
	p.X.Min = 0
	p.X.Max = 1

	h, err := plotter.NewHist(plotter.Values(probs), bins)
	if err != nil {
		return errors.Wrap(err, "create histogram")
	}
	p.Add(h)

	maxCount := 0.0
	for _, b := range h.Bins {
		if b.Weight > maxCount {
			maxCount = b.Weight
		}
	}
	cut, err := plotter.NewLine(plotter.XYs{{X: threshold, Y: 0}, {X: threshold, Y: maxCount}})
	if err != nil {
		return errors.Wrap(err, "create threshold line")
	}
	cut.LineStyle.Width = vg.Points(2)
	cut.LineStyle.Color = color.RGBA{R: 200, A: 255}
	p.Add(cut)
	p.Legend.Add(fmt.Sprintf("threshold %.2f", threshold), cut)

	if err := p.Save(4*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save histogram to %s", path)
	}
	return nil
}

// WriteCSV writes df with a header row to path.
func WriteCSV(df *dataframe.DataFrame, path string) error {
	if df == nil {
		return errors.NewValueError("WriteCSV", "nil frame")
	}
	if df.Err != nil {
		return errors.Wrap(df.Err, "WriteCSV")
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := df.WriteCSV(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
