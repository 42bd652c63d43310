package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/absenteeism/core/model"
	"github.com/YuminosukeSato/absenteeism/core/parallel"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// rows above this count are copied into matrices in parallel
const parallelThreshold = 1000

// ColumnScaler standardizes a named subset of frame columns and passes every
// other column through unchanged. Output columns keep the input order.
//
// The numeric work is delegated to a StandardScaler fitted on the subset, so
// Mean and Var always describe Columns in the same order.
type ColumnScaler struct {
	// Columns are the names of the columns to standardize.
	Columns []string

	// Mean is the per-column mean observed by Fit.
	Mean []float64

	// Var is the per-column population variance observed by Fit.
	Var []float64

	// Scaler holds the fitted statistics applied by Transform.
	Scaler *StandardScaler
}

// ColumnScalerOption configures a ColumnScaler.
type ColumnScalerOption func(*ColumnScaler)

// WithColumnMean sets whether the column mean is subtracted.
func WithColumnMean(withMean bool) ColumnScalerOption {
	return func(c *ColumnScaler) {
		c.Scaler.WithMean = withMean
	}
}

// WithColumnStd sets whether columns are divided by their standard deviation.
func WithColumnStd(withStd bool) ColumnScalerOption {
	return func(c *ColumnScaler) {
		c.Scaler.WithStd = withStd
	}
}

// NewColumnScaler creates a ColumnScaler for columns. Mean subtraction and
// division by the standard deviation are both on by default.
//
// Example:
//
//	scaler := preprocessing.NewColumnScaler([]string{"Age", "Body Mass Index"})
//	scaled, err := scaler.FitTransform(df)
func NewColumnScaler(columns []string, opts ...ColumnScalerOption) *ColumnScaler {
	c := &ColumnScaler{
		Columns: append([]string(nil), columns...),
		Scaler:  NewStandardScalerDefault(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsFitted reports whether Fit has completed.
func (c *ColumnScaler) IsFitted() bool {
	return c.Scaler != nil && c.Scaler.IsFitted()
}

// Fit computes mean and variance of exactly the configured columns.
func (c *ColumnScaler) Fit(df dataframe.DataFrame) error {
	X, err := ColumnsMatrix("ColumnScaler.Fit", df, c.Columns)
	if err != nil {
		return err
	}
	if c.Scaler == nil {
		c.Scaler = NewStandardScalerDefault()
	}
	if err := c.Scaler.Fit(X); err != nil {
		return err
	}

	c.Var = append([]float64(nil), c.Scaler.Var...)
	c.Mean = make([]float64, len(c.Columns))
	for j := range c.Columns {
		c.Mean[j] = mat.Sum(X.ColView(j)) / float64(df.Nrow())
	}
	return nil
}

// Transform replaces the configured columns with (x - mean) / std and returns
// the full frame in its original column order.
func (c *ColumnScaler) Transform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if !c.IsFitted() {
		return dataframe.DataFrame{}, errors.NewNotFittedError("ColumnScaler", "Transform")
	}

	X, err := ColumnsMatrix("ColumnScaler.Transform", df, c.Columns)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	scaled, err := c.Scaler.Transform(X)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	position := make(map[string]int, len(c.Columns))
	for j, name := range c.Columns {
		position[name] = j
	}

	rows := df.Nrow()
	names := df.Names()
	cols := make([]series.Series, len(names))
	for k, name := range names {
		j, ok := position[name]
		if !ok {
			cols[k] = df.Col(name)
			continue
		}
		values := make([]float64, rows)
		mat.Col(values, j, scaled)
		cols[k] = series.New(values, series.Float, name)
	}

	out := dataframe.New(cols...)
	if out.Err != nil {
		return dataframe.DataFrame{}, errors.Wrap(out.Err, "ColumnScaler.Transform")
	}
	return out, nil
}

// FitTransform fits on df and transforms it.
func (c *ColumnScaler) FitTransform(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	if err := c.Fit(df); err != nil {
		return dataframe.DataFrame{}, err
	}
	return c.Transform(df)
}

// Save writes the scaler to filename in gob format.
func (c *ColumnScaler) Save(filename string) error {
	return model.SaveModel(c, filename)
}

// LoadColumnScaler reads a gob-encoded ColumnScaler written by Save.
func LoadColumnScaler(filename string) (*ColumnScaler, error) {
	c := &ColumnScaler{}
	if err := model.LoadModel(c, filename); err != nil {
		return nil, err
	}
	if !c.IsFitted() {
		return nil, errors.NewNotFittedError("ColumnScaler", "LoadColumnScaler")
	}
	return c, nil
}

func (c *ColumnScaler) String() string {
	withMean, withStd := true, true
	if c.Scaler != nil {
		withMean, withStd = c.Scaler.WithMean, c.Scaler.WithStd
	}
	return fmt.Sprintf("ColumnScaler(columns=%q, with_mean=%t, with_std=%t)", c.Columns, withMean, withStd)
}

// ColumnsMatrix copies the named columns of df, in the given order, into a
// dense rows × len(columns) matrix. A missing column yields a ColumnError.
func ColumnsMatrix(op string, df dataframe.DataFrame, columns []string) (*mat.Dense, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, op)
	}
	rows := df.Nrow()
	if rows == 0 || len(columns) == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}

	values := make([][]float64, len(columns))
	for j, name := range columns {
		s := df.Col(name)
		if s.Err != nil {
			return nil, errors.NewColumnError(op, name)
		}
		values[j] = s.Float()
	}

	X := mat.NewDense(rows, len(columns), nil)
	parallel.ParallelizeWithThreshold(rows, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			for j := range columns {
				X.Set(i, j, values[j][i])
			}
		}
	})
	return X, nil
}
