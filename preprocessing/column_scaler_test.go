package preprocessing

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]int{1, 0, 0, 1}, series.Int, "Reason_1"),
		series.New([]float64{20, 30, 40, 50}, series.Float, "Age"),
		series.New([]int{0, 1, 1, 0}, series.Int, "Education"),
		series.New([]float64{2, 2, 4, 4}, series.Float, "Children"),
	)
}

func TestColumnScaler_TransformsOnlySubset(t *testing.T) {
	df := sampleFrame()
	scaler := NewColumnScaler([]string{"Age", "Children"})

	out, err := scaler.FitTransform(df)
	require.NoError(t, err)

	assert.Equal(t, df.Names(), out.Names(), "column order must be preserved")
	assert.Equal(t, df.Col("Reason_1").Float(), out.Col("Reason_1").Float())
	assert.Equal(t, df.Col("Education").Float(), out.Col("Education").Float())

	assert.InDeltaSlice(t, []float64{35, 3}, scaler.Mean, 1e-12)
	assert.InDeltaSlice(t, []float64{125, 1}, scaler.Var, 1e-12)

	age := out.Col("Age").Float()
	sigma := math.Sqrt(125)
	assert.InDelta(t, (20-35)/sigma, age[0], 1e-12)
	assert.InDeltaSlice(t, []float64{-1, -1, 1, 1}, out.Col("Children").Float(), 1e-12)
}

func TestColumnScaler_MeanAndOneSigma(t *testing.T) {
	train := dataframe.New(series.New([]float64{10, 20, 30, 40}, series.Float, "Transportation Expense"))
	scaler := NewColumnScaler([]string{"Transportation Expense"})
	require.NoError(t, scaler.Fit(train))

	mu := scaler.Mean[0]
	sigma := math.Sqrt(scaler.Var[0])

	probe := dataframe.New(series.New([]float64{mu, mu + sigma}, series.Float, "Transportation Expense"))
	out, err := scaler.Transform(probe)
	require.NoError(t, err)

	got := out.Col("Transportation Expense").Float()
	assert.InDelta(t, 0.0, got[0], 1e-12)
	assert.InDelta(t, 1.0, got[1], 1e-12)
}

func TestColumnScaler_MissingColumn(t *testing.T) {
	scaler := NewColumnScaler([]string{"Age", "Pet"})

	err := scaler.Fit(sampleFrame())
	require.Error(t, err)

	var colErr *errors.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, "Pet", colErr.Column)
}

func TestColumnScaler_NotFitted(t *testing.T) {
	_, err := NewColumnScaler([]string{"Age"}).Transform(sampleFrame())

	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))
}

func TestColumnScaler_WithoutStd(t *testing.T) {
	scaler := NewColumnScaler([]string{"Age"}, WithColumnStd(false))
	out, err := scaler.FitTransform(sampleFrame())
	require.NoError(t, err)

	assert.InDeltaSlice(t, []float64{-15, -5, 5, 15}, out.Col("Age").Float(), 1e-12)
}

func TestColumnScaler_SaveLoad(t *testing.T) {
	df := sampleFrame()
	scaler := NewColumnScaler([]string{"Age", "Children"})
	require.NoError(t, scaler.Fit(df))

	path := filepath.Join(t.TempDir(), "absenteeism_scaler")
	require.NoError(t, scaler.Save(path))

	loaded, err := LoadColumnScaler(path)
	require.NoError(t, err)
	assert.Equal(t, scaler.Columns, loaded.Columns)
	assert.Equal(t, scaler.Mean, loaded.Mean)

	want, err := scaler.Transform(df)
	require.NoError(t, err)
	got, err := loaded.Transform(df)
	require.NoError(t, err)
	assert.Equal(t, want.Col("Age").Float(), got.Col("Age").Float())
}

func TestColumnsMatrix_Order(t *testing.T) {
	X, err := ColumnsMatrix("test", sampleFrame(), []string{"Children", "Age"})
	require.NoError(t, err)

	r, c := X.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 2.0, X.At(0, 0))
	assert.Equal(t, 20.0, X.At(0, 1))
}
