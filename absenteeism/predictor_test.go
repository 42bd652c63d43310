package absenteeism

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/YuminosukeSato/absenteeism/core/model"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/YuminosukeSato/absenteeism/pkg/log"
	"github.com/YuminosukeSato/absenteeism/preprocessing"
	"github.com/YuminosukeSato/absenteeism/sklearn/linear_model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testCoefficients = []float64{2.8, 0.93, 3.1, 0.86, 0.16, 0.6, -0.17, 0.28, -0.21, 0.36, -0.29}
	testIntercept    = -1.65
	scaledColumns    = []string{ColMonth, ColTransportation, ColAge, ColBMI, ColChildren, ColPet}
)

const trainingCSV = csvHeader +
	"11,26,07/07/2015,289,36,33,239.554,30,1,2,1,4\n" +
	"36,0,14/07/2015,118,13,50,239.554,31,1,1,0,0\n" +
	"3,23,15/07/2015,179,51,38,239.554,31,1,0,0,2\n" +
	"7,7,16/07/2015,279,5,39,239.554,24,1,2,0,4\n" +
	"11,23,23/07/2015,289,36,33,239.554,30,1,2,1,2\n" +
	"3,23,10/10/2015,179,51,38,241.476,31,1,0,0,8\n" +
	"10,22,17/11/2015,361,52,28,308.593,27,1,1,4,8\n" +
	"20,1,05/01/2016,260,50,36,264.249,23,1,4,0,40\n"

const endToEndRow = "1,3,15/03/2020,289,36,33,239.554,30,1,2,1,0\n"

func frozenClassifier(t *testing.T, features []string) *linear_model.LogisticRegression {
	t.Helper()
	lr := linear_model.NewLogisticRegression()
	require.NoError(t, lr.ImportWeights(&model.ModelWeights{
		ModelType:    linear_model.ModelTypeLogisticRegression,
		Version:      "1",
		Coefficients: testCoefficients,
		Intercept:    testIntercept,
		Features:     features,
		IsFitted:     true,
	}))
	return lr
}

func trainingScaler(t *testing.T) *preprocessing.ColumnScaler {
	t.Helper()
	raw, err := ReadRaw(strings.NewReader(trainingCSV))
	require.NoError(t, err)
	features, err := BuildFeatures(raw)
	require.NoError(t, err)

	scaler := preprocessing.NewColumnScaler(scaledColumns)
	require.NoError(t, scaler.Fit(features))
	return scaler
}

func newTestPredictor(t *testing.T, opts ...Option) (*Predictor, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelDebug)
	opts = append([]Option{WithLogger(logger)}, opts...)
	p, err := NewPredictor(frozenClassifier(t, FeatureColumns), trainingScaler(t), opts...)
	require.NoError(t, err)
	return p, logger
}

func logistic(b0 float64, w, x []float64) float64 {
	z := b0
	for i := range w {
		z += w[i] * x[i]
	}
	return 1 / (1 + math.Exp(-z))
}

func TestPredictor_EndToEndSingleRow(t *testing.T) {
	p, _ := newTestPredictor(t)

	batch, err := p.LoadAndClean(strings.NewReader(csvHeader + endToEndRow))
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())

	pre := batch.Preprocessed
	assert.Equal(t, FeatureColumns, pre.Names())
	assert.Equal(t, []float64{1}, pre.Col(ColReason1).Float())
	assert.Equal(t, []float64{0}, pre.Col(ColReason2).Float())
	assert.Equal(t, []float64{0}, pre.Col(ColReason3).Float())
	assert.Equal(t, []float64{0}, pre.Col(ColReason4).Float())
	assert.Equal(t, []float64{3}, pre.Col(ColMonth).Float())
	assert.Equal(t, []float64{0}, pre.Col(ColEducation).Float())
	assert.Equal(t, []float64{289}, pre.Col(ColTransportation).Float())

	probs, err := p.PredictedProbability(batch)
	require.NoError(t, err)
	require.Len(t, probs, 1)
	assert.GreaterOrEqual(t, probs[0], 0.0)
	assert.LessOrEqual(t, probs[0], 1.0)

	want := logistic(testIntercept, testCoefficients, batch.Data.RawRowView(0))
	assert.InDelta(t, want, probs[0], 1e-12)

	labels, err := p.PredictedOutputCategory(batch)
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Contains(t, []int{0, 1}, labels[0])
	assert.Equal(t, probs[0] > 0.5, labels[0] == 1)
}

func TestPredictor_UnscaledIndicatorsPassThrough(t *testing.T) {
	p, _ := newTestPredictor(t)

	batch, err := p.LoadAndClean(strings.NewReader(csvHeader + endToEndRow))
	require.NoError(t, err)

	row := batch.Data.RawRowView(0)
	assert.Equal(t, 1.0, row[0], "Reason_1 is not scaled")
	assert.Equal(t, 0.0, row[8], "Education is not scaled")

	scaler := trainingScaler(t)
	age := (33 - scaler.Mean[2]) / math.Sqrt(scaler.Var[2])
	assert.InDelta(t, age, row[6], 1e-12)
}

func TestPredictor_ScoresIndependentOfBatch(t *testing.T) {
	p, _ := newTestPredictor(t)

	single, err := p.LoadAndClean(strings.NewReader(csvHeader + endToEndRow))
	require.NoError(t, err)
	mixed, err := p.LoadAndClean(strings.NewReader(trainingCSV + endToEndRow))
	require.NoError(t, err)

	alone, err := p.PredictedProbability(single)
	require.NoError(t, err)
	together, err := p.PredictedProbability(mixed)
	require.NoError(t, err)

	assert.InDelta(t, alone[0], together[len(together)-1], 1e-12)
}

func TestPredictor_BatchRefit(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	p, err := NewPredictor(frozenClassifier(t, FeatureColumns), nil, WithBatchRefit(true), WithLogger(logger))
	require.NoError(t, err)

	batch, err := p.LoadAndClean(strings.NewReader(trainingCSV))
	require.NoError(t, err)

	for j := range FeatureColumns {
		col := make([]float64, batch.Len())
		for i := range col {
			col[i] = batch.Data.At(i, j)
		}
		mean := 0.0
		for _, v := range col {
			mean += v
		}
		assert.InDelta(t, 0.0, mean/float64(len(col)), 1e-9, "column %s is centred", FeatureColumns[j])
	}
	assert.True(t, logger.ContainsMessage("Refitting scaler on batch"))
}

func TestPredictor_NilBatch(t *testing.T) {
	p, _ := newTestPredictor(t)

	probs, err := p.PredictedProbability(nil)
	assert.NoError(t, err)
	assert.Nil(t, probs)

	labels, err := p.PredictedOutputCategory(nil)
	assert.NoError(t, err)
	assert.Nil(t, labels)

	table, err := p.PredictedOutputs(nil)
	assert.NoError(t, err)
	assert.Nil(t, table)

	classes, err := p.Classify(nil)
	assert.NoError(t, err)
	assert.Nil(t, classes)

	ev, err := p.Evaluate(nil)
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestPredictor_PredictedOutputs(t *testing.T) {
	p, logger := newTestPredictor(t)

	batch, err := p.LoadAndClean(strings.NewReader(trainingCSV))
	require.NoError(t, err)

	table, err := p.PredictedOutputs(batch)
	require.NoError(t, err)
	require.NotNil(t, table)

	wantNames := append(append([]string(nil), FeatureColumns...), ColProbability, ColPrediction)
	assert.Equal(t, wantNames, table.Names())
	assert.Equal(t, batch.Len(), table.Nrow())
	assert.Equal(t, len(FeatureColumns), batch.Preprocessed.Ncol(), "batch frame is not modified")

	probs, err := p.PredictedProbability(batch)
	require.NoError(t, err)
	assert.InDeltaSlice(t, probs, table.Col(ColProbability).Float(), 1e-12)
	assert.Equal(t, batch.Preprocessed.Col(ColAge).Float(), table.Col(ColAge).Float())

	classified, err := p.Classify(batch)
	require.NoError(t, err)
	labels := table.Col(ColPrediction).Float()
	for i, c := range classified {
		assert.Equal(t, float64(c.Label), labels[i])
		assert.InDelta(t, probs[i], c.Probability, 1e-12)
	}

	assert.True(t, logger.ContainsMessage("Batch scored"))
	assert.True(t, logger.ContainsField(log.PredsKey, float64(batch.Len())))
}

func TestPredictor_LogsBatchLoad(t *testing.T) {
	p, logger := newTestPredictor(t)

	_, err := p.LoadAndClean(strings.NewReader(trainingCSV))
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Batch loaded"))
	assert.True(t, logger.ContainsField(log.SamplesKey, 8.0))
	assert.True(t, logger.ContainsField(log.FeaturesKey, 11.0))
	assert.True(t, logger.ContainsField(log.PhaseKey, log.PhasePreprocessing))
}

func TestPredictor_RejectsFeatureOrderMismatch(t *testing.T) {
	swapped := append([]string(nil), FeatureColumns...)
	swapped[5], swapped[6] = swapped[6], swapped[5]

	logger, _ := log.NewTestLogger(log.LevelDebug)
	p, err := NewPredictor(frozenClassifier(t, swapped), trainingScaler(t), WithLogger(logger))
	require.NoError(t, err)

	_, err = p.LoadAndClean(strings.NewReader(csvHeader + endToEndRow))
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr), "got %v", err)
}

func TestPredictor_LoadErrorsPropagate(t *testing.T) {
	p, _ := newTestPredictor(t)

	_, err := p.LoadAndClean(strings.NewReader(csvHeader + record(1, 1, "not a date", "1")))
	var parseErr *errors.ParseError
	assert.True(t, errors.As(err, &parseErr), "got %v", err)

	_, err = p.LoadAndCleanFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestNewPredictor_Validation(t *testing.T) {
	_, err := NewPredictor(nil, trainingScaler(t))
	assert.Error(t, err)

	_, err = NewPredictor(frozenClassifier(t, nil), nil)
	assert.Error(t, err)
}

func TestNewPredictorFromFiles(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model")
	scalerPath := filepath.Join(dir, "absenteeism_scaler")

	require.NoError(t, frozenClassifier(t, FeatureColumns).Save(modelPath))
	require.NoError(t, trainingScaler(t).Save(scalerPath))

	logger, _ := log.NewTestLogger(log.LevelDebug)
	loaded, err := NewPredictorFromFiles(modelPath, scalerPath, WithLogger(logger))
	require.NoError(t, err)
	assert.True(t, logger.ContainsMessage("Model loaded"))

	reference, _ := newTestPredictor(t)

	input := filepath.Join(dir, "input.csv")
	require.NoError(t, writeFile(input, trainingCSV))

	a, err := loaded.LoadAndCleanFile(input)
	require.NoError(t, err)
	b, err := reference.LoadAndClean(strings.NewReader(trainingCSV))
	require.NoError(t, err)

	got, err := loaded.PredictedProbability(a)
	require.NoError(t, err)
	want, err := reference.PredictedProbability(b)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, got, 1e-12)

	_, err = NewPredictorFromFiles(filepath.Join(dir, "nope"), scalerPath)
	assert.Error(t, err)
	_, err = NewPredictorFromFiles(modelPath, filepath.Join(dir, "nope"))
	assert.Error(t, err)
}
