package absenteeism

import (
	"io"
	"os"
	"time"

	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/YuminosukeSato/absenteeism/pkg/log"
	"github.com/YuminosukeSato/absenteeism/preprocessing"
	"github.com/YuminosukeSato/absenteeism/sklearn/linear_model"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// Classifier is the frozen binary model. PredictProba returns one column per
// class with the positive class in column 1.
type Classifier interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// Standardizer scales a feature frame, keeping its column order.
type Standardizer interface {
	Fit(df dataframe.DataFrame) error
	Transform(df dataframe.DataFrame) (dataframe.DataFrame, error)
}

var (
	_ Classifier   = (*linear_model.LogisticRegression)(nil)
	_ Standardizer = (*preprocessing.ColumnScaler)(nil)
	_ featureNamer = (*linear_model.LogisticRegression)(nil)
)

// featureNamer is implemented by classifiers that remember their training
// column order.
type featureNamer interface {
	FeatureNames() []string
}

// Batch is one loaded and cleaned input file.
type Batch struct {
	// Raw is the input table as read, one string column per CSV column.
	Raw dataframe.DataFrame

	// Preprocessed holds the features before scaling, in FeatureColumns order.
	Preprocessed dataframe.DataFrame

	// Data is the scaled feature matrix fed to the classifier.
	Data *mat.Dense

	// Columns names the columns of Data.
	Columns []string
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	if b == nil || b.Data == nil {
		return 0
	}
	r, _ := b.Data.Dims()
	return r
}

// Classification pairs a predicted label with its positive-class probability.
type Classification struct {
	Label       int
	Probability float64
}

// Predictor scores absenteeism batches with a frozen classifier and scaler.
// It holds no per-batch state: every query takes the Batch it applies to, and a
// nil Batch yields a nil result without error.
type Predictor struct {
	clf             Classifier
	scaler          Standardizer
	logger          log.Logger
	refit           bool
	targetThreshold float64
}

// NewPredictor creates a Predictor. scaler may be nil only when batch refit is
// enabled.
func NewPredictor(clf Classifier, scaler Standardizer, opts ...Option) (*Predictor, error) {
	p := &Predictor{
		clf:             clf,
		scaler:          scaler,
		logger:          log.GetLogger().With(log.ComponentKey, "absenteeism"),
		targetThreshold: DefaultTargetThreshold,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.clf == nil {
		return nil, errors.NewValueError("NewPredictor", "classifier is required")
	}
	if p.scaler == nil && !p.refit {
		return nil, errors.NewValueError("NewPredictor", "scaler is required unless batch refit is enabled")
	}
	return p, nil
}

// NewPredictorFromFiles loads JSON logistic regression weights from modelPath
// and a gob-encoded ColumnScaler from scalerPath.
func NewPredictorFromFiles(modelPath, scalerPath string, opts ...Option) (*Predictor, error) {
	clf, err := linear_model.LoadLogisticRegression(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "load model")
	}
	scaler, err := preprocessing.LoadColumnScaler(scalerPath)
	if err != nil {
		return nil, errors.Wrap(err, "load scaler")
	}

	p, err := NewPredictor(clf, scaler, opts...)
	if err != nil {
		return nil, err
	}
	p.logger.Info("Model loaded",
		log.OperationKey, log.OperationLoad,
		log.ModelNameKey, linear_model.ModelTypeLogisticRegression,
		log.SourceKey, modelPath,
		log.FeaturesKey, len(clf.Coef()),
	)
	return p, nil
}

// LoadAndCleanFile opens path and calls LoadAndClean.
func (p *Predictor) LoadAndCleanFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	b, err := p.LoadAndClean(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return b, nil
}

// LoadAndClean reads a raw absenteeism CSV, derives the feature frame and
// scales it.
func (p *Predictor) LoadAndClean(r io.Reader) (b *Batch, err error) {
	defer errors.Recover(&err, "Predictor.LoadAndClean")
	start := time.Now()

	raw, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}
	features, err := BuildFeatures(raw)
	if err != nil {
		return nil, err
	}
	scaled, err := p.standardize(features)
	if err != nil {
		return nil, err
	}

	columns := scaled.Names()
	if err := p.checkFeatureOrder(columns); err != nil {
		return nil, err
	}

	X, err := preprocessing.ColumnsMatrix("Predictor.LoadAndClean", scaled, columns)
	if err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if err := errors.CheckMatrix("Predictor.LoadAndClean", X, rows, cols, 0); err != nil {
		return nil, err
	}

	p.logger.Info("Batch loaded",
		log.OperationKey, log.OperationTransform,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)

	return &Batch{
		Raw:          raw,
		Preprocessed: features,
		Data:         X,
		Columns:      columns,
	}, nil
}

func (p *Predictor) standardize(features dataframe.DataFrame) (dataframe.DataFrame, error) {
	if p.refit {
		p.logger.Debug("Refitting scaler on batch", log.OperationKey, log.OperationFitTransform)
		return preprocessing.NewColumnScaler(features.Names()).FitTransform(features)
	}
	return p.scaler.Transform(features)
}

func (p *Predictor) checkFeatureOrder(columns []string) error {
	named, ok := p.clf.(featureNamer)
	if !ok {
		return nil
	}
	want := named.FeatureNames()
	if len(want) == 0 {
		return nil
	}
	if len(want) != len(columns) {
		return errors.NewDimensionError("Predictor.LoadAndClean", len(want), len(columns), 1)
	}
	for i := range want {
		if want[i] != columns[i] {
			return errors.NewValidationError("features", "column order differs from the trained model", columns)
		}
	}
	return nil
}

// PredictedProbability returns the positive-class probability of every row.
func (p *Predictor) PredictedProbability(b *Batch) ([]float64, error) {
	if b == nil {
		return nil, nil
	}
	probas, err := p.clf.PredictProba(b.Data)
	if err != nil {
		return nil, errors.Wrap(err, "predict probabilities")
	}
	rows, cols := probas.Dims()
	if cols < 2 {
		return nil, errors.NewDimensionError("Predictor.PredictedProbability", 2, cols, 1)
	}

	out := mat.Col(nil, 1, probas)
	p.logger.Debug("Probabilities computed",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, rows,
	)
	return out, nil
}

// PredictedOutputCategory returns the predicted class (0 or 1) of every row.
func (p *Predictor) PredictedOutputCategory(b *Batch) ([]int, error) {
	if b == nil {
		return nil, nil
	}
	preds, err := p.clf.Predict(b.Data)
	if err != nil {
		return nil, errors.Wrap(err, "predict classes")
	}

	rows, _ := preds.Dims()
	out := make([]int, rows)
	for i := range out {
		out[i] = int(preds.At(i, 0))
	}
	return out, nil
}

// Classify returns the label and positive-class probability of every row.
func (p *Predictor) Classify(b *Batch) ([]Classification, error) {
	if b == nil {
		return nil, nil
	}
	probs, labels, err := p.score(b)
	if err != nil {
		return nil, err
	}

	out := make([]Classification, len(labels))
	for i := range out {
		out[i] = Classification{Label: labels[i], Probability: probs[i]}
	}
	return out, nil
}

// PredictedOutputs returns the unscaled feature frame with Probability and
// Prediction columns appended. b.Preprocessed is left unchanged.
func (p *Predictor) PredictedOutputs(b *Batch) (*dataframe.DataFrame, error) {
	if b == nil {
		return nil, nil
	}
	probs, labels, err := p.score(b)
	if err != nil {
		return nil, err
	}

	out := b.Preprocessed.
		Mutate(series.New(probs, series.Float, ColProbability)).
		Mutate(series.New(labels, series.Int, ColPrediction))
	if out.Err != nil {
		return nil, errors.Wrap(out.Err, "append predictions")
	}
	return &out, nil
}

func (p *Predictor) score(b *Batch) ([]float64, []int, error) {
	probs, err := p.PredictedProbability(b)
	if err != nil {
		return nil, nil, err
	}
	labels, err := p.PredictedOutputCategory(b)
	if err != nil {
		return nil, nil, err
	}
	if len(probs) != len(labels) {
		return nil, nil, errors.NewDimensionError("Predictor.score", len(probs), len(labels), 0)
	}

	positive := 0
	for _, l := range labels {
		positive += l
	}
	p.logger.Info("Batch scored",
		log.OperationKey, log.OperationPredict,
		log.PhaseKey, log.PhaseInference,
		log.PredsKey, len(labels),
		log.PositiveKey, positive,
	)
	return probs, labels, nil
}
