package linear_model

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/absenteeism/core/model"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ModelTypeLogisticRegression is the model_type written to exported weights.
const ModelTypeLogisticRegression = "LogisticRegression"

// weightsVersion is bumped when the exported weight layout changes.
const weightsVersion = "1"

// LogisticRegression implements logistic regression for classification.
// Compatible with scikit-learn's LogisticRegression for the binary case, which
// is also the only case that can be exported as weights.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	penalty      string  // Regularization: "l2" or "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	randomState  int64   // Random seed, negative for a random one
	maxIter      int     // Maximum iterations
	multiClass   string  // Multi-class: "auto", "ovr", "multinomial"
	tol          float64 // Tolerance for stopping
	threshold    float64 // Positive-class probability cut-off for binary Predict

	// Model parameters
	coef_         [][]float64 // n_classes x n_features, or 1 x n_features for binary
	intercept_    []float64
	classes_      []int
	nClasses_     int
	nFeatures_    int
	nIter_        []int
	featureNames_ []string

	rand *rand.Rand
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		randomState:  -1,
		maxIter:      100,
		multiClass:   "auto",
		tol:          1e-4,
		threshold:    0.5,
	}

	for _, opt := range opts {
		opt(lr)
	}

	seed := lr.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	lr.rand = rand.New(rand.NewSource(seed))

	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// WithLRMultiClass sets the multi-class strategy
func WithLRMultiClass(strategy string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.multiClass = strategy
	}
}

// WithLRFeatureNames records the ordered feature names the model expects.
func WithLRFeatureNames(names []string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.featureNames_ = append([]string(nil), names...)
	}
}

// Fit trains the logistic regression model with gradient descent.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 || nFeatures == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit", "y must be a column vector")
	}
	if len(lr.featureNames_) > 0 && len(lr.featureNames_) != nFeatures {
		return errors.NewDimensionError("LogisticRegression.Fit", len(lr.featureNames_), nFeatures, 1)
	}

	lr.extractClasses(y)
	if lr.nClasses_ < 2 {
		return errors.NewValueError("LogisticRegression.Fit", "y must contain at least two classes")
	}
	lr.nFeatures_ = nFeatures
	lr.initializeWeights(nFeatures)

	switch {
	case lr.nClasses_ == 2:
		if err := lr.fitBinaryForClass(X, lr.binaryTarget(y, lr.classes_[1]), 0); err != nil {
			return err
		}
	case lr.multiClass == "multinomial":
		return errors.Wrap(errors.ErrNotImplemented, "multinomial logistic regression")
	default:
		for classIdx, class := range lr.classes_ {
			if err := lr.fitBinaryForClass(X, lr.binaryTarget(y, class), classIdx); err != nil {
				return errors.Wrapf(err, "failed to fit class %d", class)
			}
		}
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// extractClasses identifies unique class labels in ascending order
func (lr *LogisticRegression) extractClasses(y mat.Matrix) {
	rows, _ := y.Dims()
	seen := make(map[int]bool)
	lr.classes_ = lr.classes_[:0]

	for i := 0; i < rows; i++ {
		label := int(y.At(i, 0))
		if !seen[label] {
			seen[label] = true
			lr.classes_ = append(lr.classes_, label)
		}
	}

	sort.Ints(lr.classes_)
	lr.nClasses_ = len(lr.classes_)
}

// initializeWeights initializes model weights with small random values
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	nModels := lr.nClasses_
	if nModels == 2 {
		nModels = 1
	}

	lr.coef_ = make([][]float64, nModels)
	for i := range lr.coef_ {
		lr.coef_[i] = make([]float64, nFeatures)
		for j := range lr.coef_[i] {
			lr.coef_[i][j] = lr.rand.NormFloat64() * 0.01
		}
	}
	lr.intercept_ = make([]float64, nModels)
	lr.nIter_ = make([]int, nModels)
}

func (lr *LogisticRegression) binaryTarget(y mat.Matrix, positive int) *mat.VecDense {
	n, _ := y.Dims()
	target := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if int(y.At(i, 0)) == positive {
			target.SetVec(i, 1.0)
		}
	}
	return target
}

// fitBinaryForClass fits one sigmoid model (row classIdx of coef_) against a
// 0/1 target.
func (lr *LogisticRegression) fitBinaryForClass(X mat.Matrix, target *mat.VecDense, classIdx int) error {
	nSamples, nFeatures := X.Dims()
	weights := lr.coef_[classIdx]
	intercept := &lr.intercept_[classIdx]

	const baseLearningRate = 1.0
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		gradWeights := make([]float64, nFeatures)
		gradIntercept := 0.0

		for i := 0; i < nSamples; i++ {
			z := *intercept
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * weights[j]
			}
			residual := sigmoid(z) - target.AtVec(i)
			gradIntercept += residual
			for j := 0; j < nFeatures; j++ {
				gradWeights[j] += residual * X.At(i, j)
			}
		}

		for j := range gradWeights {
			gradWeights[j] /= float64(nSamples)
		}
		gradIntercept /= float64(nSamples)

		if lr.penalty == "l2" {
			lambda := 1.0 / lr.C
			for j := range weights {
				gradWeights[j] += lambda * weights[j] / float64(nSamples)
			}
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		for j := range weights {
			weights[j] -= learningRate * gradWeights[j]
		}
		if lr.fitIntercept {
			*intercept -= learningRate * gradIntercept
		}
		if err := errors.CheckScalar("LogisticRegression.Fit", *intercept, iter); err != nil {
			return err
		}

		lr.nIter_[classIdx] = iter + 1

		maxGrad := math.Abs(gradIntercept)
		for _, g := range gradWeights {
			maxGrad = math.Max(maxGrad, math.Abs(g))
		}
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning(ModelTypeLogisticRegression, lr.maxIter, "gradient above tolerance"))
	}
	return nil
}

// DecisionFunction returns the linear score of every sample: one column for
// binary models, one column per class otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequireFitted(ModelTypeLogisticRegression, "DecisionFunction"); err != nil {
		return nil, err
	}

	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.nFeatures_ {
		return nil, errors.NewDimensionError("LogisticRegression.DecisionFunction", lr.nFeatures_, nFeatures, 1)
	}

	scores := mat.NewDense(nSamples, len(lr.coef_), nil)
	for i := 0; i < nSamples; i++ {
		for k, coef := range lr.coef_ {
			z := lr.intercept_[k]
			for j := 0; j < nFeatures; j++ {
				z += X.At(i, j) * coef[j]
			}
			scores.Set(i, k, z)
		}
	}
	return scores, nil
}

// Predict returns the predicted class label of every sample as an n × 1 matrix.
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	probas, err := lr.PredictProba(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := probas.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if lr.nClasses_ == 2 {
			label := lr.classes_[0]
			if probas.At(i, 1) > lr.threshold {
				label = lr.classes_[1]
			}
			predictions.Set(i, 0, float64(label))
			continue
		}

		best := 0
		for k := 1; k < lr.nClasses_; k++ {
			if probas.At(i, k) > probas.At(i, best) {
				best = k
			}
		}
		predictions.Set(i, 0, float64(lr.classes_[best]))
	}
	return predictions, nil
}

// PredictProba returns probability estimates for each class, columns ordered
// as Classes().
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}

	nSamples, _ := scores.Dims()
	probas := mat.NewDense(nSamples, lr.nClasses_, nil)

	if lr.nClasses_ == 2 {
		for i := 0; i < nSamples; i++ {
			p := sigmoid(scores.At(i, 0))
			probas.Set(i, 0, 1.0-p)
			probas.Set(i, 1, p)
		}
		return probas, nil
	}

	// softmax over the one-vs-rest scores
	for i := 0; i < nSamples; i++ {
		maxScore := math.Inf(-1)
		for k := 0; k < lr.nClasses_; k++ {
			maxScore = math.Max(maxScore, scores.At(i, k))
		}
		sum := 0.0
		for k := 0; k < lr.nClasses_; k++ {
			e := math.Exp(scores.At(i, k) - maxScore)
			probas.Set(i, k, e)
			sum += e
		}
		for k := 0; k < lr.nClasses_; k++ {
			probas.Set(i, k, probas.At(i, k)/sum)
		}
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Classes returns the class labels seen during fitting or import.
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// FeatureNames returns the ordered feature names the model was trained on, or
// nil when they were never recorded.
func (lr *LogisticRegression) FeatureNames() []string {
	return append([]string(nil), lr.featureNames_...)
}

// Coef returns the coefficients of the binary model.
func (lr *LogisticRegression) Coef() []float64 {
	if len(lr.coef_) == 0 {
		return nil
	}
	return append([]float64(nil), lr.coef_[0]...)
}

// Intercept returns the intercept of the binary model.
func (lr *LogisticRegression) Intercept() float64 {
	if len(lr.intercept_) == 0 {
		return 0
	}
	return lr.intercept_[0]
}

// NIter returns the number of gradient steps taken per fitted model.
func (lr *LogisticRegression) NIter() []int {
	return append([]int(nil), lr.nIter_...)
}

// IsFitted reports whether the model was fitted or imported.
func (lr *LogisticRegression) IsFitted() bool {
	return lr.state.IsFitted()
}

// ExportWeights exports the binary model as ModelWeights.
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted(ModelTypeLogisticRegression, "ExportWeights"); err != nil {
		return nil, err
	}
	if lr.nClasses_ != 2 {
		return nil, errors.NewValueError("LogisticRegression.ExportWeights", "only binary models can be exported")
	}

	return &model.ModelWeights{
		ModelType:       ModelTypeLogisticRegression,
		Version:         weightsVersion,
		Coefficients:    lr.Coef(),
		Intercept:       lr.Intercept(),
		Classes:         lr.Classes(),
		Features:        lr.FeatureNames(),
		Hyperparameters: lr.GetParams(),
		IsFitted:        true,
	}, nil
}

// ImportWeights loads a frozen binary model. Classes default to {0, 1}.
func (lr *LogisticRegression) ImportWeights(weights *model.ModelWeights) error {
	if weights == nil {
		return errors.NewValueError("LogisticRegression.ImportWeights", "weights are nil")
	}
	if err := weights.Validate(); err != nil {
		return err
	}
	if weights.ModelType != ModelTypeLogisticRegression {
		return errors.NewValidationError("model_type", "expected "+ModelTypeLogisticRegression, weights.ModelType)
	}
	if !weights.IsFitted {
		return errors.NewNotFittedError(ModelTypeLogisticRegression, "ImportWeights")
	}

	classes := weights.Classes
	if len(classes) == 0 {
		classes = []int{0, 1}
	}
	if len(classes) != 2 {
		return errors.NewValidationError("classes", "frozen model must be binary", classes)
	}

	lr.coef_ = [][]float64{append([]float64(nil), weights.Coefficients...)}
	lr.intercept_ = []float64{weights.Intercept}
	lr.classes_ = append([]int(nil), classes...)
	sort.Ints(lr.classes_)
	lr.nClasses_ = 2
	lr.nFeatures_ = len(weights.Coefficients)
	lr.nIter_ = []int{0}
	lr.featureNames_ = append([]string(nil), weights.Features...)

	lr.state.SetDimensions(lr.nFeatures_, 0)
	lr.state.SetFitted()
	return nil
}

// Save writes the exported weights as JSON to filename.
func (lr *LogisticRegression) Save(filename string) error {
	weights, err := lr.ExportWeights()
	if err != nil {
		return err
	}
	return model.SaveWeights(weights, filename)
}

// LoadLogisticRegression reads JSON weights written by Save.
func LoadLogisticRegression(filename string) (*LogisticRegression, error) {
	weights, err := model.LoadWeights(filename)
	if err != nil {
		return nil, err
	}
	lr := NewLogisticRegression()
	if err := lr.ImportWeights(weights); err != nil {
		return nil, errors.Wrapf(err, "load %s", filename)
	}
	return lr, nil
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"random_state":  lr.randomState,
		"max_iter":      lr.maxIter,
		"multi_class":   lr.multiClass,
		"tol":           lr.tol,
	}
}

// sigmoid computes the logistic function without overflowing exp
func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + errors.StabilizeExp(-z))
}

var (
	_ model.Fitter          = (*LogisticRegression)(nil)
	_ model.Classifier      = (*LogisticRegression)(nil)
	_ model.WeightExporter  = (*LogisticRegression)(nil)
	_ model.ParameterGetter = (*LogisticRegression)(nil)
)
