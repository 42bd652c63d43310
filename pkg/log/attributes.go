package log

// Attribute keys shared by every component, grouped by concern. The dotted
// prefixes keep log queries simple ("data.*", "preds.*").
const (
	// ModelNameKey identifies the estimator, e.g. "LogisticRegression", "ColumnScaler".
	ModelNameKey = "model.name"

	// OperationKey is one of the Operation* values below.
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "ml.component"

	// PhaseKey is one of the Phase* values below.
	PhaseKey = "ml.phase"
)

const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnsKey  = "data.columns"
	SourceKey   = "data.source"
	OutputKey   = "data.output"
)

const (
	DurationMsKey = "perf.duration_ms"
	IterationKey  = "training.iteration"
)

// Prediction context.
const (
	// PredsKey is the number of rows scored.
	PredsKey = "preds.count"

	// PositiveKey is the number of rows predicted as the positive class.
	PositiveKey = "preds.positive"

	// ThresholdKey is the decision threshold applied to probabilities.
	ThresholdKey = "preds.threshold"

	PredsMeanKey   = "preds.mean"
	PredsMedianKey = "preds.median"
)

// Evaluation context.
const (
	AccuracyKey = "metrics.accuracy"
	AUCKey      = "metrics.auc"
)

const (
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationLoad         = "load"

	PhaseInference     = "inference"
	PhasePreprocessing = "preprocessing"
)
