package absenteeism

import "github.com/YuminosukeSato/absenteeism/pkg/log"

// DefaultTargetThreshold is the absence length, in hours, above which a record
// counts as excessive absenteeism. It is the median of the training data.
const DefaultTargetThreshold = 3.0

// Option configures a Predictor.
type Option func(*Predictor)

// WithLogger sets the logger used for batch and prediction events.
func WithLogger(logger log.Logger) Option {
	return func(p *Predictor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithBatchRefit makes LoadAndClean fit a fresh scaler over every feature
// column of each batch instead of applying the training-time scaler. Scores
// then depend on the batch composition.
func WithBatchRefit(refit bool) Option {
	return func(p *Predictor) {
		p.refit = refit
	}
}

// WithTargetThreshold sets the hour count Evaluate uses to label a record as
// excessive absenteeism.
func WithTargetThreshold(hours float64) Option {
	return func(p *Predictor) {
		p.targetThreshold = hours
	}
}
