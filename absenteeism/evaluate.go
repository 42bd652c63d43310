package absenteeism

import (
	"github.com/YuminosukeSato/absenteeism/metrics"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/YuminosukeSato/absenteeism/pkg/log"
	"github.com/YuminosukeSato/absenteeism/sklearn/drift"
	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
)

// Evaluation compares a scored batch with the absence hours it recorded.
type Evaluation struct {
	Samples   int                     `json:"samples"`
	Threshold float64                 `json:"threshold_hours"`
	Accuracy  float64                 `json:"accuracy"`
	AUC       float64                 `json:"auc"`
	LogLoss   float64                 `json:"log_loss"`
	Confusion metrics.ConfusionMatrix `json:"confusion"`
	Drift     drift.Report            `json:"drift"`
}

// ExcessiveAbsence labels each row 1 when its absence hours exceed threshold.
// Rows without a recorded duration are rejected.
func ExcessiveAbsence(raw dataframe.DataFrame, threshold float64) ([]int, error) {
	col := raw.Col(ColAbsenteeismHours)
	if col.Err != nil {
		return nil, errors.NewColumnError("ExcessiveAbsence", ColAbsenteeismHours)
	}

	labels := make([]int, col.Len())
	for i := range labels {
		hours, ok, err := numericCell(col.Elem(i), ColAbsenteeismHours, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.NewValidationError(ColAbsenteeismHours, "missing value", i)
		}
		if hours > threshold {
			labels[i] = 1
		}
	}
	return labels, nil
}

// Evaluate scores b and compares the result with the labels derived from its
// absenteeism hours column.
func (p *Predictor) Evaluate(b *Batch) (*Evaluation, error) {
	if b == nil {
		return nil, nil
	}
	targets, err := ExcessiveAbsence(b.Raw, p.targetThreshold)
	if err != nil {
		return nil, err
	}
	probs, labels, err := p.score(b)
	if err != nil {
		return nil, err
	}
	if len(targets) != len(labels) {
		return nil, errors.NewDimensionError("Predictor.Evaluate", len(targets), len(labels), 0)
	}

	n := len(targets)
	yTrue := mat.NewVecDense(n, nil)
	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		yTrue.SetVec(i, float64(targets[i]))
		yPred.SetVec(i, float64(labels[i]))
	}
	yProb := mat.NewVecDense(n, probs)

	ev := &Evaluation{Samples: n, Threshold: p.targetThreshold}
	if ev.Accuracy, err = metrics.Accuracy(yTrue, yPred); err != nil {
		return nil, err
	}
	if ev.AUC, err = metrics.AUC(yTrue, yProb); err != nil {
		return nil, err
	}
	if ev.LogLoss, err = metrics.BinaryLogLoss(yTrue, yProb); err != nil {
		return nil, err
	}
	if ev.Confusion, err = metrics.BinaryConfusionMatrix(yTrue, yPred); err != nil {
		return nil, err
	}

	// rows are in file order, which is chronological for absence logs
	correct := make([]bool, n)
	for i := range correct {
		correct[i] = targets[i] == labels[i]
	}
	ev.Drift = drift.NewDDM().Scan(correct)
	if ev.Drift.DriftDetected() {
		p.logger.Warn("Error rate drift detected",
			log.IterationKey, ev.Drift.DriftRow,
			log.SamplesKey, n,
		)
	}

	p.logger.Info("Batch evaluated",
		log.SamplesKey, n,
		log.ThresholdKey, p.targetThreshold,
		log.AccuracyKey, ev.Accuracy,
		log.AUCKey, ev.AUC,
	)
	return ev, nil
}
