// Package drift detects changes in a classifier's error rate over a stream of
// scored records.
package drift

import (
	"math"
	"sync"
)

// DDM is the Drift Detection Method of Gama et al. (2004). It tracks the
// running error rate p and its deviation s = sqrt(p(1-p)/n), remembers the
// point where p+s was lowest, and signals a warning or a drift once p+s rises
// WarningLevel or DriftLevel deviations above that minimum.
type DDM struct {
	minNumInstances int
	warningLevel    float64
	driftLevel      float64

	numInstances int
	numErrors    int
	errorRate    float64
	stdDev       float64
	minErrorRate float64
	minStdDev    float64

	mu sync.Mutex
}

// Result is the detector state after one update.
type Result struct {
	Warning   bool
	Drift     bool
	ErrorRate float64
}

// Report summarises a scan over a whole sequence. Row indexes are -1 when the
// level was never reached.
type Report struct {
	Rows       int     `json:"rows"`
	Errors     int     `json:"errors"`
	WarningRow int     `json:"warning_row"`
	DriftRow   int     `json:"drift_row"`
	ErrorRate  float64 `json:"error_rate"`
}

// DriftDetected reports whether the scan crossed the drift level.
func (r Report) DriftDetected() bool {
	return r.DriftRow >= 0
}

// Option configures a DDM.
type Option func(*DDM)

// WithMinInstances sets how many records are seen before any signal.
func WithMinInstances(n int) Option {
	return func(d *DDM) {
		d.minNumInstances = n
	}
}

// WithWarningLevel sets the warning level in deviations (default 2).
func WithWarningLevel(level float64) Option {
	return func(d *DDM) {
		d.warningLevel = level
	}
}

// WithDriftLevel sets the drift level in deviations (default 3).
func WithDriftLevel(level float64) Option {
	return func(d *DDM) {
		d.driftLevel = level
	}
}

// NewDDM creates a detector that starts signalling after 30 records.
func NewDDM(opts ...Option) *DDM {
	d := &DDM{
		minNumInstances: 30,
		warningLevel:    2.0,
		driftLevel:      3.0,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.reset()
	return d
}

// Update adds one prediction outcome. The detector restarts after a drift.
func (d *DDM) Update(correct bool) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.numInstances++
	if !correct {
		d.numErrors++
	}

	n := float64(d.numInstances)
	d.errorRate = float64(d.numErrors) / n
	d.stdDev = math.Sqrt(d.errorRate * (1 - d.errorRate) / n)
	result := Result{ErrorRate: d.errorRate}

	if d.numInstances < d.minNumInstances {
		return result
	}

	level := d.errorRate + d.stdDev
	if level < d.minErrorRate+d.minStdDev {
		d.minErrorRate = d.errorRate
		d.minStdDev = d.stdDev
	}

	switch {
	case level > d.minErrorRate+d.driftLevel*d.minStdDev:
		result.Drift = true
		result.Warning = true
		d.reset()
	case level > d.minErrorRate+d.warningLevel*d.minStdDev:
		result.Warning = true
	}
	return result
}

// Reset clears all statistics.
func (d *DDM) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

func (d *DDM) reset() {
	d.numInstances = 0
	d.numErrors = 0
	d.errorRate = 0
	d.stdDev = 0
	d.minErrorRate = math.Inf(1)
	d.minStdDev = math.Inf(1)
}

// Scan feeds outcomes in order and reports the first warning and drift rows.
func (d *DDM) Scan(correct []bool) Report {
	report := Report{Rows: len(correct), WarningRow: -1, DriftRow: -1}
	for i, ok := range correct {
		if !ok {
			report.Errors++
		}
		res := d.Update(ok)
		if res.Warning && report.WarningRow < 0 {
			report.WarningRow = i
		}
		if res.Drift && report.DriftRow < 0 {
			report.DriftRow = i
		}
	}
	if report.Rows > 0 {
		report.ErrorRate = float64(report.Errors) / float64(report.Rows)
	}
	return report
}
