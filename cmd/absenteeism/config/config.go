// Package config holds the run configuration of the absenteeism CLI. Values
// come from an optional YAML file and are overridden by command-line flags.
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/YuminosukeSato/absenteeism/absenteeism"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/YuminosukeSato/absenteeism/pkg/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Run describes one scoring run.
type Run struct {
	Model           string  `yaml:"model"`
	Scaler          string  `yaml:"scaler"`
	Input           string  `yaml:"input"`
	Output          string  `yaml:"output"`
	Plot            string  `yaml:"plot"`
	Bins            int     `yaml:"bins"`
	RefitScaler     bool    `yaml:"refit_scaler"`
	TargetThreshold float64 `yaml:"target_threshold"`
}

// Default returns the configuration used when no file is given. The model and
// scaler names match the files written by the training notebook.
func Default() *Run {
	return &Run{
		Model:           "model",
		Scaler:          "absenteeism_scaler",
		Bins:            10,
		TargetThreshold: absenteeism.DefaultTargetThreshold,
	}
}

// FromYaml reads path over the defaults. An empty path returns the defaults.
func FromYaml(path string) (*Run, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read yaml config file %s", path)
	}
	run, err := Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %s", path)
	}
	return run, nil
}

// Parse decodes YAML over the defaults and rejects unknown keys.
func Parse(raw []byte) (*Run, error) {
	run := Default()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	// an empty document leaves the defaults in place
	if err := dec.Decode(run); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "unable to decode yaml")
	}
	return run, nil
}

// Validate checks the fields every command needs.
func (r *Run) Validate() error {
	switch {
	case r.Input == "":
		return errors.NewValidationError("input", "is required", r.Input)
	case r.Model == "":
		return errors.NewValidationError("model", "is required", r.Model)
	case r.Scaler == "" && !r.RefitScaler:
		return errors.NewValidationError("scaler", "is required unless refit_scaler is set", r.Scaler)
	case r.Bins < 0:
		return errors.NewValidationError("bins", "must not be negative", r.Bins)
	}
	return nil
}

// Options converts the run into predictor options.
func (r *Run) Options(logger log.Logger) []absenteeism.Option {
	return []absenteeism.Option{
		absenteeism.WithLogger(logger),
		absenteeism.WithBatchRefit(r.RefitScaler),
		absenteeism.WithTargetThreshold(r.TargetThreshold),
	}
}

// RegisterFlags binds the run flags on fs to r, using r's values as defaults.
func RegisterFlags(fs *pflag.FlagSet, r *Run) {
	fs.StringVar(&r.Model, "model", r.Model, "path to the JSON model weights")
	fs.StringVar(&r.Scaler, "scaler", r.Scaler, "path to the gob-encoded scaler")
	fs.StringVar(&r.Input, "input", r.Input, "path to the absenteeism CSV to score")
	fs.StringVar(&r.Output, "output", r.Output, "path of the scored CSV (stdout when empty)")
	fs.StringVar(&r.Plot, "plot", r.Plot, "path of the probability histogram (png, svg or pdf)")
	fs.IntVar(&r.Bins, "bins", r.Bins, "number of histogram bins")
	fs.BoolVar(&r.RefitScaler, "refit-scaler", r.RefitScaler, "fit a fresh scaler on the input instead of using the trained one")
	fs.Float64Var(&r.TargetThreshold, "target-threshold", r.TargetThreshold, "absence hours above which a record is excessive")
}

// Merge copies into r the fields whose flags were set explicitly on fs.
func (r *Run) Merge(fs *pflag.FlagSet, flags *Run) {
	if fs.Changed("model") {
		r.Model = flags.Model
	}
	if fs.Changed("scaler") {
		r.Scaler = flags.Scaler
	}
	if fs.Changed("input") {
		r.Input = flags.Input
	}
	if fs.Changed("output") {
		r.Output = flags.Output
	}
	if fs.Changed("plot") {
		r.Plot = flags.Plot
	}
	if fs.Changed("bins") {
		r.Bins = flags.Bins
	}
	if fs.Changed("refit-scaler") {
		r.RefitScaler = flags.RefitScaler
	}
	if fs.Changed("target-threshold") {
		r.TargetThreshold = flags.TargetThreshold
	}
}

// Load reads the YAML file at path, applies explicitly set flags and
// validates the result.
func Load(path string, fs *pflag.FlagSet, flags *Run) (*Run, error) {
	run, err := FromYaml(path)
	if err != nil {
		return nil, err
	}
	run.Merge(fs, flags)
	if err := run.Validate(); err != nil {
		return nil, err
	}
	return run, nil
}
