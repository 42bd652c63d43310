package score

import (
	"io"

	"github.com/YuminosukeSato/absenteeism/absenteeism"
	"github.com/YuminosukeSato/absenteeism/cmd/absenteeism/config"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/YuminosukeSato/absenteeism/pkg/log"
	"github.com/YuminosukeSato/absenteeism/report"
	"github.com/YuminosukeSato/absenteeism/sklearn/linear_model"
	"github.com/spf13/cobra"
)

// DecisionThreshold is the probability above which the classifier predicts 1.
const DecisionThreshold = 0.5

func ScoreCommand() *cobra.Command {
	var configPath string
	flags := config.Default()

	scoreCommand := &cobra.Command{
		Use:     "score",
		Short:   "Score an absenteeism CSV",
		Example: "./absenteeism score --input Absenteeism_new_data.csv --output scored.csv --plot probabilities.png",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.Load(configPath, cmd.Flags(), flags)
			if err != nil {
				return err
			}
			return RunScore(run, log.GetLogger(), cmd.OutOrStdout())
		},
	}
	scoreCommand.Flags().StringVar(&configPath, "config", "", "path to yaml file with run configuration")
	config.RegisterFlags(scoreCommand.Flags(), flags)

	return scoreCommand
}

// LoadPredictor builds a predictor from the model and scaler files of run.
// With refit enabled and no scaler path only the model is loaded.
func LoadPredictor(run *config.Run, logger log.Logger) (*absenteeism.Predictor, error) {
	if run.RefitScaler && run.Scaler == "" {
		clf, err := linear_model.LoadLogisticRegression(run.Model)
		if err != nil {
			return nil, errors.Wrap(err, "load model")
		}
		return absenteeism.NewPredictor(clf, nil, run.Options(logger)...)
	}
	return absenteeism.NewPredictorFromFiles(run.Model, run.Scaler, run.Options(logger)...)
}

// RunScore scores run.Input and writes the augmented table to run.Output, or
// to stdout when no output path is set.
func RunScore(run *config.Run, logger log.Logger, stdout io.Writer) error {
	p, err := LoadPredictor(run, logger)
	if err != nil {
		return err
	}
	batch, err := p.LoadAndCleanFile(run.Input)
	if err != nil {
		return err
	}
	table, err := p.PredictedOutputs(batch)
	if err != nil {
		return err
	}

	if run.Output != "" {
		if err := report.WriteCSV(table, run.Output); err != nil {
			return err
		}
	} else if err := table.WriteCSV(stdout); err != nil {
		return errors.Wrap(err, "write scored table")
	}

	probs := table.Col(absenteeism.ColProbability).Float()
	summary, err := report.Summarize(probs, DecisionThreshold)
	if err != nil {
		return err
	}
	logger.Info("Scoring finished",
		log.SourceKey, run.Input,
		log.PredsKey, summary.Count,
		log.PositiveKey, summary.Positive,
		log.ThresholdKey, DecisionThreshold,
		log.PredsMeanKey, summary.Mean,
		log.PredsMedianKey, summary.Median,
	)

	if run.Plot != "" {
		if err := report.SaveProbabilityHistogram(probs, run.Bins, DecisionThreshold, run.Plot); err != nil {
			return err
		}
		logger.Debug("Histogram saved", log.OutputKey, run.Plot)
	}
	return nil
}
