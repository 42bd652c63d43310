package evaluate

import (
	"encoding/json"
	"io"

	"github.com/YuminosukeSato/absenteeism/cmd/absenteeism/config"
	"github.com/YuminosukeSato/absenteeism/cmd/absenteeism/score"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/YuminosukeSato/absenteeism/pkg/log"
	"github.com/spf13/cobra"
)

func EvaluateCommand() *cobra.Command {
	var configPath string
	flags := config.Default()

	evaluateCommand := &cobra.Command{
		Use:     "evaluate",
		Short:   "Compare predictions with recorded absence hours",
		Example: "./absenteeism evaluate --input Absenteeism_preprocessed.csv --target-threshold 3",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := config.Load(configPath, cmd.Flags(), flags)
			if err != nil {
				return err
			}
			return RunEvaluate(run, log.GetLogger(), cmd.OutOrStdout())
		},
	}
	evaluateCommand.Flags().StringVar(&configPath, "config", "", "path to yaml file with run configuration")
	config.RegisterFlags(evaluateCommand.Flags(), flags)

	return evaluateCommand
}

// RunEvaluate scores run.Input and writes the evaluation to stdout as JSON.
func RunEvaluate(run *config.Run, logger log.Logger, stdout io.Writer) error {
	p, err := score.LoadPredictor(run, logger)
	if err != nil {
		return err
	}
	batch, err := p.LoadAndCleanFile(run.Input)
	if err != nil {
		return err
	}
	ev, err := p.Evaluate(batch)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ev); err != nil {
		return errors.Wrap(err, "encode evaluation")
	}
	return nil
}
