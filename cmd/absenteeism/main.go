package main

import (
	"os"

	"github.com/YuminosukeSato/absenteeism/cmd/absenteeism/evaluate"
	"github.com/YuminosukeSato/absenteeism/cmd/absenteeism/score"
	"github.com/YuminosukeSato/absenteeism/pkg/errors"
	"github.com/YuminosukeSato/absenteeism/pkg/log"
	"github.com/spf13/cobra"
)

var (
	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

func main() {
	logLevel := defaultLogLevel
	logFormat := defaultLogFormat

	rootCommand := &cobra.Command{
		Use:          "absenteeism",
		Short:        "Score employee absence records for excessive absenteeism",
		Example:      "./absenteeism score --input Absenteeism_new_data.csv",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch logFormat {
			case "json":
				return log.SetupLogger(cmd.ErrOrStderr(), logLevel)
			case "console":
				return log.SetupConsoleLogger(cmd.ErrOrStderr(), logLevel)
			default:
				return errors.Newf("unsupported value %q for --log-format", logFormat)
			}
		},
	}
	rootCommand.AddCommand(score.ScoreCommand())
	rootCommand.AddCommand(evaluate.EvaluateCommand())

	rootCommand.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Specifies logging level for output logs (\"debug\", \"info\", \"warn\", \"error\")")
	rootCommand.PersistentFlags().StringVar(&logFormat, "log-format", defaultLogFormat, "Specifies logging format for output logs (\"console\", \"json\")")

	if err := rootCommand.Execute(); err != nil {
		log.GetLogger().Error("Command failed", err)
		os.Exit(1)
	}
}
