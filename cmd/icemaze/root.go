package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/icemaze/internal/config"
	"github.com/copyleftdev/icemaze/internal/logging"
)

// errNoSolution makes the process exit with status 2.
var errNoSolution = errors.New("no valid solution found")

var (
	logLevel string

	cfg    *config.Config
	logger *logging.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:           "icemaze",
	Short:         "Solve ice mazes and evolve walls that lengthen them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		level := cfg.Logging.Level
		if logLevel != "" {
			level = logLevel
		}
		// stdout carries results; logs go to stderr unless configured otherwise
		output := cfg.Logging.Output
		if output == "stdout" {
			output = "stderr"
		}
		logger, err = logging.NewLogger(&logging.Config{
			Level:  level,
			Format: cfg.Logging.Format,
			Output: output,
		})
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.SetOut(os.Stdout)
}

func zapLogger() *zap.Logger {
	return logging.NewZapLogger(logger)
}
