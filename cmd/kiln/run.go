package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/spetersoncode/kiln/config"
	"github.com/spetersoncode/kiln/internal/logging"
	"github.com/spetersoncode/kiln/pipeline"
)

var runFlags struct {
	file      string
	workers   int
	envFile   string
	logLevel  string
	logFormat string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a pipeline from a YAML spec",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.file, "file", "f", "pipeline.yaml", "pipeline spec file")
	runCmd.Flags().IntVar(&runFlags.workers, "workers", 0, "override the spec's worker count")
	runCmd.Flags().StringVar(&runFlags.envFile, "env", "", "load environment variables from this file before parsing the spec")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	logging.Init(logging.ParseLevel(runFlags.logLevel), runFlags.logFormat)
	log := slog.Default()

	if runFlags.envFile != "" {
		if err := godotenv.Load(runFlags.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else {
		// Best effort: a missing default .env is fine.
		_ = godotenv.Load()
	}

	spec, err := config.Load(runFlags.file)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []config.BuildOption{
		config.WithOnEvent(progressLogger(log)),
	}
	if runFlags.workers > 0 {
		opts = append(opts, config.WithWorkers(runFlags.workers))
	}

	p, err := spec.Build(ctx, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	report, err := p.Run(ctx)
	if report != nil {
		log.Info("run finished",
			"run_id", report.RunID,
			"total", report.Total,
			"processed", report.Processed,
			"failed", report.Failed,
			"duration", report.Duration.Round(time.Millisecond).String(),
		)
	}
	return err
}

// progressLogger adapts run events to leveled log lines.
func progressLogger(log *slog.Logger) pipeline.EventFunc {
	return func(ev pipeline.Event) {
		switch ev.Type {
		case pipeline.RunStart:
			log.Info("run started", "run_id", ev.RunID)
		case pipeline.StepFailed:
			log.Warn("step failed", "step", ev.Step, "index", ev.Index, "error", ev.Err)
		case pipeline.ItemFailed:
			log.Debug("item dropped", "index", ev.Index)
		case pipeline.ItemCompleted:
			log.Debug("item completed", "index", ev.Index)
		case pipeline.RunEnd:
			log.Info("run complete", "run_id", ev.RunID, "processed", ev.Processed, "failed", ev.Failed)
		}
	}
}
