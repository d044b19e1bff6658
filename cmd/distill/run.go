package main

import (
	"context"
	"math/rand"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/distill-go/pkg/config"
	"github.com/XiaoConstantine/distill-go/pkg/core"
	"github.com/XiaoConstantine/distill-go/pkg/distill"
	"github.com/XiaoConstantine/distill-go/pkg/env"
	"github.com/XiaoConstantine/distill-go/pkg/errors"
	"github.com/XiaoConstantine/distill-go/pkg/logging"
	"github.com/XiaoConstantine/distill-go/pkg/metrics"
	"github.com/XiaoConstantine/distill-go/pkg/network"
)

func newRunCommand() *cobra.Command {
	var cfgPath string
	var loadPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one distillation run in the mode set by the config",
		Example: `  # Train a teacher and dump every visited state
  distill run --config configs/teacher.yaml

  # Collect a buffer with a frozen teacher checkpoint
  distill run --config configs/collect.yaml --load checkpoint/ckpt_299.json

  # Train a student from a collected buffer
  distill run --config configs/student.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			closeLogger, err := setupLogging(cfg.Logging)
			if err != nil {
				return err
			}
			defer closeLogger()

			rng := rand.New(rand.NewSource(cfg.Seed))
			environment, err := buildEnv(cfg.Env.Name, rng)
			if err != nil {
				return err
			}
			learner, err := network.NewLinear(
				environment.ObservationSize(), environment.NumActions(),
				cfg.Hyper.LearningRate, core.Device(cfg.Device), rng,
				network.WithCheckpointDir(cfg.Paths.CheckpointDir))
			if err != nil {
				return err
			}
			if loadPath != "" {
				if err := learner.LoadParams(loadPath); err != nil {
					return err
				}
			}

			sink, err := buildSink(cfg.Metrics)
			if err != nil {
				return err
			}
			defer sink.Close()

			runner, err := distill.New(cfg, distill.Deps{
				Env:     environment,
				Learner: learner,
				Sink:    sink,
				Rand:    rng,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runner.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to the run config file")
	cmd.Flags().StringVar(&loadPath, "load", "", "checkpoint file to initialize the learner from")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// setupLogging installs the global logger per the config and returns a
// cleanup that flushes file outputs.
func setupLogging(cfg config.LoggingConfig) (func(), error) {
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if cfg.File != "" {
		fileOut, err := logging.NewFileOutput(cfg.File)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, fileOut)
	}
	logger := logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(cfg.Level),
		Outputs:  outputs,
	})
	logging.SetLogger(logger)
	return func() {
		for _, out := range outputs {
			_ = out.Close()
		}
	}, nil
}

func buildEnv(name string, rng *rand.Rand) (core.Environment, error) {
	switch name {
	case "CartPole-v0", "CartPole-v1":
		return env.NewCartPole(rng), nil
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfig, "unknown environment"),
			errors.Fields{"env": name})
	}
}

func buildSink(cfg config.MetricsConfig) (metrics.Sink, error) {
	if !cfg.Log || cfg.SQLitePath == "" {
		return metrics.NopSink{}, nil
	}
	return metrics.NewSQLiteSink(cfg.SQLitePath, uuid.NewString())
}
