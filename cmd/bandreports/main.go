// Package main provides the bandreports command.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/bandreports/bandreports/internal/config"
	"github.com/bandreports/bandreports/internal/di"
	"github.com/bandreports/bandreports/internal/logger"
	"github.com/bandreports/bandreports/internal/pipeline"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// stageFunc selects what a command runs.
type stageFunc func(p *pipeline.Pipeline, ctx context.Context) error

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bandreports",
		Short: "Turn top-scoring essays into categorized PDF reports",
		Long: `bandreports filters a scored essay dataset down to one band score,
renders one PDF report per prompt image and files the reports by topic.

Run without a subcommand to execute every stage in order.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runStage((*pipeline.Pipeline).Run),
	}
	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "filter",
			Short: "Write the records file from the source dataset",
			Args:  cobra.NoArgs,
			RunE:  runStage((*pipeline.Pipeline).Filter),
		},
		&cobra.Command{
			Use:   "render",
			Short: "Render one PDF report per image",
			Args:  cobra.NoArgs,
			RunE:  runStage((*pipeline.Pipeline).Render),
		},
		&cobra.Command{
			Use:   "categorize",
			Short: "Move rendered reports into per-topic directories",
			Args:  cobra.NoArgs,
			RunE:  runStage((*pipeline.Pipeline).Categorize),
		},
		&cobra.Command{
			Use:   "run",
			Short: "Filter, render and categorize",
			Args:  cobra.NoArgs,
			RunE:  runStage((*pipeline.Pipeline).Run),
		},
	)

	return root
}

func runStage(stage stageFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}

		injector := di.NewContainer(cfg)
		defer func() {
			if err := injector.Shutdown(); err != nil {
				fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
			}
		}()

		p, err := di.Bootstrap(injector)
		if err != nil {
			return err
		}

		err = stage(p, cmd.Context())
		if err != nil {
			log := do.MustInvoke[*logger.Logger](injector)
			log.WithField("command", cmd.Name()).WithError(err).Error("stage failed")
		}
		return err
	}
}
