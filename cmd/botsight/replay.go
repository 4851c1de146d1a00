package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/botsight/internal/connector/scenario"
	"github.com/crimson-sun/botsight/internal/pipeline"
)

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Replay a scripted conversation from a YAML scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runReplay,
	}
	cmd.Flags().Int("workers", 1, "Concurrent dispatch workers; 1 keeps scenario order")
	return cmd
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := scenario.Load(args[0])
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	workers, _ := cmd.Flags().GetInt("workers")

	p := pipeline.New(scenario.New(sc), rt.inst,
		pipeline.WithWorkers(workers),
		pipeline.WithLogger(rt.logger),
		pipeline.WithMetrics(rt.metrics),
	)
	start := time.Now()
	runErr := p.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := rt.close(closeCtx); err != nil {
		rt.logger.Warn("closing destinations", "error", err)
	}
	rt.logger.Info("replay finished", "scenario", sc.Name, "steps", len(sc.Steps), "elapsed", time.Since(start))
	return runErr
}
