package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/botsight/internal/connector/httpapi"
	"github.com/crimson-sun/botsight/internal/pipeline"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept activities over HTTP and track them",
		Long: `Listens for Bot Framework activities on POST /api/messages and for
tracking events on POST /api/events/{intent|qna|custom|goal}.
Prometheus metrics are served on /metrics and liveness on /healthz.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("listen", "", "Listen address; overrides config")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	addr := rt.cfg.ListenAddr
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		addr = listen
	}

	source := httpapi.New(httpapi.WithMetrics(rt.metrics), httpapi.WithLogger(rt.logger))
	p := pipeline.New(source, rt.inst,
		pipeline.WithWorkers(rt.cfg.Workers),
		pipeline.WithLogger(rt.logger),
		pipeline.WithMetrics(rt.metrics),
	)

	mux := http.NewServeMux()
	mux.Handle("/api/", source)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var g errgroup.Group
	g.Go(func() error {
		// The pipeline ends when the source channel closes, after the
		// server has stopped accepting requests.
		return p.Run(context.WithoutCancel(ctx))
	})
	g.Go(func() error {
		rt.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			return err
		}
		return nil
	})

	<-ctx.Done()
	rt.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	_ = source.Close()
	if gerr := g.Wait(); gerr != nil {
		err = errors.Join(err, gerr)
	}
	if cerr := rt.close(shutdownCtx); cerr != nil {
		rt.logger.Warn("closing destinations", "error", cerr)
	}
	return err
}
