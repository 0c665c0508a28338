package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"github.com/vibetunes/vibetunes-backend/clients"
	"github.com/vibetunes/vibetunes-backend/config"
	"github.com/vibetunes/vibetunes-backend/metrics"
	"github.com/vibetunes/vibetunes-backend/mood"
	"github.com/vibetunes/vibetunes-backend/orchestrator"
	"github.com/vibetunes/vibetunes-backend/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the mood detection HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, log, err := opts.load()
			if err != nil {
				return err
			}
			engine, err := mood.New(c.Engine)
			if err != nil {
				return err
			}

			reg := metrics.NewRegistry()
			clock := clockwork.NewRealClock()
			hf := clients.NewHTTP(clients.Options{
				Token:           c.HuggingFace.Token,
				Timeout:         config.DurSeconds(c.HuggingFace.TimeoutSeconds),
				RetryAttempts:   c.HuggingFace.RetryAttempts,
				RetryBackoff:    config.DurMillis(c.HuggingFace.RetryBackoffMS),
				BreakerFailures: c.HuggingFace.Breaker.Failures,
				BreakerOpen:     config.DurSeconds(c.HuggingFace.Breaker.OpenSeconds),
				Logger:          log,
			})
			pipeline := orchestrator.NewPipeline(c, hf, engine, metrics.NewDetection(reg),
				orchestrator.WithClock(clock),
				orchestrator.WithLogger(log),
			)
			srv := server.NewServer(c, pipeline, reg, clock, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errc := make(chan error, 1)
			go func() { errc <- srv.Start() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				log.Info("Shutdown signal received, shutting down gracefully")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
