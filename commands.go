package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"payments-authorizenet/services/auth"
)

func newServeCommand() *cobra.Command {
	var withWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Start the payment pages, the internal API and, unless disabled, the refund worker.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			w := a.newWorker()
			if withWorker {
				w.Start(a.cfg.Redis.WorkerConcurrency)
			}

			srv := &http.Server{
				Addr:           ":" + a.cfg.Server.Port,
				Handler:        a.router(),
				ReadTimeout:    15 * time.Second,
				WriteTimeout:   a.cfg.AuthNet.Timeout + 15*time.Second,
				IdleTimeout:    120 * time.Second,
				MaxHeaderBytes: 1 << 20,
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("server starting", "port", a.cfg.Server.Port, "base_url", a.cfg.Server.BaseURL)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case <-quit:
				a.log.Info("shutdown signal received")
			case err := <-errCh:
				a.log.Error("server error", "error", err)
				w.Stop()
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				a.log.Error("server forced to shutdown", "error", err)
			}
			w.Stop()

			a.log.Info("server exited")
			return nil
		},
	}

	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "Run the refund worker in the server process")
	return cmd
}

func newWorkerCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the background job worker only",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if concurrency <= 0 {
				concurrency = a.cfg.Redis.WorkerConcurrency
			}
			w := a.newWorker()
			w.Start(concurrency)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			w.Stop()
			return nil
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "Worker goroutines (defaults to WORKER_CONCURRENCY)")
	return cmd
}

func newTokenCommand() *cobra.Command {
	var (
		service string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the internal API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := loadConfig()
			if cfg.Internal.JWTSecret == "" {
				return errors.New("INTERNAL_JWT_SECRET is required")
			}

			token, err := auth.NewJWTService(cfg.Internal.JWTSecret, cfg.Internal.Issuer).GenerateToken(service, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&service, "service", "s", "", "Calling service name embedded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenDuration, "Token lifetime")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func newRetryJobCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry-job <job-id>",
		Short: "Move a job from the failed list back onto the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := a.queue.RetryJob(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "job %s requeued\n", args[0])
			return nil
		},
	}
}
