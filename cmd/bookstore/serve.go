package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_bookstore/internal/config"
	"github.com/fjod/go_bookstore/internal/logger"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the outbox publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.HTTPPort = port
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "override HTTP_PORT")
	return cmd
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	log := logger.New("bookstore", os.Stdout, logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close(log)

	var workers sync.WaitGroup
	pollCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	if a.poller != nil {
		workers.Add(1)
		go func() {
			defer workers.Done()
			log.Info("outbox poller started", "topic", cfg.KafkaTopic)
			a.poller.Run(pollCtx)
		}()
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("bookstore starting", "port", cfg.HTTPPort, "receipt_delivery", cfg.ReceiptDelivery)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	a.drain()
	stopPoller()
	workers.Wait()

	log.Info("server exited")
	return nil
}
