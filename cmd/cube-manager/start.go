package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/cube/pkg/api"
	"github.com/cuemby/cube/pkg/config"
	"github.com/cuemby/cube/pkg/log"
	"github.com/cuemby/cube/pkg/manager"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the manager daemon",
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadManager()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: logJSON})
	logger := log.WithComponent("cube-manager")

	if len(cfg.Workers) == 0 {
		logger.Warn().Msg("no workers configured; dispatch will fail until some are added")
	}

	m := manager.New(cfg.Workers)
	m.SetIntervals(cfg.DispatchInterval, cfg.ReconcileInterval)
	m.Start()
	defer m.Stop()

	router := api.NewManagerRouter(m, logger)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	httpSrv := &http.Server{Handler: router}
	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info().Str("addr", cfg.ListenAddr).Strs("workers", cfg.Workers).Msg("cube-manager started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("cube-manager stopped")
	return nil
}
