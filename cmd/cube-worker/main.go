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
	"github.com/cuemby/cube/pkg/runtime"
	"github.com/cuemby/cube/pkg/worker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cube-worker",
	Short: "Cube worker node: runs tasks on this host's containerd",
	Long: `cube-worker polls a local task queue fed by the Manager's
StartTask/StopTask calls, runs each task through containerd, and
reports task and host stats back to whoever asks.`,
	RunE: runWorker,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides config")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWorker()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel, _ := cmd.Flags().GetString("log-level"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logJSON, _ := cmd.Flags().GetBool("log-json")

	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: logJSON})
	logger := log.WithComponent("cube-worker")

	if cfg.Name == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "worker"
		}
		cfg.Name = hostname
	}

	rt, err := runtime.NewContainerdRuntime(cfg.ContainerdSocket)
	if err != nil {
		return fmt.Errorf("failed to connect to containerd at %s: %w", cfg.ContainerdSocket, err)
	}
	defer rt.Close()

	w := worker.New(cfg.Name, rt)
	w.SetIntervals(cfg.RunLoopInterval, cfg.StatsLoopInterval)
	w.Start()
	defer w.Stop()

	router := api.NewWorkerRouter(w, logger)

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

	logger.Info().Str("addr", cfg.ListenAddr).Str("name", cfg.Name).Msg("cube-worker started")

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

	logger.Info().Msg("cube-worker stopped")
	return nil
}
