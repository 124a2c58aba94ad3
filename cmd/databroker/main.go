package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zoff-tech/go-databroker/pkg/api"
	"github.com/zoff-tech/go-databroker/pkg/broker"
	"github.com/zoff-tech/go-databroker/pkg/cache"
	"github.com/zoff-tech/go-databroker/pkg/config"
	"github.com/zoff-tech/go-databroker/pkg/databroker"
	"github.com/zoff-tech/go-databroker/pkg/logging"
	"github.com/zoff-tech/go-databroker/pkg/management"
	"github.com/zoff-tech/go-databroker/pkg/metrics"
	"github.com/zoff-tech/go-databroker/pkg/populator"
	"github.com/zoff-tech/go-databroker/pkg/telemetry"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "databroker",
		Short:         "Provision broker exchanges for data streams and publish to them",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	var configDir string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the ingestion HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, configDir)
		},
	}
	serve.Flags().StringVarP(&configDir, "config", "c", "./cmd/databroker", "directory containing databroker.yaml")

	root.AddCommand(serve)
	return root
}

func run(ctx context.Context, configDir string) error {
	// Load configuration from file or environment
	cfg, err := config.LoadFromFile(configDir)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	shutdownTelemetry, err := telemetry.Init(cfg.Observability, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer shutdownTelemetry()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	mgmt, err := management.NewRabbitHoleClient(cfg.Management)
	if err != nil {
		return err
	}

	dataSettings := cfg.DataTransport()
	transport, err := broker.NewTransport(ctx, &dataSettings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize data transport: %w", err)
	}
	defer transport.Close()

	rawSettings := cfg.RawTransport()
	rawTransport, err := broker.NewTransport(ctx, &rawSettings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize raw transport: %w", err)
	}
	defer rawTransport.Close()

	existence := cache.New(cfg.Cache)
	go existence.Start()
	defer existence.Stop()

	// Warm-up failures only mean the cache starts empty
	go populator.New(mgmt, existence, cfg.Management.Vhost, cfg.Cache.RefreshInterval, logger, m).Run(ctx)

	svc, err := databroker.New(databroker.Options{
		Cache:        existence,
		Management:   mgmt,
		Transport:    transport,
		RawTransport: rawTransport,
		Vhost:        cfg.Management.Vhost,
		Logger:       logger,
		Metrics:      m,
	})
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", api.NewHandler(svc, logger))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening", "addr", cfg.Server.Addr, "vhost", cfg.Management.Vhost)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
