package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/machinestack/machine-monitor/internal/api"
	"github.com/machinestack/machine-monitor/internal/config"
	"github.com/machinestack/machine-monitor/internal/engine"
	"github.com/machinestack/machine-monitor/internal/metrics"
	"github.com/machinestack/machine-monitor/internal/mqtt"
	"github.com/machinestack/machine-monitor/internal/simulator"
	"github.com/machinestack/machine-monitor/internal/sink"
	"github.com/machinestack/machine-monitor/internal/stream"
	"github.com/machinestack/machine-monitor/internal/utils"
)

func main() {
	var configPath string
	var mode string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&mode, "mode", "all", "Which components to run: all, simulator, analyzer, or api")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	runSimulator := mode == "all" || mode == "simulator"
	runAnalyzer := mode == "all" || mode == "analyzer"
	runAPI := mode == "all" || mode == "api"
	if !runSimulator && !runAnalyzer && !runAPI {
		slog.Error("unknown mode", slog.String("mode", mode))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting machine-monitor", slog.String("mode", mode))

	if err := cfg.EnsureDirs(); err != nil {
		logger.Error("failed to create data directories", slog.Any("error", err))
		os.Exit(1)
	}

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	telemetryLog := stream.NewAppendLog(cfg.Paths.StreamFile)
	cursor := stream.NewCursor(cfg.Paths.CursorFile)
	analysisSink := sink.NewCSVSink(cfg.Paths.AnalysisFile)

	var publisher mqtt.Publisher = mqtt.NoopPublisher{}
	if runSimulator && cfg.MQTT.Enabled {
		real, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Topic)
		if err != nil {
			logger.Warn("mqtt side channel unavailable", slog.Any("error", err))
		} else {
			publisher = real
		}
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var wg sync.WaitGroup

	if runSimulator {
		machine := simulator.NewStateMachine(cfg.Status.Table(), nil)
		generator := simulator.NewGenerator(machine, nil)
		runner := simulator.NewRunner(logger, generator, telemetryLog, publisher, cfg.Simulator.Interval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runner.Run(ctx); err != nil {
				logger.Error("simulator exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	if runAnalyzer {
		analyzer := engine.NewAnalyzer(
			logger,
			telemetryLog,
			cursor,
			analysisSink,
			cfg.Metrics,
			cfg.Analyzer.WindowSize,
			cfg.Analyzer.Interval,
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := analyzer.Run(ctx); err != nil {
				logger.Error("analyzer exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	var apiServer *api.Server
	if runAPI {
		handlers := api.NewHandlers(logger, telemetryLog, analysisSink, cfg.Status.Statuses(), cfg.Status.Table())
		apiServer = api.NewServer(cfg.Server, logger, handlers)
		go func() {
			if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("api server exited", slog.Any("error", err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api server shutdown", slog.Any("error", err))
		}
		cancel()
	}

	if metricsServer != nil {
		metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server shutdown", slog.Any("error", err))
		}
		cancelMetrics()
	}

	// Loops finish their in-flight tick before returning.
	wg.Wait()
	logger.Info("machine-monitor stopped")
}
