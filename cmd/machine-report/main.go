// machine-report runs the offline batch analysis over a complete telemetry
// log and prints per-metric statistics and anomalies.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/machinestack/machine-monitor/internal/config"
	"github.com/machinestack/machine-monitor/internal/report"
	"github.com/machinestack/machine-monitor/internal/stream"
	"github.com/machinestack/machine-monitor/internal/utils"
)

func main() {
	var configPath string
	var file string
	var threshold float64
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&file, "file", "", "Telemetry log to analyze (defaults to the configured stream file)")
	flag.Float64Var(&threshold, "threshold", report.DefaultThreshold, "Anomaly deviation threshold in percent")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)

	if file == "" {
		file = cfg.Paths.StreamFile
	}

	readings, skipped, err := stream.NewAppendLog(file).ReadAll()
	if err != nil {
		logger.Error("failed to read telemetry log", slog.String("file", file), slog.Any("error", err))
		os.Exit(1)
	}
	if skipped > 0 {
		logger.Warn("skipped malformed log lines", slog.Int("count", skipped))
	}
	if len(readings) == 0 {
		logger.Error("no readings found", slog.String("file", file))
		os.Exit(1)
	}

	rep := report.NewAnalyzer(threshold).Analyze(readings, cfg.Metrics)
	if err := rep.WriteText(os.Stdout); err != nil {
		logger.Error("failed to write report", slog.Any("error", err))
		os.Exit(1)
	}
}
