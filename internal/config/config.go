package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/machinestack/machine-monitor/internal/models"
)

// Config captures all settings required to run the monitor.
type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Server    ServerConfig    `yaml:"server"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Status    StatusConfig    `yaml:"status"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// PathsConfig locates the shared files both loops coordinate through.
type PathsConfig struct {
	DataDir      string `yaml:"dataDir"`
	StreamFile   string `yaml:"streamFile"`
	CursorFile   string `yaml:"cursorFile"`
	AnalysisFile string `yaml:"analysisFile"`
}

// ServerConfig controls the HTTP API and metrics listeners.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// SimulatorConfig controls the telemetry generator loop.
type SimulatorConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// AnalyzerConfig controls the streaming analysis loop.
type AnalyzerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	WindowSize int           `yaml:"windowSize"`
}

// MetricRange holds the expected and alert bounds for one numeric metric.
// Bounds are inclusive; a value on the boundary is in range.
type MetricRange struct {
	Unit        string  `yaml:"unit"`
	ExpectedMin float64 `yaml:"expectedMin"`
	ExpectedMax float64 `yaml:"expectedMax"`
	AlertMin    float64 `yaml:"alertMin"`
	AlertMax    float64 `yaml:"alertMax"`
}

// InExpected reports whether v lies inside the expected range.
func (r MetricRange) InExpected(v float64) bool {
	return v >= r.ExpectedMin && v <= r.ExpectedMax
}

// InAlert reports whether v lies inside the alert range.
func (r MetricRange) InAlert(v float64) bool {
	return v >= r.AlertMin && v <= r.AlertMax
}

// MetricsConfig groups per-metric ranges.
type MetricsConfig struct {
	Temperature MetricRange `yaml:"temperature"`
	Speed       MetricRange `yaml:"speed"`
}

// StatusConfig declares the status alphabet and transition graph.
type StatusConfig struct {
	Alphabet    []string            `yaml:"alphabet"`
	Transitions map[string][]string `yaml:"transitions"`
}

// Table converts the YAML transition map into the domain representation.
func (s StatusConfig) Table() map[models.Status][]models.Status {
	table := make(map[models.Status][]models.Status, len(s.Transitions))
	for from, targets := range s.Transitions {
		next := make([]models.Status, 0, len(targets))
		for _, t := range targets {
			next = append(next, models.Status(t))
		}
		table[models.Status(from)] = next
	}
	return table
}

// Statuses returns the configured alphabet as domain statuses.
func (s StatusConfig) Statuses() []models.Status {
	out := make([]models.Status, 0, len(s.Alphabet))
	for _, a := range s.Alphabet {
		out = append(out, models.Status(a))
	}
	return out
}

// MQTTConfig controls the optional reading side channel.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"clientID"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides,
// then validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MACHINE_MONITOR_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func defaultConfig() Config {
	transitions := make(map[string][]string)
	for from, targets := range models.DefaultTransitions() {
		next := make([]string, 0, len(targets))
		for _, t := range targets {
			next = append(next, string(t))
		}
		transitions[string(from)] = next
	}

	alphabet := make([]string, 0, len(models.AllStatuses()))
	for _, s := range models.AllStatuses() {
		alphabet = append(alphabet, string(s))
	}

	return Config{
		Paths: PathsConfig{
			DataDir:      "data",
			StreamFile:   "data/stream_output.jsonl",
			CursorFile:   "data/last_processed.txt",
			AnalysisFile: "data/analysis_output.csv",
		},
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Simulator: SimulatorConfig{Interval: time.Second},
		Analyzer:  AnalyzerConfig{Interval: 10 * time.Second, WindowSize: 5},
		Metrics: MetricsConfig{
			Temperature: MetricRange{
				Unit:        "Celsius",
				ExpectedMin: 15,
				ExpectedMax: 35,
				AlertMin:    10,
				AlertMax:    40,
			},
			Speed: MetricRange{
				Unit:        "RPM",
				ExpectedMin: 1000,
				ExpectedMax: 2000,
				AlertMin:    800,
				AlertMax:    2200,
			},
		},
		Status: StatusConfig{
			Alphabet:    alphabet,
			Transitions: transitions,
		},
		MQTT: MQTTConfig{
			Enabled:  false,
			Topic:    "machines/telemetry/readings",
			ClientID: "machine-monitor",
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

// Validate enforces configuration-time invariants: positive intervals and
// window size, alert ranges at least as wide as expected ranges, and a
// transition table closed over the alphabet.
func (c *Config) Validate() error {
	if c.Simulator.Interval <= 0 {
		return fmt.Errorf("simulator interval must be positive, got %s", c.Simulator.Interval)
	}
	if c.Analyzer.Interval <= 0 {
		return fmt.Errorf("analyzer interval must be positive, got %s", c.Analyzer.Interval)
	}
	if c.Analyzer.WindowSize < 1 {
		return fmt.Errorf("analyzer window size must be at least 1, got %d", c.Analyzer.WindowSize)
	}

	for name, r := range map[string]MetricRange{
		"temperature": c.Metrics.Temperature,
		"speed":       c.Metrics.Speed,
	} {
		if r.ExpectedMin > r.ExpectedMax {
			return fmt.Errorf("%s expected range is inverted", name)
		}
		if r.AlertMin > r.AlertMax {
			return fmt.Errorf("%s alert range is inverted", name)
		}
		if r.AlertMin > r.ExpectedMin || r.AlertMax < r.ExpectedMax {
			return fmt.Errorf("%s alert range [%g, %g] must contain expected range [%g, %g]",
				name, r.AlertMin, r.AlertMax, r.ExpectedMin, r.ExpectedMax)
		}
	}

	if len(c.Status.Alphabet) == 0 {
		return fmt.Errorf("status alphabet is empty")
	}
	alphabet := make(map[string]struct{}, len(c.Status.Alphabet))
	for _, s := range c.Status.Alphabet {
		alphabet[s] = struct{}{}
	}
	for from, targets := range c.Status.Transitions {
		if _, ok := alphabet[from]; !ok {
			return fmt.Errorf("transition source %q not in status alphabet", from)
		}
		for _, to := range targets {
			if _, ok := alphabet[to]; !ok {
				return fmt.Errorf("transition %s -> %s leaves the status alphabet", from, to)
			}
		}
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt enabled but no broker configured")
	}

	return nil
}

// EnsureDirs creates the directories the data files live in. Failure here is
// fatal at startup.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.Paths.DataDir}
	for _, file := range []string{c.Paths.StreamFile, c.Paths.CursorFile, c.Paths.AnalysisFile} {
		if dir := filepath.Dir(file); dir != "." {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MACHINE_MONITOR_DATA_DIR"); v != "" {
		cfg.Paths.DataDir = v
	}
	if v := os.Getenv("MACHINE_MONITOR_STREAM_FILE"); v != "" {
		cfg.Paths.StreamFile = v
	}
	if v := os.Getenv("MACHINE_MONITOR_CURSOR_FILE"); v != "" {
		cfg.Paths.CursorFile = v
	}
	if v := os.Getenv("MACHINE_MONITOR_ANALYSIS_FILE"); v != "" {
		cfg.Paths.AnalysisFile = v
	}
	if v := os.Getenv("MACHINE_MONITOR_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("MACHINE_MONITOR_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("MACHINE_MONITOR_SIM_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Simulator.Interval = d
		}
	}
	if v := os.Getenv("MACHINE_MONITOR_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.Interval = d
		}
	}
	if v := os.Getenv("MACHINE_MONITOR_WINDOW_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.WindowSize = n
		}
	}
	if v := os.Getenv("MACHINE_MONITOR_MQTT_ENABLED"); v != "" {
		cfg.MQTT.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("MACHINE_MONITOR_MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := os.Getenv("MACHINE_MONITOR_MQTT_TOPIC"); v != "" {
		cfg.MQTT.Topic = v
	}
	if v := os.Getenv("MACHINE_MONITOR_MQTT_CLIENT_ID"); v != "" {
		cfg.MQTT.ClientID = v
	}
	if v := os.Getenv("MACHINE_MONITOR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MACHINE_MONITOR_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
