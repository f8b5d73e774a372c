// Package config holds the runtime configuration for the sentinel
// daemon: statistical constants, feature declaration, persistence
// paths, and the listen address for the monitor feed. Defaults follow
// the shipped baseline; any field can be overridden from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MaxFeatureDim is the hard cap on the feature vector dimension.
// Exceeding it is a startup misconfiguration, never a runtime state.
const MaxFeatureDim = 10

// DefaultFeatureKeys is the canonical feature order. It is declared
// once at startup and immutable for the lifetime of the process.
var DefaultFeatureKeys = []string{
	"cpu_percent",
	"ram_percent",
	"disk_read_rate",
	"disk_write_rate",
	"net_bytes_sent_rate",
	"net_bytes_recv_rate",
	"cpu_temperature",
}

// Config carries every tunable constant of the pipeline.
type Config struct {
	// Training
	TrainingSeconds int `yaml:"training_seconds"`

	// Statistical model
	LambdaShort        float64 `yaml:"lambda_short"`
	LambdaLong         float64 `yaml:"lambda_long"`
	EpsilonBase        float64 `yaml:"epsilon_base"`
	MaxConditionNumber float64 `yaml:"max_condition_number"`

	// Anomaly & contamination
	ContaminationLimit  float64 `yaml:"contamination_limit"`
	RiskAlertThreshold  float64 `yaml:"risk_alert_threshold"`
	AudioAlarmThreshold float64 `yaml:"audio_alarm_threshold"`

	// Drift (CUSUM)
	CusumK         float64 `yaml:"cusum_k"`
	CusumThreshold float64 `yaml:"cusum_threshold"`

	// Pipeline
	SmoothingWindow int      `yaml:"smoothing_window"`
	SampleRateHz    float64  `yaml:"sample_rate_hz"`
	FeatureKeys     []string `yaml:"feature_keys"`

	// Persistence & serving
	BaseDir    string `yaml:"base_dir"`
	ListenAddr string `yaml:"listen_addr"`

	// HistorySize is how many snapshots the in-memory ring buffer
	// keeps for hydrating new monitor clients.
	HistorySize int `yaml:"history_size"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		TrainingSeconds:     1800,
		LambdaShort:         0.01,
		LambdaLong:          0.001,
		EpsilonBase:         1e-4,
		MaxConditionNumber:  1e6,
		ContaminationLimit:  0.8,
		RiskAlertThreshold:  20.0,
		AudioAlarmThreshold: 25.0,
		CusumK:              0.05,
		CusumThreshold:      10.0,
		SmoothingWindow:     5,
		SampleRateHz:        1.0,
		FeatureKeys:         append([]string(nil), DefaultFeatureKeys...),
		BaseDir:             defaultBaseDir(),
		ListenAddr:          ":8080",
		HistorySize:         3600,
	}
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sentinel"
	}
	return filepath.Join(home, ".sentinel")
}

// Load returns the defaults overlaid with the YAML file at path.
// Keys absent from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects misconfigurations that must be fatal at startup.
func (c Config) Validate() error {
	if n := len(c.FeatureKeys); n == 0 {
		return fmt.Errorf("config: feature_keys must not be empty")
	} else if n > MaxFeatureDim {
		return fmt.Errorf("config: feature vector dimension %d exceeds maximum of %d", n, MaxFeatureDim)
	}
	if c.LambdaShort <= 0 || c.LambdaShort >= 1 {
		return fmt.Errorf("config: lambda_short %v outside (0,1)", c.LambdaShort)
	}
	if c.LambdaLong <= 0 || c.LambdaLong >= 1 {
		return fmt.Errorf("config: lambda_long %v outside (0,1)", c.LambdaLong)
	}
	if c.EpsilonBase <= 0 {
		return fmt.Errorf("config: epsilon_base must be positive")
	}
	if c.MaxConditionNumber <= 1 {
		return fmt.Errorf("config: max_condition_number must exceed 1")
	}
	if c.SampleRateHz <= 0 {
		return fmt.Errorf("config: sample_rate_hz must be positive")
	}
	if c.SmoothingWindow < 1 {
		return fmt.Errorf("config: smoothing_window must be at least 1")
	}
	if c.TrainingSeconds < 1 {
		return fmt.Errorf("config: training_seconds must be at least 1")
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("config: history_size must be at least 1")
	}
	return nil
}

// StateFile is the path of the scalar state JSON document.
func (c Config) StateFile() string { return filepath.Join(c.BaseDir, "state.json") }

// ShortModelFile is the path of the short-timescale model archive.
func (c Config) ShortModelFile() string { return filepath.Join(c.BaseDir, "model_short.bin") }

// LongModelFile is the path of the long-timescale model archive.
func (c Config) LongModelFile() string { return filepath.Join(c.BaseDir, "model_long.bin") }

// LogFile is the path of the engine log.
func (c Config) LogFile() string { return filepath.Join(c.BaseDir, "sentinel.log") }
