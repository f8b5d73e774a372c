package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestDefaultConstants(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1800, cfg.TrainingSeconds)
	assert.Equal(t, 0.01, cfg.LambdaShort)
	assert.Equal(t, 0.001, cfg.LambdaLong)
	assert.Equal(t, 1e-4, cfg.EpsilonBase)
	assert.Equal(t, 1e6, cfg.MaxConditionNumber)
	assert.Equal(t, 0.8, cfg.ContaminationLimit)
	assert.Equal(t, 20.0, cfg.RiskAlertThreshold)
	assert.Equal(t, 0.05, cfg.CusumK)
	assert.Equal(t, 10.0, cfg.CusumThreshold)
	assert.Equal(t, 5, cfg.SmoothingWindow)
	assert.Equal(t, 1.0, cfg.SampleRateHz)
	assert.Equal(t, DefaultFeatureKeys, cfg.FeatureKeys)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentinel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"training_seconds: 60\nlambda_short: 0.05\nfeature_keys: [cpu_percent, ram_percent]\n",
	), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.TrainingSeconds)
	assert.Equal(t, 0.05, cfg.LambdaShort)
	assert.Equal(t, []string{"cpu_percent", "ram_percent"}, cfg.FeatureKeys)

	// Untouched keys keep their defaults.
	assert.Equal(t, 0.001, cfg.LambdaLong)
	assert.Equal(t, 20.0, cfg.RiskAlertThreshold)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("training_seconds: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRejectsDimensionOverflow(t *testing.T) {
	cfg := Default()
	cfg.FeatureKeys = make([]string, MaxFeatureDim+1)
	for i := range cfg.FeatureKeys {
		cfg.FeatureKeys[i] = string(rune('a' + i))
	}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLambdas(t *testing.T) {
	cfg := Default()
	cfg.LambdaShort = 1.0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.LambdaLong = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadRates(t *testing.T) {
	cfg := Default()
	cfg.SampleRateHz = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.SmoothingWindow = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.TrainingSeconds = 0
	assert.Error(t, cfg.Validate())
}

func TestArtefactPaths(t *testing.T) {
	cfg := Default()
	cfg.BaseDir = "/tmp/sentinel-test"

	assert.Equal(t, "/tmp/sentinel-test/state.json", cfg.StateFile())
	assert.Equal(t, "/tmp/sentinel-test/model_short.bin", cfg.ShortModelFile())
	assert.Equal(t, "/tmp/sentinel-test/model_long.bin", cfg.LongModelFile())
	assert.Equal(t, "/tmp/sentinel-test/sentinel.log", cfg.LogFile())
}
