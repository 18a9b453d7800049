package intent

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, BackendTriton, cfg.Neural.Backend)
	assert.Equal(t, "localhost:8000", cfg.Neural.URL)
	assert.Equal(t, "intent_classifier", cfg.Neural.Model)
	assert.Equal(t, "1", cfg.Neural.ModelVersion)
	assert.Equal(t, "text", cfg.Neural.InputName)
	assert.Equal(t, "probabilities", cfg.Neural.OutputName)
	assert.Equal(t, 2*time.Second, cfg.Neural.Timeout)
	assert.Equal(t, DefaultThreshold, cfg.Threshold)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intent.yaml")
	data := `
neural:
  backend: onnx
  timeout: 750ms
  onnx:
    model_path: /models/intent.onnx
    max_seq_len: 64
rules:
  profile_file: profiles.yaml
threshold: 0.4
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, BackendONNX, cfg.Neural.Backend)
	assert.Equal(t, 750*time.Millisecond, cfg.Neural.Timeout)
	assert.Equal(t, "/models/intent.onnx", cfg.Neural.ONNX.ModelPath)
	assert.Equal(t, 64, cfg.Neural.ONNX.MaxSeqLen)
	assert.Equal(t, "profiles.yaml", cfg.Rules.ProfileFile)
	assert.Equal(t, 0.4, cfg.Threshold)
	assert.Equal(t, "intent_classifier", cfg.Neural.Model)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("INTENT_NEURAL_URL", "triton.internal:9000")
	t.Setenv("INTENT_THRESHOLD", "0.55")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "triton.internal:9000", cfg.Neural.URL)
	assert.Equal(t, 0.55, cfg.Threshold)
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("neural: [unterminated"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfigCreatesCacheDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache", "probs")
	t.Setenv("INTENT_NEURAL_CACHE_DIR", dir)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "intent.yaml")
	in := Config{
		Neural:    NeuralConfig{Backend: BackendNone, Timeout: 5 * time.Second},
		Threshold: 0.35,
	}
	require.NoError(t, SaveConfig(path, in))
	assert.NoFileExists(t, path+".tmp")

	out, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, BackendNone, out.Neural.Backend)
	assert.Equal(t, 5*time.Second, out.Neural.Timeout)
	assert.Equal(t, 0.35, out.Threshold)
}
