package intent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultConfigName = "intent"
	envPrefix         = "INTENT"
)

// LoadConfig loads configuration from path, or from ./intent.yaml when path is empty.
// A missing file yields defaults. Environment variables prefixed with INTENT_
// override file values, e.g. INTENT_NEURAL_URL.
func LoadConfig(path string) (Config, error) {
	return LoadConfigFrom(viper.New(), path)
}

// LoadConfigFrom is LoadConfig on a caller-supplied viper instance, so command
// line flags bound to v take precedence over file and environment values.
func LoadConfigFrom(v *viper.Viper, path string) (Config, error) {
	bindDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if cfg.Neural.CacheDir != "" {
		if err := os.MkdirAll(cfg.Neural.CacheDir, 0o755); err != nil {
			return cfg, fmt.Errorf("create cache dir: %w", err)
		}
	}
	return cfg, nil
}

// bindDefaults registers every key so AutomaticEnv can see it during Unmarshal.
func bindDefaults(v *viper.Viper) {
	var d Config
	d.ApplyDefaults()
	v.SetDefault("neural.backend", d.Neural.Backend)
	v.SetDefault("neural.url", d.Neural.URL)
	v.SetDefault("neural.model", d.Neural.Model)
	v.SetDefault("neural.model_version", d.Neural.ModelVersion)
	v.SetDefault("neural.input_name", d.Neural.InputName)
	v.SetDefault("neural.output_name", d.Neural.OutputName)
	v.SetDefault("neural.timeout", d.Neural.Timeout)
	v.SetDefault("neural.cache_dir", "")
	v.SetDefault("neural.disable_cache", false)
	v.SetDefault("neural.onnx.ort_dll", "")
	v.SetDefault("neural.onnx.model_path", "")
	v.SetDefault("neural.onnx.tokenizer_path", "")
	v.SetDefault("neural.onnx.max_seq_len", d.Neural.ONNX.MaxSeqLen)
	v.SetDefault("rules.profile_file", "")
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", false)
}

// SaveConfig persists configuration to disk as YAML.
func SaveConfig(path string, cfg Config) error {
	if path == "" {
		path = defaultConfigName + ".yaml"
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	cfg.ApplyDefaults()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
