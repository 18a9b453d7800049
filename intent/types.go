package intent

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrUnknownIntent marks a name outside the catalog.
	ErrUnknownIntent = errors.New("unknown intent")
	// ErrNoBackend is reported when the neural side is not configured.
	ErrNoBackend = errors.New("neural backend not configured")
)

// ScoreMap maps intent names to confidences in [0, 1]. Absent intents score 0.
type ScoreMap map[string]float64

// Get returns the score for name, 0 when absent.
func (m ScoreMap) Get(name string) float64 {
	return m[name]
}

// Clone copies the map.
func (m ScoreMap) Clone() ScoreMap {
	out := make(ScoreMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Ranked returns every entry sorted by score descending, ties by name ascending.
func (m ScoreMap) Ranked() []Score {
	out := make([]Score, 0, len(m))
	for name, v := range m {
		out = append(out, Score{Intent: name, Score: v})
	}
	sortScores(out)
	return out
}

// Score is a single intent with its confidence.
type Score struct {
	Intent string  `json:"intent"`
	Score  float64 `json:"score"`
}

func sortScores(s []Score) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score == s[j].Score {
			return s[i].Intent < s[j].Intent
		}
		return s[i].Score > s[j].Score
	})
}

// NeuralStatus tells callers whether the neural scores can be trusted.
type NeuralStatus string

const (
	// NeuralOK means the backend answered and the scores are its output.
	NeuralOK NeuralStatus = "ok"
	// NeuralDegraded means the call failed and Scores is empty.
	NeuralDegraded NeuralStatus = "degraded"
	// NeuralDisabled means no backend is configured.
	NeuralDisabled NeuralStatus = "disabled"
)

// NeuralResult is the outcome of one neural classification.
type NeuralResult struct {
	Scores ScoreMap     `json:"scores"`
	Status NeuralStatus `json:"status"`
	Err    error        `json:"-"`
}

// OK reports whether the backend produced the scores.
func (r NeuralResult) OK() bool {
	return r.Status == NeuralOK
}

// Result holds every signal produced for one utterance.
type Result struct {
	Text       string       `json:"text"`
	Normalized string       `json:"normalized"`
	Rule       ScoreMap     `json:"rule"`
	Neural     NeuralResult `json:"neural"`
	Fused      ScoreMap     `json:"fused"`
}

// NeuralConfig selects and tunes the neural backend.
type NeuralConfig struct {
	Backend      string        `mapstructure:"backend" yaml:"backend"`
	URL          string        `mapstructure:"url" yaml:"url"`
	Model        string        `mapstructure:"model" yaml:"model"`
	ModelVersion string        `mapstructure:"model_version" yaml:"model_version"`
	InputName    string        `mapstructure:"input_name" yaml:"input_name"`
	OutputName   string        `mapstructure:"output_name" yaml:"output_name"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	CacheDir     string        `mapstructure:"cache_dir" yaml:"cache_dir"`
	DisableCache bool          `mapstructure:"disable_cache" yaml:"disable_cache"`
	ONNX         ONNXConfig    `mapstructure:"onnx" yaml:"onnx"`
}

// ONNXConfig configures the local ONNX Runtime backend.
type ONNXConfig struct {
	OrtDLL        string `mapstructure:"ort_dll" yaml:"ort_dll"`
	ModelPath     string `mapstructure:"model_path" yaml:"model_path"`
	TokenizerPath string `mapstructure:"tokenizer_path" yaml:"tokenizer_path"`
	MaxSeqLen     int    `mapstructure:"max_seq_len" yaml:"max_seq_len"`
}

// RulesConfig points at an optional profile override file.
type RulesConfig struct {
	ProfileFile string `mapstructure:"profile_file" yaml:"profile_file"`
}

// LogConfig controls the zap logger built by the binaries.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// Config aggregates runtime settings.
type Config struct {
	Neural    NeuralConfig `mapstructure:"neural" yaml:"neural"`
	Rules     RulesConfig  `mapstructure:"rules" yaml:"rules"`
	Threshold float64      `mapstructure:"threshold" yaml:"threshold"`
	Log       LogConfig    `mapstructure:"log" yaml:"log"`
}

// Backend names accepted in NeuralConfig.Backend.
const (
	BackendTriton = "triton"
	BackendONNX   = "onnx"
	BackendNone   = "none"
)

// ApplyDefaults populates zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Neural.Backend == "" {
		c.Neural.Backend = BackendTriton
	}
	if c.Neural.URL == "" {
		c.Neural.URL = "localhost:8000"
	}
	if c.Neural.Model == "" {
		c.Neural.Model = "intent_classifier"
	}
	if c.Neural.ModelVersion == "" {
		c.Neural.ModelVersion = "1"
	}
	if c.Neural.InputName == "" {
		c.Neural.InputName = "text"
	}
	if c.Neural.OutputName == "" {
		c.Neural.OutputName = "probabilities"
	}
	if c.Neural.Timeout <= 0 {
		c.Neural.Timeout = 2 * time.Second
	}
	if c.Neural.ONNX.MaxSeqLen <= 0 {
		c.Neural.ONNX.MaxSeqLen = 128
	}
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
