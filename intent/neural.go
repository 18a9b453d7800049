package intent

import (
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"

	"yashubustudio/intentclassifier/internal/inference"
)

// ErrMalformedResponse marks a backend answer that does not fit the request.
var ErrMalformedResponse = inference.ErrMalformedResponse

// Backend runs the neural model. It returns one probability vector per input, in
// input order, indexed like the intent catalog.
type Backend interface {
	Infer(ctx context.Context, texts []string) ([][]float32, error)
	Name() string
}

// NeuralClient turns backend output into ScoreMaps and degrades to empty maps on
// failure. It never retries.
type NeuralClient struct {
	backend Backend
	timeout time.Duration
	cache   *probCache
	logger  *zap.Logger
}

// NewNeuralClient wraps backend. A nil backend yields a client that always reports
// NeuralDisabled.
func NewNeuralClient(backend Backend, cfg NeuralConfig, logger *zap.Logger) *NeuralClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &NeuralClient{
		backend: backend,
		timeout: cfg.Timeout,
		logger:  logger,
	}
	if backend != nil && !cfg.DisableCache {
		c.cache = newProbCache(cfg.CacheDir, backend.Name()+"@"+cfg.ModelVersion)
	}
	return c
}

// Enabled reports whether a backend is configured.
func (c *NeuralClient) Enabled() bool {
	return c != nil && c.backend != nil
}

// Close releases backend resources when the backend holds any.
func (c *NeuralClient) Close() error {
	if c == nil || c.backend == nil {
		return nil
	}
	if closer, ok := c.backend.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ClassifyOne scores a single text through a one-item batch.
func (c *NeuralClient) ClassifyOne(ctx context.Context, text string) NeuralResult {
	return c.ClassifyBatch(ctx, []string{text})[0]
}

// ClassifyBatch scores texts with at most one backend call. The result always has
// len(texts) entries in input order.
func (c *NeuralClient) ClassifyBatch(ctx context.Context, texts []string) []NeuralResult {
	out := make([]NeuralResult, len(texts))
	if len(texts) == 0 {
		return out
	}
	if !c.Enabled() {
		for i := range out {
			out[i] = NeuralResult{Scores: ScoreMap{}, Status: NeuralDisabled, Err: ErrNoBackend}
		}
		return out
	}

	misses := make([]int, 0, len(texts))
	for i, t := range texts {
		if c.cache != nil {
			if vec, ok := c.cache.lookup(t); ok {
				out[i] = NeuralResult{Scores: c.mapVector(vec), Status: NeuralOK}
				continue
			}
		}
		misses = append(misses, i)
	}
	if len(misses) == 0 {
		return out
	}

	batch := make([]string, len(misses))
	for j, i := range misses {
		batch[j] = texts[i]
	}

	vecs, err := c.infer(ctx, batch)
	if err != nil {
		c.logger.Warn("neural classification degraded",
			zap.String("backend", c.backend.Name()),
			zap.Int("batch", len(batch)),
			zap.Error(err),
		)
		for _, i := range misses {
			out[i] = NeuralResult{Scores: ScoreMap{}, Status: NeuralDegraded, Err: err}
		}
		return out
	}

	for j, i := range misses {
		out[i] = NeuralResult{Scores: c.mapVector(vecs[j]), Status: NeuralOK}
		if c.cache != nil {
			if err := c.cache.store(texts[i], vecs[j]); err != nil {
				c.logger.Debug("probability cache write failed", zap.Error(err))
			}
		}
	}
	return out
}

func (c *NeuralClient) infer(ctx context.Context, batch []string) ([][]float32, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	vecs, err := c.backend.Infer(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("%s infer: %w", c.backend.Name(), err)
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("%w: %d vectors for %d inputs", ErrMalformedResponse, len(vecs), len(batch))
	}
	return vecs, nil
}

// mapVector resolves positions through the catalog. Positions past the catalog
// collapse onto Unknown so schema drift stays visible.
func (c *NeuralClient) mapVector(vec []float32) ScoreMap {
	scores := make(ScoreMap, len(vec))
	drift := 0
	for idx, p := range vec {
		name := NameForIndex(idx)
		v := clamp01(float64(p))
		if idx >= CatalogSize() {
			drift++
		}
		if prev, ok := scores[name]; ok && prev >= v {
			continue
		}
		scores[name] = v
	}
	if drift > 0 {
		c.logger.Warn("neural output exceeds intent catalog",
			zap.Int("vector_len", len(vec)),
			zap.Int("catalog_size", CatalogSize()),
		)
	}
	return scores
}

func clamp01(x float64) float64 {
	if x < 0 || math.IsNaN(x) {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// NewBackend builds the backend selected by cfg.Backend. BackendNone returns nil.
func NewBackend(cfg NeuralConfig) (Backend, error) {
	switch cfg.Backend {
	case BackendNone:
		return nil, nil
	case BackendTriton, "":
		client, err := inference.NewTritonClient(inference.TritonConfig{
			URL:          cfg.URL,
			Model:        cfg.Model,
			ModelVersion: cfg.ModelVersion,
			InputName:    cfg.InputName,
			OutputName:   cfg.OutputName,
		})
		if err != nil {
			return nil, fmt.Errorf("init triton backend: %w", err)
		}
		return client, nil
	case BackendONNX:
		sess, err := inference.NewOrtSession(inference.OrtConfig{
			SharedLibrary: cfg.ONNX.OrtDLL,
			ModelPath:     cfg.ONNX.ModelPath,
			TokenizerPath: cfg.ONNX.TokenizerPath,
			MaxSeqLen:     cfg.ONNX.MaxSeqLen,
			NumLabels:     CatalogSize(),
		})
		if err != nil {
			return nil, fmt.Errorf("init onnx backend: %w", err)
		}
		return sess, nil
	default:
		return nil, fmt.Errorf("unknown neural backend %q", cfg.Backend)
	}
}
