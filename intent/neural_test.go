package intent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// fakeBackend returns canned vectors and counts calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls int
	seen  [][]string
	infer func(ctx context.Context, texts []string) ([][]float32, error)
}

func (f *fakeBackend) Infer(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls++
	f.seen = append(f.seen, append([]string(nil), texts...))
	f.mu.Unlock()
	return f.infer(ctx, texts)
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// oneHot returns a catalog-sized vector with p at the index of name.
func oneHot(name string, p float32) []float32 {
	vec := make([]float32, CatalogSize())
	vec[IndexForName(name)] = p
	return vec
}

func constBackend(vec []float32) *fakeBackend {
	return &fakeBackend{infer: func(_ context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = append([]float32(nil), vec...)
		}
		return out, nil
	}}
}

func failingBackend(err error) *fakeBackend {
	return &fakeBackend{infer: func(context.Context, []string) ([][]float32, error) {
		return nil, err
	}}
}

var noCache = NeuralConfig{DisableCache: true}

func TestNeuralClientMapsCatalog(t *testing.T) {
	c := NewNeuralClient(constBackend(oneHot(OrderRelated, 0.75)), noCache, nil)

	res := c.ClassifyOne(context.Background(), "want order")

	require.True(t, res.OK())
	assert.NoError(t, res.Err)
	assert.Len(t, res.Scores, CatalogSize())
	assert.InDelta(t, 0.75, res.Scores[OrderRelated], 1e-6)
	assert.Zero(t, res.Scores[EnquiryMenu])
}

func TestNeuralClientDisabled(t *testing.T) {
	c := NewNeuralClient(nil, NeuralConfig{}, nil)
	assert.False(t, c.Enabled())

	results := c.ClassifyBatch(context.Background(), []string{"a", "b"})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, NeuralDisabled, r.Status)
		assert.ErrorIs(t, r.Err, ErrNoBackend)
		assert.Empty(t, r.Scores)
	}
	assert.NoError(t, c.Close())
}

func TestNeuralClientDegradesOnError(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewNeuralClient(failingBackend(boom), noCache, nil)

	results := c.ClassifyBatch(context.Background(), []string{"a", "b", "c"})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, NeuralDegraded, r.Status)
		assert.ErrorIs(t, r.Err, boom)
		assert.NotNil(t, r.Scores)
		assert.Empty(t, r.Scores)
	}
}

func TestNeuralClientLengthMismatch(t *testing.T) {
	b := &fakeBackend{infer: func(context.Context, []string) ([][]float32, error) {
		return [][]float32{oneHot(General, 1)}, nil
	}}
	c := NewNeuralClient(b, noCache, nil)

	results := c.ClassifyBatch(context.Background(), []string{"a", "b"})

	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, NeuralDegraded, r.Status)
		assert.ErrorIs(t, r.Err, ErrMalformedResponse)
	}
}

func TestNeuralClientTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	b := &fakeBackend{infer: func(ctx context.Context, _ []string) ([][]float32, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := NewNeuralClient(b, NeuralConfig{Timeout: 20 * time.Millisecond, DisableCache: true}, nil)

	res := c.ClassifyOne(context.Background(), "slow")

	assert.Equal(t, NeuralDegraded, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestNeuralClientSchemaDrift(t *testing.T) {
	vec := make([]float32, CatalogSize()+3)
	vec[0] = 1.7
	vec[1] = -0.2
	vec[CatalogSize()] = 0.1
	vec[CatalogSize()+1] = 0.4
	vec[CatalogSize()+2] = 0.2
	c := NewNeuralClient(constBackend(vec), noCache, nil)

	res := c.ClassifyOne(context.Background(), "x")

	require.True(t, res.OK())
	assert.Len(t, res.Scores, CatalogSize()+1)
	assert.InDelta(t, 0.4, res.Scores[Unknown], 1e-6)
	assert.Equal(t, 1.0, res.Scores[EnquiryMenu])
	assert.Zero(t, res.Scores[EnquiryCuisine])
}

func TestNeuralClientShortVector(t *testing.T) {
	c := NewNeuralClient(constBackend([]float32{0.2, 0.8}), noCache, nil)

	res := c.ClassifyOne(context.Background(), "x")

	require.True(t, res.OK())
	assert.Len(t, res.Scores, 2)
	assert.InDelta(t, 0.8, res.Scores[EnquiryCuisine], 1e-6)
}

func TestNeuralClientBatchSingleCall(t *testing.T) {
	b := constBackend(oneHot(General, 0.5))
	c := NewNeuralClient(b, noCache, nil)

	results := c.ClassifyBatch(context.Background(), []string{"a", "b", "c", "d"})

	assert.Len(t, results, 4)
	assert.Equal(t, 1, b.Calls())
	assert.Equal(t, []string{"a", "b", "c", "d"}, b.seen[0])
}

func TestNeuralClientEmptyBatch(t *testing.T) {
	b := constBackend(oneHot(General, 0.5))
	c := NewNeuralClient(b, noCache, nil)
	assert.Empty(t, c.ClassifyBatch(context.Background(), nil))
	assert.Zero(t, b.Calls())
}

func TestNeuralClientMemoryCache(t *testing.T) {
	b := constBackend(oneHot(PaymentRelated, 0.9))
	c := NewNeuralClient(b, NeuralConfig{}, nil)
	ctx := context.Background()

	c.ClassifyOne(ctx, "pay bill")
	results := c.ClassifyBatch(ctx, []string{"pay bill", "split bill"})

	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.True(t, results[1].OK())
	assert.Equal(t, 2, b.Calls())
	assert.Equal(t, []string{"split bill"}, b.seen[1])
}

func TestNeuralClientDiskCache(t *testing.T) {
	dir := t.TempDir()
	cfg := NeuralConfig{CacheDir: dir, ModelVersion: "1"}
	ctx := context.Background()

	first := NewNeuralClient(constBackend(oneHot(Recommendation, 0.6)), cfg, nil)
	require.True(t, first.ClassifyOne(ctx, "recommend dish").OK())

	b := failingBackend(errors.New("offline"))
	second := NewNeuralClient(b, cfg, nil)
	res := second.ClassifyOne(ctx, "recommend dish")

	require.True(t, res.OK())
	assert.InDelta(t, 0.6, res.Scores[Recommendation], 1e-6)
	assert.Zero(t, b.Calls())
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(NeuralConfig{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = NewBackend(NeuralConfig{Backend: BackendTriton, URL: "localhost:8000", Model: "intent_classifier"})
	require.NoError(t, err)
	assert.Equal(t, "triton:intent_classifier", b.Name())

	_, err = NewBackend(NeuralConfig{Backend: "grpc"})
	assert.Error(t, err)

	_, err = NewBackend(NeuralConfig{Backend: BackendONNX})
	assert.Error(t, err)
}
