package intent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newDegradedClassifier(opts ...Option) *Classifier {
	neural := NewNeuralClient(failingBackend(errors.New("service unavailable")), noCache, nil)
	return New(append([]Option{WithNeural(neural)}, opts...)...)
}

func TestClassifierGracefulDegradation(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := newDegradedClassifier()
	ctx := context.Background()

	scores := c.Classify(ctx, "show me the menu")
	require.NotEmpty(t, scores)
	assert.Positive(t, scores[EnquiryMenu])

	top, ok := c.TopIntent(ctx, "show the menu", DefaultThreshold)
	require.True(t, ok)
	assert.Equal(t, EnquiryMenu, top.Intent)
	assert.GreaterOrEqual(t, top.Score, DefaultThreshold)
}

func TestClassifierDisabledNeural(t *testing.T) {
	c := New()
	assert.False(t, c.NeuralEnabled())

	res := c.Analyze(context.Background(), "", "do you accept credit cards")
	assert.Equal(t, NeuralDisabled, res.Neural.Status)
	assert.Equal(t, "accept credit card", res.Normalized)
	assert.InDelta(t, RuleWeight, res.Fused[PaymentRelated], 1e-12)
}

func TestClassifierFusesBothSides(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := constBackend(oneHot(EnquiryMenu, 0.8))
	c := New(WithNeural(NewNeuralClient(b, noCache, nil)))

	res := c.Analyze(context.Background(), DefaultSession, "show the menu")

	require.True(t, res.Neural.OK())
	assert.Equal(t, 1.0, res.Rule[EnquiryMenu])
	assert.InDelta(t, RuleWeight*1.0+NeuralWeight*float64(float32(0.8)), res.Fused[EnquiryMenu], 1e-12)
	assert.Equal(t, []string{"show menu"}, b.seen[0])
	assert.Len(t, res.Fused, CatalogSize())
}

func TestClassifierBatchPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := newDegradedClassifier()
	texts := []string{
		"show the menu",
		"i want to order",
		"how can i pay",
	}
	want := []string{EnquiryMenu, OrderRelated, PaymentRelated}

	results := c.ClassifyBatch(context.Background(), texts)

	require.Len(t, results, len(texts))
	for i, scores := range results {
		top, ok := TopIntent(scores, DefaultThreshold)
		require.True(t, ok, texts[i])
		assert.Equal(t, want[i], top.Intent, texts[i])
	}
	assert.Equal(t, texts, c.History(DefaultSession))
}

func TestClassifierBatchSingleNeuralCall(t *testing.T) {
	b := constBackend(oneHot(General, 0.9))
	c := New(WithNeural(NewNeuralClient(b, noCache, nil)))

	results := c.AnalyzeBatch(context.Background(), "s1", []string{"Hello there", "Good morning", "Thanks"})

	require.Len(t, results, 3)
	assert.Equal(t, 1, b.Calls())
	assert.Equal(t, []string{"hello", "good morning", "thanks"}, b.seen[0])
	for _, r := range results {
		assert.True(t, r.Neural.OK())
		assert.InDelta(t, NeuralWeight*float64(float32(0.9)), r.Fused[General], 1e-12)
	}
}

func TestClassifierEmptyBatch(t *testing.T) {
	c := newDegradedClassifier()
	assert.Empty(t, c.ClassifyBatch(context.Background(), nil))
	assert.Empty(t, c.Sessions())
}

func TestClassifierCancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	b := &fakeBackend{infer: func(ctx context.Context, _ []string) ([][]float32, error) {
		return nil, ctx.Err()
	}}
	c := New(WithNeural(NewNeuralClient(b, noCache, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Analyze(ctx, DefaultSession, "reserve a table")

	assert.Equal(t, NeuralDegraded, res.Neural.Status)
	assert.ErrorIs(t, res.Neural.Err, context.Canceled)
	assert.Equal(t, 1.0, res.Rule[ReservationRelated])
	assert.Equal(t, []string{"reserve a table"}, c.History(DefaultSession))
}

func TestClassifierSessionsAreIsolated(t *testing.T) {
	c := newDegradedClassifier()
	ctx := context.Background()

	c.ClassifyInSession(ctx, "a", "what's on the menu, any specials?")
	other := c.ClassifyInSession(ctx, "b", "sounds good")
	same := c.ClassifyInSession(ctx, "a", "sounds good")

	assert.Zero(t, other[EnquiryMenu])
	assert.Positive(t, same[EnquiryMenu])
	assert.Equal(t, []string{"a", "b"}, c.Sessions())

	c.ResetSession("a")
	assert.Equal(t, []string{"b"}, c.Sessions())
	assert.Nil(t, c.History("a"))
}

func TestClassifierConcurrentSessions(t *testing.T) {
	defer goleak.VerifyNone(t)
	c := New(WithNeural(NewNeuralClient(constBackend(oneHot(General, 0.1)), noCache, nil)))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		session := string(rune('a' + i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				c.ClassifyInSession(ctx, session, "can i get the bill please")
			}
		}()
	}
	wg.Wait()

	assert.Len(t, c.Sessions(), 8)
	for _, s := range c.Sessions() {
		assert.Len(t, c.History(s), WindowSize)
	}
}

func TestClassifierBatchesShareSessionAtomically(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	menu := []string{"what's on the menu", "sounds good"}
	pay := []string{"can i pay by card", "ok"}
	wantMenu := New().AnalyzeBatch(ctx, "s", menu)[1].Rule
	wantPay := New().AnalyzeBatch(ctx, "s", pay)[1].Rule

	c := New()
	for round := 0; round < 25; round++ {
		var (
			wg              sync.WaitGroup
			gotMenu, gotPay []Result
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			gotMenu = c.AnalyzeBatch(ctx, "shared", menu)
		}()
		go func() {
			defer wg.Done()
			gotPay = c.AnalyzeBatch(ctx, "shared", pay)
		}()
		wg.Wait()
		require.Equal(t, wantMenu, gotMenu[1].Rule)
		require.Equal(t, wantPay, gotPay[1].Rule)
	}
}

func TestClassifierCustomCollaborators(t *testing.T) {
	c := New(
		WithNormalizer(NormalizerFunc(strings.ToUpper)),
		WithNegationDetector(NegationFunc(func(string) bool { return true })),
	)
	res := c.Analyze(context.Background(), "", "show the menu")
	assert.Equal(t, "SHOW THE MENU", res.Normalized)
	assert.InDelta(t, 1.15*negationFactor, res.Rule[EnquiryMenu], 1e-9)
}

func TestClassifierLogsDegradation(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	neural := NewNeuralClient(failingBackend(errors.New("down")), noCache, logger)
	c := New(WithNeural(neural), WithLogger(logger))

	c.Classify(context.Background(), "bill please")

	assert.Equal(t, 1, logs.FilterMessage("neural classification degraded").Len())
	entries := logs.FilterMessage("classified").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "degraded", entries[0].ContextMap()["neural_status"])
	assert.NotZero(t, logs.FilterMessage("rule score").Len())
}

func TestNewFromConfig(t *testing.T) {
	cfg := Config{Neural: NeuralConfig{Backend: BackendNone}, Threshold: 0.45}
	c, err := NewFromConfig(cfg, nil)
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.NeuralEnabled())
	assert.Equal(t, 0.45, c.Threshold())

	_, err = NewFromConfig(Config{Neural: NeuralConfig{Backend: "bogus"}}, nil)
	assert.Error(t, err)

	_, err = NewFromConfig(Config{Neural: NeuralConfig{Backend: BackendNone}, Rules: RulesConfig{ProfileFile: "does/not/exist.yaml"}}, nil)
	assert.Error(t, err)
}
