package intent

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yashubustudio/intentclassifier/internal/textproc"
)

// DefaultSession is the conversation used by the session-less methods.
const DefaultSession = "default"

// Normalizer cleans raw utterances before they reach the neural model.
type Normalizer interface {
	Normalize(raw string) string
}

// NormalizerFunc adapts a plain function to Normalizer.
type NormalizerFunc func(string) string

// Normalize calls f.
func (f NormalizerFunc) Normalize(raw string) string { return f(raw) }

// Option customizes a Classifier.
type Option func(*Classifier)

// WithNormalizer replaces the default text normalizer.
func WithNormalizer(n Normalizer) Option {
	return func(c *Classifier) {
		if n != nil {
			c.normalizer = n
		}
	}
}

// WithNegationDetector replaces the default negation detector.
func WithNegationDetector(d NegationDetector) Option {
	return func(c *Classifier) {
		if d != nil {
			c.negation = d
		}
	}
}

// WithProfiles replaces the built-in intent profiles.
func WithProfiles(p *ProfileSet) Option {
	return func(c *Classifier) {
		if p != nil {
			c.profiles = p
		}
	}
}

// WithNeural sets the neural client. Without it the neural side is disabled.
func WithNeural(n *NeuralClient) Option {
	return func(c *Classifier) {
		if n != nil {
			c.neural = n
		}
	}
}

// WithLogger sets the logger shared by the classifier and its session scorers.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithThreshold sets the threshold reported by Threshold.
func WithThreshold(t float64) Option {
	return func(c *Classifier) {
		if t > 0 {
			c.threshold = t
		}
	}
}

// Classifier combines rule-based and neural scoring. Each session owns a
// conversation window; calls on different sessions may run concurrently.
type Classifier struct {
	normalizer Normalizer
	negation   NegationDetector
	profiles   *ProfileSet
	neural     *NeuralClient
	logger     *zap.Logger
	threshold  float64

	mu       sync.Mutex
	sessions map[string]*RuleScorer
}

// New builds a classifier with the default normalizer, negation detector and
// profiles. The neural side stays disabled unless WithNeural is given.
func New(opts ...Option) *Classifier {
	c := &Classifier{
		normalizer: NormalizerFunc(textproc.Normalize),
		negation:   textproc.NewNegationDetector(),
		profiles:   DefaultProfiles(),
		logger:     zap.NewNop(),
		threshold:  DefaultThreshold,
		sessions:   make(map[string]*RuleScorer),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.neural == nil {
		c.neural = NewNeuralClient(nil, NeuralConfig{}, c.logger)
	}
	return c
}

// NewFromConfig loads profiles and builds the neural backend described by cfg.
func NewFromConfig(cfg Config, logger *zap.Logger) (*Classifier, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	profiles, fromFile, err := LoadProfiles(cfg.Rules.ProfileFile)
	if err != nil {
		return nil, err
	}
	if fromFile {
		logger.Info("loaded intent profiles", zap.String("path", cfg.Rules.ProfileFile), zap.Int("profiles", profiles.Len()))
	}
	backend, err := NewBackend(cfg.Neural)
	if err != nil {
		return nil, err
	}
	neural := NewNeuralClient(backend, cfg.Neural, logger)
	if backend != nil {
		logger.Info("neural backend ready", zap.String("backend", backend.Name()), zap.Duration("timeout", cfg.Neural.Timeout))
	} else {
		logger.Info("neural backend disabled")
	}
	return New(
		WithProfiles(profiles),
		WithNeural(neural),
		WithLogger(logger),
		WithThreshold(cfg.Threshold),
	), nil
}

// Threshold is the configured acceptance threshold for TopIntent callers.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// NeuralEnabled reports whether a neural backend is configured.
func (c *Classifier) NeuralEnabled() bool {
	return c.neural.Enabled()
}

// Close releases neural backend resources.
func (c *Classifier) Close() error {
	return c.neural.Close()
}

// Classify returns the fused scores for text in the default session.
func (c *Classifier) Classify(ctx context.Context, text string) ScoreMap {
	return c.Analyze(ctx, DefaultSession, text).Fused
}

// ClassifyInSession returns the fused scores for text in session.
func (c *Classifier) ClassifyInSession(ctx context.Context, session, text string) ScoreMap {
	return c.Analyze(ctx, session, text).Fused
}

// TopIntent returns the best fused intent if it reaches threshold.
func (c *Classifier) TopIntent(ctx context.Context, text string, threshold float64) (Score, bool) {
	return TopIntent(c.Classify(ctx, text), threshold)
}

// TopIntentInSession is TopIntent for a named session.
func (c *Classifier) TopIntentInSession(ctx context.Context, session, text string, threshold float64) (Score, bool) {
	return TopIntent(c.ClassifyInSession(ctx, session, text), threshold)
}

// Analyze scores one utterance. The neural call runs in its own goroutine while
// the rule scorer updates the session window on the caller's goroutine.
func (c *Classifier) Analyze(ctx context.Context, session, text string) Result {
	normalized := c.normalizer.Normalize(text)

	var neural NeuralResult
	var g errgroup.Group
	g.Go(func() error {
		neural = c.neural.ClassifyOne(ctx, normalized)
		return nil
	})
	rule := c.scorer(session).Score(text)
	_ = g.Wait()

	res := Result{
		Text:       text,
		Normalized: normalized,
		Rule:       rule,
		Neural:     neural,
		Fused:      Fuse(rule, neural.Scores),
	}
	c.logResult(session, res)
	return res
}

// ClassifyBatch scores texts in order in the default session. The result has
// one map per input even when the neural side fails.
func (c *Classifier) ClassifyBatch(ctx context.Context, texts []string) []ScoreMap {
	return c.ClassifyBatchInSession(ctx, DefaultSession, texts)
}

// ClassifyBatchInSession is ClassifyBatch for a named session.
func (c *Classifier) ClassifyBatchInSession(ctx context.Context, session string, texts []string) []ScoreMap {
	results := c.AnalyzeBatch(ctx, session, texts)
	out := make([]ScoreMap, len(results))
	for i, r := range results {
		out[i] = r.Fused
	}
	return out
}

// AnalyzeBatch makes one neural call for all texts and scores the rules per
// item in input order, so the session window sees the texts in sequence.
func (c *Classifier) AnalyzeBatch(ctx context.Context, session string, texts []string) []Result {
	if len(texts) == 0 {
		return []Result{}
	}
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = c.normalizer.Normalize(t)
	}

	var neural []NeuralResult
	var g errgroup.Group
	g.Go(func() error {
		neural = c.neural.ClassifyBatch(ctx, normalized)
		return nil
	})
	rules := c.scorer(session).ScoreAll(texts)
	_ = g.Wait()

	out := make([]Result, len(texts))
	for i := range texts {
		var nr NeuralResult
		if i < len(neural) {
			nr = neural[i]
		} else {
			nr = NeuralResult{Scores: ScoreMap{}, Status: NeuralDegraded, Err: ErrMalformedResponse}
		}
		out[i] = Result{
			Text:       texts[i],
			Normalized: normalized[i],
			Rule:       rules[i],
			Neural:     nr,
			Fused:      Fuse(rules[i], nr.Scores),
		}
		c.logResult(session, out[i])
	}
	return out
}

// History returns the utterances held in the session's window.
func (c *Classifier) History(session string) []string {
	c.mu.Lock()
	s, ok := c.sessions[sessionKey(session)]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	return s.History()
}

// ResetSession drops the session and its conversation window.
func (c *Classifier) ResetSession(session string) {
	c.mu.Lock()
	delete(c.sessions, sessionKey(session))
	c.mu.Unlock()
}

// Sessions lists the active session keys in sorted order.
func (c *Classifier) Sessions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.sessions))
	for k := range c.sessions {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sessionKey(session string) string {
	if session == "" {
		return DefaultSession
	}
	return session
}

func (c *Classifier) scorer(session string) *RuleScorer {
	session = sessionKey(session)
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[session]
	if !ok {
		s = NewRuleScorer(c.profiles, c.negation, c.logger.With(zap.String("session", session)))
		c.sessions[session] = s
	}
	return s
}

func (c *Classifier) logResult(session string, r Result) {
	ce := c.logger.Check(zap.DebugLevel, "classified")
	if ce == nil {
		return
	}
	top, ok := TopIntent(r.Fused, c.threshold)
	ce.Write(
		zap.String("session", session),
		zap.String("normalized", r.Normalized),
		zap.String("neural_status", string(r.Neural.Status)),
		zap.String("top", top.Intent),
		zap.Float64("score", top.Score),
		zap.Bool("accepted", ok),
	)
}
