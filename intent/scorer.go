package intent

import (
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"yashubustudio/intentclassifier/internal/textproc"
)

const (
	contextStep      = 0.15
	contextCap       = 0.5
	mealStep         = 0.2
	mealCap          = 0.5
	priorTurnDecay   = 0.2
	negationFactor   = 0.3
	suppressedFactor = 0.2
)

// mealKeywords drive the time-of-day boost for profiles with time patterns.
var mealKeywords = []string{"lunch", "dinner", "breakfast"}

// NegationDetector reports whether any token of text is syntactically negated.
type NegationDetector interface {
	IsNegated(text string) bool
}

// NegationFunc adapts a plain function to NegationDetector.
type NegationFunc func(string) bool

// IsNegated calls f.
func (f NegationFunc) IsNegated(text string) bool { return f(text) }

// RuleScorer scores utterances against the intent profiles for a single session.
// The conversation window is only written by Score, under mu.
type RuleScorer struct {
	profiles *ProfileSet
	negation NegationDetector
	logger   *zap.Logger

	mu     sync.Mutex
	window *ConversationWindow
}

// NewRuleScorer builds a scorer with an empty conversation window.
// A nil profile set selects the defaults; a nil detector never reports negation.
func NewRuleScorer(profiles *ProfileSet, negation NegationDetector, logger *zap.Logger) *RuleScorer {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	if negation == nil {
		negation = NegationFunc(func(string) bool { return false })
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleScorer{
		profiles: profiles,
		negation: negation,
		logger:   logger,
		window:   NewConversationWindow(WindowSize),
	}
}

// Score records text in the conversation window and returns one score per profile.
func (s *RuleScorer) Score(text string) ScoreMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scoreLocked(text)
}

// ScoreAll scores texts in order while holding the window, so a concurrent
// call on the same scorer cannot interleave its turns with this batch.
func (s *RuleScorer) ScoreAll(texts []string) []ScoreMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScoreMap, len(texts))
	for i, t := range texts {
		out[i] = s.scoreLocked(t)
	}
	return out
}

func (s *RuleScorer) scoreLocked(text string) ScoreMap {
	s.window.Push(text)
	prev, hasPrev := s.window.Previous()

	lower := textproc.FoldLower(text)
	prevLower := textproc.FoldLower(prev)
	negated := s.negation.IsNegated(text)

	results := make(ScoreMap, s.profiles.Len())
	for _, p := range s.profiles.ordered {
		base := maxTierScore(lower, p.high)
		if medium := maxTierScore(lower, p.medium); medium > base {
			base = medium
		}
		total := base + contextScore(lower, p.contextTerms)

		var timeBoost float64
		if p.HasTimePatterns() {
			timeBoost = mealScore(lower)
			total += timeBoost
		}

		var priorBoost float64
		if hasPrev {
			priorBoost = contextScore(prevLower, p.contextTerms) * priorTurnDecay
			total += priorBoost
		}

		if negated {
			total *= negationFactor
		}

		suppressed := matchesAny(lower, p.negative)
		if suppressed {
			total *= suppressedFactor
		}

		if total > 1 {
			total = 1
		}
		results[p.intent] = total

		if ce := s.logger.Check(zap.DebugLevel, "rule score"); ce != nil {
			ce.Write(
				zap.String("intent", p.intent),
				zap.Float64("base", base),
				zap.Float64("time", timeBoost),
				zap.Float64("prior", priorBoost),
				zap.Bool("negated", negated),
				zap.Bool("suppressed", suppressed),
				zap.Float64("score", total),
			)
		}
	}
	return results
}

// TopIntents scores text and returns the intents at or above threshold, best first.
func (s *RuleScorer) TopIntents(text string, threshold float64) []Score {
	return Rank(s.Score(text), threshold)
}

// History returns the utterances currently held in the window.
func (s *RuleScorer) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.window.Snapshot()
}

// Reset clears the conversation window.
func (s *RuleScorer) Reset() {
	s.mu.Lock()
	s.window.Reset()
	s.mu.Unlock()
}

// maxTierScore returns the best weight*matchCount across the rules of one tier.
func maxTierScore(text string, rules []compiledRule) float64 {
	var best float64
	for _, r := range rules {
		n := len(r.re.FindAllStringIndex(text, -1))
		if n == 0 {
			continue
		}
		if sc := r.weight * float64(n); sc > best {
			best = sc
		}
	}
	return best
}

func contextScore(text string, terms []string) float64 {
	if text == "" {
		return 0
	}
	matches := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			matches++
		}
	}
	return min(float64(matches)*contextStep, contextCap)
}

func mealScore(text string) float64 {
	var score float64
	for _, kw := range mealKeywords {
		if strings.Contains(text, kw) {
			score += mealStep
		}
	}
	return min(score, mealCap)
}

func matchesAny(text string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
