package intent

// Fusion weights. Neural output dominates; rules act as a precision fallback.
const (
	RuleWeight   = 0.3
	NeuralWeight = 0.7
)

// DefaultThreshold is the minimum fused score TopIntent accepts.
const DefaultThreshold = 0.3

// Fuse blends rule and neural scores per intent over the union of their keys.
// Scores are independent; the result is not renormalized.
func Fuse(rule, neural ScoreMap) ScoreMap {
	merged := make(ScoreMap, max(len(rule), len(neural)))
	for name := range rule {
		merged[name] = RuleWeight*rule[name] + NeuralWeight*neural[name]
	}
	for name := range neural {
		if _, ok := merged[name]; ok {
			continue
		}
		merged[name] = RuleWeight*rule[name] + NeuralWeight*neural[name]
	}
	return merged
}

// TopIntent returns the best scoring intent when its score is at least threshold.
// Equal scores resolve to the lexicographically smallest intent name.
func TopIntent(scores ScoreMap, threshold float64) (Score, bool) {
	var (
		best  Score
		found bool
	)
	for name, v := range scores {
		if !found || v > best.Score || (v == best.Score && name < best.Intent) {
			best = Score{Intent: name, Score: v}
			found = true
		}
	}
	if !found || best.Score < threshold {
		return Score{}, false
	}
	return best, true
}

// Rank returns the intents scoring at least threshold, best first.
func Rank(scores ScoreMap, threshold float64) []Score {
	out := make([]Score, 0, len(scores))
	for name, v := range scores {
		if v >= threshold {
			out = append(out, Score{Intent: name, Score: v})
		}
	}
	sortScores(out)
	return out
}
