package textproc

import (
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[a-z]+(?:'[a-z]+)?`)

// negators mark a negated clause the way a dependency parser's neg arc does.
// Apostrophe-less contractions are included since chat input drops them.
var negators = toSet([]string{
	"not", "never", "cannot", "nor", "neither",
	"dont", "doesnt", "didnt", "cant", "couldnt", "wont", "wouldnt", "shouldnt",
	"isnt", "arent", "wasnt", "werent", "havent", "hasnt", "hadnt", "mustnt",
	"neednt", "aint",
})

// fixed expressions containing a negator that do not negate the clause.
var negationIdioms = regexp.MustCompile(`\b(?:not only|whether or not|if not|never mind|can'?t wait)\b`)

// NegationDetector reports whether an utterance contains a negation cue.
type NegationDetector struct {
	cues   map[string]struct{}
	idioms *regexp.Regexp
}

// NewNegationDetector returns a detector with the default English cues.
func NewNegationDetector() *NegationDetector {
	return &NegationDetector{cues: negators, idioms: negationIdioms}
}

// IsNegated tokenizes the lowercased text and looks for a negator or an
// n't contraction outside the idiom list.
func (d *NegationDetector) IsNegated(text string) bool {
	lower := FoldLower(text)
	if d.idioms != nil {
		lower = d.idioms.ReplaceAllString(lower, " ")
	}
	for _, tok := range wordPattern.FindAllString(lower, -1) {
		if strings.HasSuffix(tok, "n't") {
			return true
		}
		if _, ok := d.cues[tok]; ok {
			return true
		}
	}
	return false
}

var defaultDetector = NewNegationDetector()

// IsNegated uses the default detector.
func IsNegated(text string) bool {
	return defaultDetector.IsNegated(text)
}
