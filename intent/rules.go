package intent

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// PatternRule is a weighted regular expression belonging to one tier of one intent.
type PatternRule struct {
	Pattern string  `yaml:"pattern"`
	Weight  float64 `yaml:"weight"`
}

// ProfileSpec is the editable form of an intent profile.
type ProfileSpec struct {
	High             []PatternRule `yaml:"high"`
	Medium           []PatternRule `yaml:"medium"`
	ContextTerms     []string      `yaml:"context_terms"`
	TimePatterns     []PatternRule `yaml:"time_patterns,omitempty"`
	NegativePatterns []string      `yaml:"negative_patterns,omitempty"`
}

var rawProfiles = map[string]ProfileSpec{
	EnquiryMenu: {
		High: []PatternRule{
			{`\b(show|see|view|check|get)\s+(?:the|your)?\s*menu\b`, 1.0},
			{`\bwhat(?:\s*'s|\s+is)\s+on\s+(?:the\s+)?menu\b`, 1.0},
			{`\bmenu\s+(?:options|items|dishes)\b`, 0.9},
		},
		Medium: []PatternRule{
			{`\b(?:food|dish(?:es)?|item(?:s)?)\s+(?:available|offer(?:ed)?|serve(?:d)?)\b`, 0.7},
			{`\bprice(?:s)?\s+(?:list|range|of)\b`, 0.7},
			{`\bspecials?\s+(?:today|tonight|this\s+evening)\b`, 0.8},
		},
		ContextTerms: []string{
			"menu", "dish", "food", "price", "cost", "special", "appetizer", "main course",
			"dessert", "beverage", "dinner", "lunch", "breakfast",
		},
	},
	EnquiryCuisine: {
		High: []PatternRule{
			{`\bwhat\s+(?:type|kind)\s+of\s+cuisine\b`, 1.0},
			{`\b(?:serve|offer)\s+(?:what|which)\s+cuisine\b`, 1.0},
			{`\b(?:indian|chinese|italian|mexican|thai|japanese)\s+(?:food|cuisine|dishes)\b`, 0.9},
		},
		Medium: []PatternRule{
			{`\b(?:food|dishes)\s+(?:style|type)\b`, 0.7},
			{`\b(?:traditional|authentic|fusion)\s+(?:food|cuisine|dishes)\b`, 0.7},
		},
		ContextTerms: []string{
			"cuisine", "style", "food type", "traditional", "authentic", "spicy", "flavor",
		},
	},
	OrderRelated: {
		High: []PatternRule{
			{`\b(?:want|like|place)\s+(?:to\s+)?order\b`, 1.0},
			{`\bcan\s+(?:i|we)\s+(?:get|have|order)\b`, 0.9},
			{`\border\s+(?:food|takeout|delivery)\b`, 0.9},
		},
		Medium: []PatternRule{
			{`\btake\s+(?:my|our)\s+order\b`, 0.8},
			{`\b(?:ready|like)\s+to\s+(?:order|eat)\b`, 0.7},
		},
		ContextTerms: []string{
			"order", "take", "get", "have", "food", "meal", "dish", "deliver", "takeout",
		},
		NegativePatterns: []string{
			`\b(?:not|don't)\s+want\s+to\s+order\b`,
		},
	},
	ReservationRelated: {
		High: []PatternRule{
			{`\b(?:make|place|book)\s+(?:a\s+)?reservation\b`, 1.0},
			{`\breserve\s+(?:a\s+)?table\b`, 1.0},
			{`\btable\s+for\s+\d+\s+(?:people|persons)?\b`, 0.9},
		},
		Medium: []PatternRule{
			{`\b(?:available|free)\s+table(?:s)?\b`, 0.8},
			{`\b(?:tonight|today|tomorrow)\s+(?:at|for)\s+\d+(?::\d+)?\s*(?:pm|am)?\b`, 0.7},
		},
		TimePatterns: []PatternRule{
			{`\b(?:tonight|this\s+evening)\b`, 0.3},
			{`\b(?:tomorrow|next\s+week)\b`, 0.3},
			{`\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b`, 0.3},
		},
		ContextTerms: []string{
			"reservation", "book", "table", "seat", "dining", "party", "group",
		},
	},
	PaymentRelated: {
		High: []PatternRule{
			{`\b(?:accept|take)\s+(?:credit\s+cards?|debit\s+cards?|cash|payment)\b`, 1.0},
			{`\bhow\s+(?:can|do)\s+(?:i|we)\s+pay\b`, 1.0},
			{`\b(?:bill|check|payment)\s+(?:please|options)\b`, 0.9},
		},
		Medium: []PatternRule{
			{`\b(?:split|divide)\s+(?:the\s+)?bill\b`, 0.8},
			{`\b(?:payment|billing)\s+(?:method|option)s?\b`, 0.7},
		},
		ContextTerms: []string{
			"pay", "payment", "bill", "check", "card", "cash", "credit", "debit", "split",
		},
	},
}

var defaultProfiles = mustCompileProfiles(rawProfiles)

type compiledRule struct {
	re     *regexp.Regexp
	weight float64
}

// IntentProfile is the compiled, read-only rule bundle for one intent.
type IntentProfile struct {
	intent       string
	high         []compiledRule
	medium       []compiledRule
	timeRules    []compiledRule
	contextTerms []string
	negative     []*regexp.Regexp
}

// Intent returns the canonical intent name.
func (p *IntentProfile) Intent() string { return p.intent }

// HasTimePatterns reports whether time-of-day boosting applies.
func (p *IntentProfile) HasTimePatterns() bool { return len(p.timeRules) > 0 }

// ContextTerms returns a copy of the bag-of-words boosters.
func (p *IntentProfile) ContextTerms() []string {
	return append([]string(nil), p.contextTerms...)
}

// ProfileSet is an immutable table of profiles indexed by intent name.
type ProfileSet struct {
	ordered []*IntentProfile
	byName  map[string]*IntentProfile
}

// DefaultProfiles returns the built-in restaurant profiles.
func DefaultProfiles() *ProfileSet {
	return defaultProfiles
}

// Profiles returns the profiles sorted by intent name.
func (s *ProfileSet) Profiles() []*IntentProfile {
	return append([]*IntentProfile(nil), s.ordered...)
}

// Lookup returns the profile for name.
func (s *ProfileSet) Lookup(name string) (*IntentProfile, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Len returns the number of profiles.
func (s *ProfileSet) Len() int {
	return len(s.ordered)
}

// CompileProfiles validates and compiles specs into a ProfileSet.
func CompileProfiles(specs map[string]ProfileSpec) (*ProfileSet, error) {
	set := &ProfileSet{byName: make(map[string]*IntentProfile, len(specs))}
	for name, spec := range specs {
		if !IsKnown(name) {
			return nil, fmt.Errorf("profile %q: %w", name, ErrUnknownIntent)
		}
		p, err := compileProfile(name, spec)
		if err != nil {
			return nil, fmt.Errorf("profile %s: %w", name, err)
		}
		set.ordered = append(set.ordered, p)
		set.byName[name] = p
	}
	sort.Slice(set.ordered, func(i, j int) bool {
		return set.ordered[i].intent < set.ordered[j].intent
	})
	return set, nil
}

func mustCompileProfiles(specs map[string]ProfileSpec) *ProfileSet {
	set, err := CompileProfiles(specs)
	if err != nil {
		panic(err)
	}
	return set
}

func compileProfile(name string, spec ProfileSpec) (*IntentProfile, error) {
	p := &IntentProfile{intent: name}
	var err error
	if p.high, err = compileRules("high", spec.High); err != nil {
		return nil, err
	}
	if p.medium, err = compileRules("medium", spec.Medium); err != nil {
		return nil, err
	}
	if p.timeRules, err = compileRules("time", spec.TimePatterns); err != nil {
		return nil, err
	}
	for _, term := range spec.ContextTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			continue
		}
		p.contextTerms = append(p.contextTerms, term)
	}
	for i, pat := range spec.NegativePatterns {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("negative pattern %d: %w", i, err)
		}
		p.negative = append(p.negative, re)
	}
	return p, nil
}

func compileRules(tier string, rules []PatternRule) ([]compiledRule, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	out := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.Weight <= 0 || r.Weight > 1 {
			return nil, fmt.Errorf("%s rule %d: weight %.3f outside (0,1]", tier, i, r.Weight)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s rule %d: %w", tier, i, err)
		}
		out = append(out, compiledRule{re: re, weight: r.Weight})
	}
	return out, nil
}
