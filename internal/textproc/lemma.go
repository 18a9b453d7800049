package textproc

import (
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// irregular plurals that do not end in s, plus f/v plurals whose s-form is
// also a verb in the dictionary.
var irregularNouns = map[string]string{
	"children": "child",
	"men":      "man",
	"women":    "woman",
	"people":   "person",
	"feet":     "foot",
	"teeth":    "tooth",
	"mice":     "mouse",
	"geese":    "goose",
	"knives":   "knife",
	"loaves":   "loaf",
	"halves":   "half",
	"leaves":   "leaf",
	"wives":    "wife",
}

// invariant words end in s but are not plurals.
var invariantNouns = toSet([]string{
	"always", "yes", "news", "series", "species", "lens", "gas", "bias", "plus",
	"bus", "this", "thus", "fries", "hummus", "couscous", "asparagus", "octopus",
	"citrus", "molasses", "texas", "christmas", "thanks", "perhaps", "whereas",
})

var loadDictionary = sync.OnceValues(func() (*golem.Lemmatizer, error) {
	return golem.New(en.New())
})

// Lemmatize reduces a lowercase plural noun to its singular form with the
// English golem dictionary. Only s-final tokens are looked up, so verb forms
// such as "booking" or "paid" stay as typed. Unknown words and a dictionary
// that fails to load return tok unchanged.
func Lemmatize(tok string) string {
	if lemma, ok := irregularNouns[tok]; ok {
		return lemma
	}
	if len(tok) <= 3 || !strings.HasSuffix(tok, "s") {
		return tok
	}
	if _, ok := invariantNouns[tok]; ok {
		return tok
	}
	dict, err := loadDictionary()
	if err != nil {
		return tok
	}
	if lemma := dict.Lemma(tok); lemma != "" {
		return lemma
	}
	return tok
}
