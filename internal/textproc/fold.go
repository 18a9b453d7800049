package textproc

import "strings"

// apostrophes maps the typographic apostrophe variants mobile keyboards emit
// onto the ASCII one the rule patterns are written with.
var apostrophes = strings.NewReplacer(
	"’", "'", // right single quotation mark
	"‘", "'",
	"ʼ", "'", // modifier letter apostrophe
	"′", "'", // prime
	"＇", "'", // fullwidth apostrophe
)

// FoldLower lowercases text and rewrites apostrophe variants to '.
func FoldLower(text string) string {
	return strings.ToLower(apostrophes.Replace(text))
}
