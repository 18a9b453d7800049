package intent

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Unknown is returned for indices the catalog does not know about.
const Unknown = "UNKNOWN"

// Canonical intent names.
const (
	EnquiryMenu        = "ENQUIRY_MENU"
	EnquiryCuisine     = "ENQUIRY_CUISINE"
	EnquiryDish        = "ENQUIRY_DISH"
	EnquiryRestaurant  = "ENQUIRY_RESTAURANT"
	OrderRelated       = "ORDER_RELATED"
	ReservationRelated = "RESERVATION_RELATED"
	PaymentRelated     = "PAYMENT_RELATED"
	General            = "GENERAL"
	ServiceRelated     = "SERVICE_RELATED"
	NonRelated         = "NON_RELATED"
	Recommendation     = "RECOMMENDATION"
)

// catalog is positional: the neural model emits probabilities in this order.
var catalog = [...]string{
	EnquiryMenu,
	EnquiryCuisine,
	EnquiryDish,
	EnquiryRestaurant,
	OrderRelated,
	ReservationRelated,
	PaymentRelated,
	General,
	ServiceRelated,
	NonRelated,
	Recommendation,
}

var catalogIndex = buildCatalogIndex()

func buildCatalogIndex() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, name := range catalog {
		idx[name] = i
	}
	return idx
}

// CatalogSize is the number of intents the neural service scores.
func CatalogSize() int {
	return len(catalog)
}

// Intents returns every canonical name in index order.
func Intents() []string {
	out := make([]string, len(catalog))
	copy(out, catalog[:])
	return out
}

// NameForIndex resolves a model output index. Out-of-range indices map to Unknown.
func NameForIndex(i int) string {
	if i < 0 || i >= len(catalog) {
		return Unknown
	}
	return catalog[i]
}

// IndexForName returns the model index for name, or -1.
func IndexForName(name string) int {
	if i, ok := catalogIndex[name]; ok {
		return i
	}
	return -1
}

// IsKnown reports whether name is a catalog intent.
func IsKnown(name string) bool {
	return IndexForName(name) >= 0
}

// MustIndexForName is IndexForName for callers that require a valid intent.
// It panics on unknown names.
func MustIndexForName(name string) int {
	i := IndexForName(name)
	if i >= 0 {
		return i
	}
	msg := fmt.Sprintf("%v: %q", ErrUnknownIntent, name)
	if hints := Suggest(name); len(hints) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(hints, ", "))
	}
	panic(msg)
}

// Suggest returns catalog names that fuzzily match name, best first.
func Suggest(name string) []string {
	query := strings.ToUpper(strings.TrimSpace(name))
	if query == "" {
		return nil
	}
	matches := fuzzy.Find(query, catalog[:])
	out := make([]string, 0, 3)
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == 3 {
			break
		}
	}
	return out
}
