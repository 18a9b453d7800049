package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRoundTrip(t *testing.T) {
	require.Equal(t, 11, CatalogSize())
	for i, name := range Intents() {
		assert.Equal(t, name, NameForIndex(i))
		assert.Equal(t, i, IndexForName(name))
		assert.Equal(t, i, MustIndexForName(name))
		assert.True(t, IsKnown(name))
	}
}

func TestCatalogOrder(t *testing.T) {
	assert.Equal(t, EnquiryMenu, NameForIndex(0))
	assert.Equal(t, OrderRelated, NameForIndex(4))
	assert.Equal(t, Recommendation, NameForIndex(10))
}

func TestNameForIndexOutOfRange(t *testing.T) {
	assert.Equal(t, Unknown, NameForIndex(-1))
	assert.Equal(t, Unknown, NameForIndex(CatalogSize()))
	assert.Equal(t, Unknown, NameForIndex(99))
}

func TestIndexForNameUnknown(t *testing.T) {
	assert.Equal(t, -1, IndexForName("ENQUIRY_WINE"))
	assert.Equal(t, -1, IndexForName(Unknown))
	assert.Equal(t, -1, IndexForName("enquiry_menu"))
	assert.False(t, IsKnown(""))
}

func TestMustIndexForNamePanics(t *testing.T) {
	assert.PanicsWithValue(t,
		`unknown intent: "ENQURY_MENU" (did you mean ENQUIRY_MENU?)`,
		func() { MustIndexForName("ENQURY_MENU") },
	)
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, []string{ReservationRelated}, Suggest("reservation"))
	assert.Len(t, Suggest("enquiry"), 3)
	assert.LessOrEqual(t, len(Suggest("e")), 3)
	assert.Empty(t, Suggest("  "))
	assert.Empty(t, Suggest("zzzz"))
}

func TestIntentsReturnsCopy(t *testing.T) {
	names := Intents()
	names[0] = "MUTATED"
	assert.Equal(t, EnquiryMenu, NameForIndex(0))
}
