package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNegated(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"don't show the menu", true},
		{"Don’t show the menu", true},
		{"dont show the menu", true},
		{"I do not want to order", true},
		{"we never pay by card", true},
		{"I cannot find a table", true},
		{"the kitchen isn't open", true},
		{"show the menu", false},
		{"no onions please", false},
		{"not only pizza but pasta too", false},
		{"never mind, show the menu", false},
		{"can't wait to try the curry", false},
		{"I'll pay whether or not it's spicy", false},
		{"notable dishes", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNegated(tt.in))
		})
	}
}

func TestNegationDetectorIdiomDoesNotMaskRealNegation(t *testing.T) {
	d := NewNegationDetector()
	assert.True(t, d.IsNegated("never mind, I don't want dessert"))
	assert.True(t, d.IsNegated("not only that, we do not take cash"))
}
