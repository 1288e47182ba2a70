package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase passthrough", "ff6319", "#ff6319"},
		{"uppercase folded", "FF6319", "#ff6319"},
		{"leading hash", "#EE352E", "#ee352e"},
		{"surrounding space", "  00933c ", "#00933c"},
		{"black is unset", "000000", ""},
		{"black with hash is unset", "#000000", ""},
		{"too short", "fff", ""},
		{"too long", "ff6319aa", ""},
		{"non hex", "gg6319", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeColor(tt.input))
		})
	}
}

func TestStableRouteColorDeterministic(t *testing.T) {
	first := stableRouteColor("njt:62")
	second := stableRouteColor("njt:62")
	assert.Equal(t, first, second)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, first)

	// Distinct seeds should not collapse onto one color.
	assert.NotEqual(t, stableRouteColor("njt:62"), stableRouteColor("njt:63"))
}

func TestHSLToHex(t *testing.T) {
	assert.Equal(t, "#ff0000", hslToHex(0, 1, 0.5))
	assert.Equal(t, "#00ff00", hslToHex(120, 1, 0.5))
	assert.Equal(t, "#0000ff", hslToHex(240, 1, 0.5))
	assert.Equal(t, "#000000", hslToHex(0, 0, 0))
	assert.Equal(t, "#ffffff", hslToHex(0, 0, 1))
}
