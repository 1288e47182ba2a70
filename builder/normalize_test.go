package builder

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"already clean", "Main St", "Main St"},
		{"leading and trailing", "  Main St  ", "Main St"},
		{"internal runs", "Main \t  St\nTerminal", "Main St Terminal"},
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeWhitespace(tt.input))
		})
	}
}

func TestNormalizeHeadsign(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		shortName string
		routeID   string
		expected  string
	}{
		{"plain", "Newark Penn Station", "62", "62", "Newark Penn Station"},
		{"short name prefix", "62 Newark Penn Station", "62", "r62", "Newark Penn Station"},
		{"route id prefix", "r62 Newark Penn Station", "62", "r62", "Newark Penn Station"},
		{"prefix with dash", "62 - Newark Penn Station", "62", "r62", "Newark Penn Station"},
		{"case insensitive prefix", "tpl Loop North", "TPL", "tpl-1", "Loop North"},
		{"prefix only keeps original", "62 -", "62", "r62", "62 -"},
		{"no separator is not a prefix", "62ndStreet", "62", "r62", "62ndStreet"},
		{"whitespace noise", "  62   Newark   Penn  ", "62", "r62", "Newark Penn"},
		{"empty", "", "62", "r62", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeHeadsign(tt.raw, tt.shortName, tt.routeID))
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"62", "62"},
		{"Red Line / Express", "Red_Line_Express"},
		{"..hidden..", "hidden"},
		{"###", "route"},
		{"", "route"},
		{"a.b-c_d", "a.b-c_d"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeFilename(tt.input), "input %q", tt.input)
	}
}

func TestNaturalCompare(t *testing.T) {
	values := []string{"Route 10", "Route 9", "Route 1A", "Route 1", "route 2"}
	sort.Slice(values, func(i, j int) bool { return naturalCompare(values[i], values[j]) < 0 })
	assert.Equal(t, []string{"Route 1", "Route 1A", "route 2", "Route 9", "Route 10"}, values)
}

func TestNaturalCompareEqualAndMixed(t *testing.T) {
	assert.Equal(t, 0, naturalCompare("62X", "62x"))
	assert.Equal(t, -1, naturalCompare("9", "10"))
	assert.Equal(t, 1, naturalCompare("10", "9"))
	// Digit chunks sort before text chunks.
	assert.Equal(t, -1, naturalCompare("9", "A"))
}
