package builder

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	unsafeTokenRe  = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
	unsafeFileRe   = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	naturalChunkRe = regexp.MustCompile(`(\d+)`)
)

// normalizeWhitespace trims the value and collapses internal whitespace runs
// to single spaces.
func normalizeWhitespace(value string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(value), " ")
}

// normalizeHeadsign cleans a raw trip headsign. Many feeds embed the route
// number in every headsign ("606 Mall via Main St"); when the text starts
// with the route's short name or id followed by a separator, that prefix is
// stripped.
func normalizeHeadsign(raw, shortName, routeID string) string {
	headsign := normalizeWhitespace(raw)
	if headsign == "" {
		return ""
	}

	for _, prefix := range []string{normalizeWhitespace(shortName), normalizeWhitespace(routeID)} {
		if prefix == "" {
			continue
		}
		if !strings.HasPrefix(strings.ToLower(headsign), strings.ToLower(prefix)+" ") {
			continue
		}
		trimmed := strings.Trim(headsign[len(prefix):], " -")
		if trimmed != "" {
			return trimmed
		}
	}

	return headsign
}

// sanitizeFilename reduces a value to a filesystem-safe token, falling back
// to "route" when nothing survives.
func sanitizeFilename(value string) string {
	cleaned := unsafeFileRe.ReplaceAllString(strings.TrimSpace(value), "_")
	cleaned = strings.Trim(cleaned, "._-")
	if cleaned == "" {
		return "route"
	}
	return cleaned
}

// naturalCompare orders strings numeric-aware, so "Route 9" sorts before
// "Route 10". Digit runs compare as integers; everything else compares
// case-insensitively. Returns -1, 0 or 1.
func naturalCompare(a, b string) int {
	ap := splitNatural(a)
	bp := splitNatural(b)
	for i := 0; i < len(ap) && i < len(bp); i++ {
		if c := ap[i].compare(bp[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(ap) < len(bp):
		return -1
	case len(ap) > len(bp):
		return 1
	}
	return 0
}

type naturalPart struct {
	numeric bool
	num     int
	text    string
}

func (p naturalPart) compare(q naturalPart) int {
	// Numeric chunks sort before text chunks.
	if p.numeric != q.numeric {
		if p.numeric {
			return -1
		}
		return 1
	}
	if p.numeric {
		switch {
		case p.num < q.num:
			return -1
		case p.num > q.num:
			return 1
		}
		return 0
	}
	return strings.Compare(p.text, q.text)
}

func splitNatural(value string) []naturalPart {
	parts := naturalChunkRe.Split(value, -1)
	digits := naturalChunkRe.FindAllString(value, -1)
	out := make([]naturalPart, 0, len(parts)+len(digits))
	for i, part := range parts {
		if part != "" {
			out = append(out, naturalPart{text: strings.ToLower(part)})
		}
		if i < len(digits) {
			n, err := strconv.Atoi(digits[i])
			if err != nil {
				// Digit run too long for int; compare lexically.
				out = append(out, naturalPart{text: digits[i]})
				continue
			}
			out = append(out, naturalPart{numeric: true, num: n})
		}
	}
	return out
}
