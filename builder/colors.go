package builder

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var hexColorRe = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)

// normalizeColor validates a feed-declared route color and returns it as a
// lowercase "#rrggbb" value, or "" when unusable. All-zero black is treated
// as unset rather than as a declared color: feeds that never style routes
// commonly ship literal zeros.
func normalizeColor(raw string) string {
	value := strings.TrimLeft(strings.TrimSpace(raw), "#")
	if len(value) != 6 || !hexColorRe.MatchString(value) {
		return ""
	}
	if strings.EqualFold(value, "000000") {
		return ""
	}
	return "#" + strings.ToLower(value)
}

// stableRouteColor derives a display color from the route's identity seed so
// repeated builds assign the same color. The hue comes from an md5 digest;
// saturation and lightness are fixed to keep colors legible on a map.
func stableRouteColor(seed string) string {
	digest := md5.Sum([]byte(seed))
	prefix := hex.EncodeToString(digest[:2])
	hue, _ := strconv.ParseInt(prefix, 16, 64)
	return hslToHex(float64(hue%360), 0.68, 0.46)
}

func hslToHex(h, s, l float64) string {
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var rp, gp, bp float64
	switch {
	case h < 60:
		rp, gp, bp = c, x, 0
	case h < 120:
		rp, gp, bp = x, c, 0
	case h < 180:
		rp, gp, bp = 0, c, x
	case h < 240:
		rp, gp, bp = 0, x, c
	case h < 300:
		rp, gp, bp = x, 0, c
	default:
		rp, gp, bp = c, 0, x
	}

	r := int(math.Round((rp + m) * 255))
	g := int(math.Round((gp + m) * 255))
	b := int(math.Round((bp + m) * 255))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}
