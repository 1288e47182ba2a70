package builder

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// defaultDirectionKey groups trips that carry neither a direction_id nor a
// headsign, so a signal-free feed collapses to one direction instead of
// fragmenting.
const defaultDirectionKey = "dir_default"

// buildDirectionKey derives the grouping key for "which way" a trip travels.
// An explicit direction_id wins; otherwise textually identical headsigns
// (case-insensitive) share a hashed key; otherwise the constant default.
func buildDirectionKey(directionID, headsign string) string {
	directionValue := normalizeWhitespace(directionID)
	if directionValue != "" {
		safe := strings.Trim(unsafeTokenRe.ReplaceAllString(directionValue, "_"), "_")
		if safe == "" {
			safe = "0"
		}
		return "dir_" + safe
	}

	if headsign != "" {
		digest := md5.Sum([]byte(strings.ToLower(headsign)))
		return "hs_" + hex.EncodeToString(digest[:])[:10]
	}

	return defaultDirectionKey
}

// fallbackDirectionLabel synthesizes a label for a direction that no trip
// contributed a headsign to.
func fallbackDirectionLabel(directionID string) string {
	if directionID != "" {
		return "Direction " + directionID
	}
	return "Direction"
}

// chooseDirectionLabel picks the most frequent headsign among a direction's
// trips, breaking ties alphabetically (case-insensitive).
func chooseDirectionLabel(votes map[string]int) (string, bool) {
	best := ""
	bestCount := 0
	for headsign, count := range votes {
		if best == "" ||
			count > bestCount ||
			(count == bestCount && lessCaseInsensitive(headsign, best)) {
			best = headsign
			bestCount = count
		}
	}
	return best, best != ""
}

func lessCaseInsensitive(a, b string) bool {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	if al != bl {
		return al < bl
	}
	return a < b
}

const nonNumericRank = 10_000

// sortDirectionKeys orders a route's direction keys deterministically:
// numeric direction ids ascending, then non-numeric ids alphabetically, then
// headsign-derived groups alphabetically by label, with the key string itself
// as the final tie-break.
func sortDirectionKeys(keys []string, idByKey map[string]string, labelByKey map[string]string) []string {
	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool {
		ti, ni, si := directionSortKey(idByKey[sorted[i]], labelByKey[sorted[i]])
		tj, nj, sj := directionSortKey(idByKey[sorted[j]], labelByKey[sorted[j]])
		if ti != tj {
			return ti < tj
		}
		if ni != nj {
			return ni < nj
		}
		if si != sj {
			return si < sj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

func directionSortKey(directionID, label string) (tier, numeric int, alpha string) {
	if directionID != "" {
		if n, err := strconv.Atoi(directionID); err == nil && isDigits(directionID) {
			return 0, n, strings.ToLower(label)
		}
		return 0, nonNumericRank, strings.ToLower(directionID)
	}
	return 1, nonNumericRank, strings.ToLower(label)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
