package builder

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// normalizeGTFSTime validates an HH:MM:SS stop time and reformats it with
// zero-padded fields. Hours may exceed 23 to represent past-midnight service
// on the previous service day; minutes and seconds must be in range. ok is
// false for anything unparseable.
func normalizeGTFSTime(value string) (string, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return "", false
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", false
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", false
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return "", false
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds), true
}

// timeToSeconds converts a normalized HH:MM:SS value to seconds since
// midnight. Times must sort by this value, never lexically: "25:30:00" is
// later than "09:00:00" but smaller as a string.
func timeToSeconds(value string) int {
	parts := strings.SplitN(value, ":", 3)
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	seconds, _ := strconv.Atoi(parts[2])
	return hours*3600 + minutes*60 + seconds
}

type timeSet map[string]struct{}

// sortedTimes flattens a time set into a list ordered by time of day.
func sortedTimes(times timeSet) []string {
	out := make([]string, 0, len(times))
	for t := range times {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := timeToSeconds(out[i]), timeToSeconds(out[j])
		if si != sj {
			return si < sj
		}
		return out[i] < out[j]
	})
	return out
}

// mergeActiveTimes unions the time sets of every active service and returns
// them ordered by time of day. The result is always non-nil: a combination
// with no active services yields an empty list, not a missing key.
func mergeActiveTimes(byService map[string]timeSet, active map[string]struct{}) []string {
	merged := make(timeSet)
	for serviceID := range active {
		for t := range byService[serviceID] {
			merged[t] = struct{}{}
		}
	}
	return sortedTimes(merged)
}
