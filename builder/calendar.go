package builder

import (
	"time"

	"github.com/transitmaps/routebuilder/gtfs"
)

// dayKeys lists GTFS weekday column names, Monday first. All per-weekday
// output is keyed and ordered by this array.
var dayKeys = [7]string{
	"monday",
	"tuesday",
	"wednesday",
	"thursday",
	"friday",
	"saturday",
	"sunday",
}

// gtfsWeekday converts Go's Sunday-based weekday to the GTFS Monday-based
// index used throughout the pipeline.
func gtfsWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// parseGTFSDate parses a YYYYMMDD service date as a UTC calendar day.
func parseGTFSDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation("20060102", value, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

type dateSet map[time.Time]struct{}

// collectServiceDates resolves each relevant service id to its concrete set
// of active dates: the weekly recurrence from calendar expanded day by day,
// then calendar_dates exceptions applied on top. Services never referenced
// by an in-scope trip are skipped entirely. Both tables are optional; a feed
// carrying neither simply yields no resolvable dates.
func collectServiceDates(src TableSource, relevant map[string]struct{}) (map[string]dateSet, error) {
	serviceDates := make(map[string]dateSet)

	if src.HasTable(gtfs.TableCalendar) {
		err := src.EachRow(gtfs.TableCalendar, func(row gtfs.Row) error {
			serviceID := row.Get("service_id")
			if _, ok := relevant[serviceID]; !ok {
				return nil
			}

			startDate, err := parseGTFSDate(row.Get("start_date"))
			if err != nil {
				return nil
			}
			endDate, err := parseGTFSDate(row.Get("end_date"))
			if err != nil {
				return nil
			}

			var activeWeekdays [7]bool
			any := false
			for i, key := range dayKeys {
				if normalizeWhitespace(row.Get(key)) == "1" {
					activeWeekdays[i] = true
					any = true
				}
			}
			if !any {
				return nil
			}

			dates := serviceDates[serviceID]
			if dates == nil {
				dates = make(dateSet)
				serviceDates[serviceID] = dates
			}
			for cursor := startDate; !cursor.After(endDate); cursor = cursor.AddDate(0, 0, 1) {
				if activeWeekdays[gtfsWeekday(cursor)] {
					dates[cursor] = struct{}{}
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if src.HasTable(gtfs.TableCalendarDates) {
		err := src.EachRow(gtfs.TableCalendarDates, func(row gtfs.Row) error {
			serviceID := row.Get("service_id")
			if _, ok := relevant[serviceID]; !ok {
				return nil
			}

			serviceDate, err := parseGTFSDate(row.Get("date"))
			if err != nil {
				return nil
			}

			switch normalizeWhitespace(row.Get("exception_type")) {
			case "1":
				dates := serviceDates[serviceID]
				if dates == nil {
					dates = make(dateSet)
					serviceDates[serviceID] = dates
				}
				dates[serviceDate] = struct{}{}
			case "2":
				// Removing a date that was never added is a no-op.
				delete(serviceDates[serviceID], serviceDate)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return serviceDates, nil
}

// chooseRepresentativeDate picks the calendar date that best characterizes a
// route's service on one weekday: the busiest date by trip count, preferring
// upcoming dates over past ones at equal volume, with the earlier date as the
// final tie-break. ok is false when no date of that weekday has any trips.
func chooseRepresentativeDate(dateTripCount map[time.Time]int, weekday int, today time.Time) (time.Time, bool) {
	var best time.Time
	bestCount := 0
	bestDistance := 0
	found := false

	for serviceDate, tripCount := range dateTripCount {
		if gtfsWeekday(serviceDate) != weekday {
			continue
		}
		distance := distanceRank(serviceDate, today)
		if !found ||
			tripCount > bestCount ||
			(tripCount == bestCount && distance < bestDistance) ||
			(tripCount == bestCount && distance == bestDistance && serviceDate.Before(best)) {
			best = serviceDate
			bestCount = tripCount
			bestDistance = distance
			found = true
		}
	}

	return best, found
}

// distanceRank orders candidate dates by relevance to today: today-or-later
// dates rank by days ahead, past dates rank strictly worse than any future
// date by days behind.
func distanceRank(serviceDate, today time.Time) int {
	const pastPenalty = 100_000
	if !serviceDate.Before(today) {
		return daysBetween(today, serviceDate)
	}
	return pastPenalty + daysBetween(serviceDate, today)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}
