/*
Package builder implements the feed transformation pipeline: it turns the
normalized, trip-level rows of one GTFS feed into route-level, direction
aware, calendar-resolved documents for a map-rendering client.

The pipeline runs strict forward passes over the feed's tables:

 1. Route, trip and direction indexing. Each trip is assigned exactly one
    direction key derived from its direction_id, or from a hash of its
    normalized headsign, or a constant default.
 2. Calendar resolution. Weekly recurrences expand to concrete date sets,
    calendar_dates exceptions apply on top, and one representative date per
    weekday is chosen per route by trip volume.
 3. Stop-time aggregation into per-stop, per-direction, per-service time
    sets, later resolved to per-weekday lists via the representative dates.
 4. Shape processing: ordering, deduplication, and simplification under the
    configured point budget.
 5. Assembly of the per-route payloads and manifest entries.

The package consumes the TableSource contract rather than the archive
directly, so any row provider (zip archive, in-memory fixture) can drive a
build. All output ordering is deterministic: identical input and the same
reference date produce byte-identical documents.
*/
package builder
