package builder

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/transitmaps/routebuilder/gtfs"
)

// routeIndex accumulates everything observed about one route across the
// table passes. Nested maps are initialized explicitly as each direction or
// stop is first seen.
type routeIndex struct {
	routeID   string
	shortName string
	longName  string
	routeDesc string
	label     string
	color     string
	gtfsColor string

	tripIDs             map[string]struct{}
	serviceIDs          map[string]struct{}
	directionServiceIDs map[string]map[string]struct{}
	directionIDByKey    map[string]string
	directionLabelVotes map[string]map[string]int
	shapeIDs            map[string]struct{}
	shapeDirections     map[string]map[string]struct{}
	stopIDs             map[string]struct{}

	// stop id -> direction key -> service id -> departure times
	schedule map[string]map[string]map[string]timeSet

	directionKeys   []string
	directionLabels map[string]string

	dateTripCount map[time.Time]int
	repDates      [7]*time.Time
	// direction key -> weekday index -> active service ids
	activeServices map[string][]map[string]struct{}

	shapes []ShapeEntry
}

func newRouteIndex(routeID string) *routeIndex {
	return &routeIndex{
		routeID:             routeID,
		tripIDs:             map[string]struct{}{},
		serviceIDs:          map[string]struct{}{},
		directionServiceIDs: map[string]map[string]struct{}{},
		directionIDByKey:    map[string]string{},
		directionLabelVotes: map[string]map[string]int{},
		shapeIDs:            map[string]struct{}{},
		shapeDirections:     map[string]map[string]struct{}{},
		stopIDs:             map[string]struct{}{},
		schedule:            map[string]map[string]map[string]timeSet{},
		dateTripCount:       map[time.Time]int{},
		activeServices:      map[string][]map[string]struct{}{},
	}
}

// feedBuilder runs the pipeline's passes over one feed in strict order:
// route/trip/direction indexing, calendar resolution, stop-time aggregation,
// shape processing, then assembly. Each pass fully consumes its inputs
// before the next begins.
type feedBuilder struct {
	src   TableSource
	feed  FeedInfo
	opts  Options
	log   *slog.Logger
	today time.Time

	routeOrder []string
	routes     map[string]*routeIndex

	tripToRoute        map[string]string
	tripToService      map[string]string
	tripToDirectionKey map[string]string

	serviceDates map[string]dateSet
	stopInfo     map[string]StopEntry
}

// BuildFeed transforms one GTFS feed into its route documents, optional
// schedule documents, and manifest entries. Missing required tables abort
// the feed; malformed rows are skipped individually.
func BuildFeed(src TableSource, feed FeedInfo, opts Options, logger *slog.Logger) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := &feedBuilder{
		src:                src,
		feed:               feed,
		opts:               opts,
		log:                logger.With(slog.String("agency", feed.AgencyID)),
		today:              opts.today(),
		routes:             map[string]*routeIndex{},
		tripToRoute:        map[string]string{},
		tripToService:      map[string]string{},
		tripToDirectionKey: map[string]string{},
		stopInfo:           map[string]StopEntry{},
	}

	if err := b.loadRoutes(); err != nil {
		return nil, fmt.Errorf("builder: %s routes: %w", feed.AgencyID, err)
	}
	if err := b.loadTrips(); err != nil {
		return nil, fmt.Errorf("builder: %s trips: %w", feed.AgencyID, err)
	}
	b.resolveDirections()
	if err := b.resolveCalendar(); err != nil {
		return nil, fmt.Errorf("builder: %s calendar: %w", feed.AgencyID, err)
	}
	if err := b.loadStopTimes(); err != nil {
		return nil, fmt.Errorf("builder: %s stop times: %w", feed.AgencyID, err)
	}
	if err := b.loadStops(); err != nil {
		return nil, fmt.Errorf("builder: %s stops: %w", feed.AgencyID, err)
	}
	if err := b.loadShapes(); err != nil {
		return nil, fmt.Errorf("builder: %s shapes: %w", feed.AgencyID, err)
	}

	return b.assemble(), nil
}

func (b *feedBuilder) loadRoutes() error {
	err := b.src.EachRow(gtfs.TableRoutes, func(row gtfs.Row) error {
		routeID := strings.TrimSpace(row.Get("route_id"))
		if routeID == "" {
			return nil
		}

		ri, known := b.routes[routeID]
		if !known {
			ri = newRouteIndex(routeID)
			b.routes[routeID] = ri
			b.routeOrder = append(b.routeOrder, routeID)
		}

		shortName := strings.TrimSpace(row.Get("route_short_name"))
		if shortName == "" {
			shortName = routeID
		}
		ri.shortName = shortName
		ri.longName = strings.TrimSpace(row.Get("route_long_name"))
		ri.routeDesc = strings.TrimSpace(row.Get("route_desc"))
		ri.label = strings.TrimSpace(shortName + " " + ri.longName)
		ri.gtfsColor = normalizeColor(row.Get("route_color"))
		ri.color = ri.gtfsColor
		if ri.color == "" {
			ri.color = stableRouteColor(fmt.Sprintf("%s:%s:%s", b.feed.AgencyID, shortName, routeID))
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.log.Debug("indexed routes", slog.Int("count", len(b.routeOrder)))
	return nil
}

func (b *feedBuilder) loadTrips() error {
	return b.src.EachRow(gtfs.TableTrips, func(row gtfs.Row) error {
		routeID := strings.TrimSpace(row.Get("route_id"))
		ri, ok := b.routes[routeID]
		if !ok {
			return nil
		}
		tripID := strings.TrimSpace(row.Get("trip_id"))
		if tripID == "" {
			return nil
		}

		serviceID := strings.TrimSpace(row.Get("service_id"))
		shapeID := strings.TrimSpace(row.Get("shape_id"))
		directionID := normalizeWhitespace(row.Get("direction_id"))
		headsign := normalizeHeadsign(row.Get("trip_headsign"), ri.shortName, routeID)
		directionKey := buildDirectionKey(directionID, headsign)

		b.tripToRoute[tripID] = routeID
		b.tripToService[tripID] = serviceID
		b.tripToDirectionKey[tripID] = directionKey

		ri.tripIDs[tripID] = struct{}{}
		ri.serviceIDs[serviceID] = struct{}{}
		services := ri.directionServiceIDs[directionKey]
		if services == nil {
			services = map[string]struct{}{}
			ri.directionServiceIDs[directionKey] = services
		}
		services[serviceID] = struct{}{}

		if shapeID != "" {
			ri.shapeIDs[shapeID] = struct{}{}
			dirs := ri.shapeDirections[shapeID]
			if dirs == nil {
				dirs = map[string]struct{}{}
				ri.shapeDirections[shapeID] = dirs
			}
			dirs[directionKey] = struct{}{}
		}

		if _, seen := ri.directionIDByKey[directionKey]; !seen {
			ri.directionIDByKey[directionKey] = directionID
		}
		if headsign != "" {
			votes := ri.directionLabelVotes[directionKey]
			if votes == nil {
				votes = map[string]int{}
				ri.directionLabelVotes[directionKey] = votes
			}
			votes[headsign]++
		}
		return nil
	})
}

// resolveDirections finalizes each route's direction taxonomy: the ordered
// key list and one label per key. A route with no observed trips gets the
// single default direction.
func (b *feedBuilder) resolveDirections() {
	for _, routeID := range b.routeOrder {
		ri := b.routes[routeID]

		keys := make([]string, 0, len(ri.directionServiceIDs))
		for key := range ri.directionServiceIDs {
			keys = append(keys, key)
		}
		if len(keys) == 0 {
			keys = []string{defaultDirectionKey}
			all := make(map[string]struct{}, len(ri.serviceIDs))
			for serviceID := range ri.serviceIDs {
				all[serviceID] = struct{}{}
			}
			ri.directionServiceIDs[defaultDirectionKey] = all
			ri.directionIDByKey[defaultDirectionKey] = ""
		}

		labels := make(map[string]string, len(keys))
		for _, key := range keys {
			if label, ok := chooseDirectionLabel(ri.directionLabelVotes[key]); ok {
				labels[key] = label
				continue
			}
			labels[key] = fallbackDirectionLabel(ri.directionIDByKey[key])
		}

		ri.directionKeys = sortDirectionKeys(keys, ri.directionIDByKey, labels)
		ri.directionLabels = labels
	}
}

// resolveCalendar expands service dates for every service referenced by an
// in-scope trip, then selects per-weekday representative dates and the
// active service set per direction.
func (b *feedBuilder) resolveCalendar() error {
	relevant := map[string]struct{}{}
	for _, ri := range b.routes {
		for serviceID := range ri.serviceIDs {
			relevant[serviceID] = struct{}{}
		}
	}

	var err error
	b.serviceDates, err = collectServiceDates(b.src, relevant)
	if err != nil {
		return err
	}

	for tripID, routeID := range b.tripToRoute {
		ri := b.routes[routeID]
		for serviceDate := range b.serviceDates[b.tripToService[tripID]] {
			ri.dateTripCount[serviceDate]++
		}
	}

	for _, routeID := range b.routeOrder {
		ri := b.routes[routeID]
		for weekday := range dayKeys {
			if chosen, ok := chooseRepresentativeDate(ri.dateTripCount, weekday, b.today); ok {
				date := chosen
				ri.repDates[weekday] = &date
			}
		}

		for _, directionKey := range ri.directionKeys {
			days := make([]map[string]struct{}, len(dayKeys))
			for weekday := range dayKeys {
				active := map[string]struct{}{}
				if chosen := ri.repDates[weekday]; chosen != nil {
					for serviceID := range ri.directionServiceIDs[directionKey] {
						if _, ok := b.serviceDates[serviceID][*chosen]; ok {
							active[serviceID] = struct{}{}
						}
					}
				}
				days[weekday] = active
			}
			ri.activeServices[directionKey] = days
		}
	}

	b.log.Debug("resolved calendar",
		slog.Int("services", len(relevant)),
		slog.String("today", b.today.Format("2006-01-02")))
	return nil
}

func (b *feedBuilder) loadStopTimes() error {
	return b.src.EachRow(gtfs.TableStopTimes, func(row gtfs.Row) error {
		tripID := strings.TrimSpace(row.Get("trip_id"))
		routeID, ok := b.tripToRoute[tripID]
		if !ok {
			return nil
		}
		ri := b.routes[routeID]

		stopID := strings.TrimSpace(row.Get("stop_id"))
		if stopID == "" {
			return nil
		}
		ri.stopIDs[stopID] = struct{}{}

		if b.opts.ScheduleMode == ScheduleModeNone {
			return nil
		}

		raw := row.Get("departure_time")
		if raw == "" {
			raw = row.Get("arrival_time")
		}
		normalized, ok := normalizeGTFSTime(strings.TrimSpace(raw))
		if !ok {
			return nil
		}

		serviceID := b.tripToService[tripID]
		directionKey := b.tripToDirectionKey[tripID]
		if directionKey == "" {
			directionKey = defaultDirectionKey
		}

		byDirection := ri.schedule[stopID]
		if byDirection == nil {
			byDirection = map[string]map[string]timeSet{}
			ri.schedule[stopID] = byDirection
		}
		byService := byDirection[directionKey]
		if byService == nil {
			byService = map[string]timeSet{}
			byDirection[directionKey] = byService
		}
		times := byService[serviceID]
		if times == nil {
			times = timeSet{}
			byService[serviceID] = times
		}
		times[normalized] = struct{}{}
		return nil
	})
}

func (b *feedBuilder) loadStops() error {
	selected := map[string]struct{}{}
	for _, ri := range b.routes {
		for stopID := range ri.stopIDs {
			selected[stopID] = struct{}{}
		}
	}

	return b.src.EachRow(gtfs.TableStops, func(row gtfs.Row) error {
		stopID := strings.TrimSpace(row.Get("stop_id"))
		if _, ok := selected[stopID]; !ok {
			return nil
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(row.Get("stop_lat")), 64)
		if err != nil {
			return nil
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row.Get("stop_lon")), 64)
		if err != nil {
			return nil
		}

		name := strings.TrimSpace(row.Get("stop_name"))
		if name == "" {
			name = stopID
		}
		b.stopInfo[stopID] = StopEntry{
			StopID: stopID,
			Name:   name,
			Lat:    round6(lat),
			Lon:    round6(lon),
		}
		return nil
	})
}

// loadShapes streams shapes.txt, which groups points by consecutive shape
// id, flushing each finished shape into every route that references it.
func (b *feedBuilder) loadShapes() error {
	shapeToRoutes := map[string][]string{}
	for _, routeID := range b.routeOrder {
		for shapeID := range b.routes[routeID].shapeIDs {
			shapeToRoutes[shapeID] = append(shapeToRoutes[shapeID], routeID)
		}
	}
	if !b.src.HasTable(gtfs.TableShapes) || len(shapeToRoutes) == 0 {
		return nil
	}

	flush := func(shapeID string, points []seqPoint) {
		if shapeID == "" || len(points) == 0 {
			return
		}
		routeIDs := shapeToRoutes[shapeID]
		if len(routeIDs) == 0 {
			return
		}
		geometry := dedupeAndSimplifyShape(points, b.opts.MaxShapePoints)
		if len(geometry) < 2 {
			return
		}
		for _, routeID := range routeIDs {
			ri := b.routes[routeID]
			ri.shapes = append(ri.shapes, ShapeEntry{
				ShapeID:       shapeID,
				DirectionKeys: shapeDirectionKeys(ri.directionKeys, ri.shapeDirections[shapeID]),
				Points:        geometry,
			})
		}
	}

	currentShapeID := ""
	var currentPoints []seqPoint

	err := b.src.EachRow(gtfs.TableShapes, func(row gtfs.Row) error {
		shapeID := strings.TrimSpace(row.Get("shape_id"))
		if _, ok := shapeToRoutes[shapeID]; !ok {
			return nil
		}

		if currentShapeID == "" {
			currentShapeID = shapeID
		}
		if shapeID != currentShapeID {
			flush(currentShapeID, currentPoints)
			currentShapeID = shapeID
			currentPoints = nil
		}

		seq, err := strconv.Atoi(strings.TrimSpace(row.Get("shape_pt_sequence")))
		if err != nil {
			return nil
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(row.Get("shape_pt_lat")), 64)
		if err != nil {
			return nil
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(row.Get("shape_pt_lon")), 64)
		if err != nil {
			return nil
		}
		currentPoints = append(currentPoints, seqPoint{seq: seq, lat: lat, lon: lon})
		return nil
	})
	if err != nil {
		return err
	}
	flush(currentShapeID, currentPoints)
	return nil
}

// assemble combines the pass outputs into per-route payloads and manifest
// entries. Routes emit in routes.txt encounter order; within a route, stops
// sort by lowercased name then id.
func (b *feedBuilder) assemble() *Result {
	res := &Result{Source: b.sourceMeta()}

	for _, routeID := range b.routeOrder {
		ri := b.routes[routeID]
		routeKey := b.feed.AgencyID + ":" + routeID

		stops := b.assembleStops(ri)
		shapes := ri.shapes
		if shapes == nil {
			shapes = []ShapeEntry{}
		}
		bounds := computeBounds(shapes, stops)
		repDates := b.representativeDatesJSON(ri)

		filename := fmt.Sprintf("%s_%s_%s.json",
			b.feed.AgencyID, sanitizeFilename(ri.shortName), sanitizeFilename(routeID))

		doc := RouteDocument{
			Key:             routeKey,
			AgencyID:        b.feed.AgencyID,
			AgencyLabel:     b.feed.AgencyLabel,
			RouteID:         routeID,
			ShortName:       ri.shortName,
			LongName:        ri.longName,
			RouteDesc:       ri.routeDesc,
			Label:           ri.label,
			Color:           ri.color,
			GTFSColor:       ri.gtfsColor,
			TripCount:       len(ri.tripIDs),
			StopCount:       len(stops),
			ShapeCount:      len(shapes),
			Bounds:          bounds,
			Shapes:          shapes,
			Stops:           stops,
			DirectionLabels: ri.directionLabels,
			Filename:        filename,
		}

		switch b.opts.ScheduleMode {
		case ScheduleModeInline:
			doc.RepresentativeDates = repDates
			doc.ActiveServicesByDayByDirection = b.activeServicesJSON(ri)
		case ScheduleModeExternal:
			scheduleFilename := strings.TrimSuffix(filename, ".json") + "_schedule.json"
			res.Schedules = append(res.Schedules, ScheduleDocument{
				Key:                           routeKey,
				AgencyID:                      b.feed.AgencyID,
				RouteID:                       routeID,
				RepresentativeDates:           repDates,
				DirectionLabels:               ri.directionLabels,
				DaySchedulesByStopByDirection: b.resolveDaySchedules(ri, stops),
				Filename:                      scheduleFilename,
			})
			doc.ScheduleFile = "schedules/" + scheduleFilename
		}

		res.Routes = append(res.Routes, doc)
		res.Manifest = append(res.Manifest, ManifestEntry{
			Key:          routeKey,
			AgencyID:     b.feed.AgencyID,
			AgencyLabel:  b.feed.AgencyLabel,
			RouteID:      routeID,
			ShortName:    ri.shortName,
			LongName:     ri.longName,
			RouteDesc:    ri.routeDesc,
			Label:        ri.label,
			Color:        ri.color,
			TripCount:    len(ri.tripIDs),
			StopCount:    len(stops),
			ShapeCount:   len(shapes),
			Bounds:       bounds,
			File:         "routes/" + filename,
			SearchText:   b.searchText(ri),
			ScheduleFile: doc.ScheduleFile,
		})
	}

	b.log.Info("feed built",
		slog.Int("routes", len(res.Routes)),
		slog.Int("trips", len(b.tripToRoute)),
		slog.Int("stops", len(b.stopInfo)))
	return res
}

func (b *feedBuilder) sourceMeta() SourceMeta {
	var updatedAt *string
	if newest, ok := b.src.NewestEntryTime(); ok {
		formatted := newest.Format(time.RFC3339)
		updatedAt = &formatted
	}
	return SourceMeta{
		AgencyID:      b.feed.AgencyID,
		AgencyLabel:   b.feed.AgencyLabel,
		Description:   b.feed.Description,
		GTFSURL:       b.feed.GTFSURL,
		GTFSZip:       b.feed.ArchivePath,
		FeedUpdatedAt: updatedAt,
	}
}

func (b *feedBuilder) assembleStops(ri *routeIndex) []StopEntry {
	stopIDs := make([]string, 0, len(ri.stopIDs))
	for stopID := range ri.stopIDs {
		stopIDs = append(stopIDs, stopID)
	}
	sort.Slice(stopIDs, func(i, j int) bool {
		ni, nj := stopIDs[i], stopIDs[j]
		if info, ok := b.stopInfo[ni]; ok {
			ni = info.Name
		}
		if info, ok := b.stopInfo[nj]; ok {
			nj = info.Name
		}
		li, lj := strings.ToLower(ni), strings.ToLower(nj)
		if li != lj {
			return li < lj
		}
		return stopIDs[i] < stopIDs[j]
	})

	stops := make([]StopEntry, 0, len(stopIDs))
	for _, stopID := range stopIDs {
		info, ok := b.stopInfo[stopID]
		if !ok {
			continue
		}
		entry := info
		if b.opts.ScheduleMode == ScheduleModeInline {
			entry.ServiceScheduleByDirection = b.inlineStopSchedule(ri, stopID)
		}
		stops = append(stops, entry)
	}
	return stops
}

// inlineStopSchedule exposes the raw per-direction, per-service time tables
// for one stop, restricted to the route's own services.
func (b *feedBuilder) inlineStopSchedule(ri *routeIndex, stopID string) map[string]map[string][]string {
	directionSchedule := map[string]map[string][]string{}
	byDirection := ri.schedule[stopID]
	for _, directionKey := range ri.directionKeys {
		serviceSchedule := map[string][]string{}
		for serviceID, times := range byDirection[directionKey] {
			if _, ok := ri.serviceIDs[serviceID]; !ok {
				continue
			}
			if sorted := sortedTimes(times); len(sorted) > 0 {
				serviceSchedule[serviceID] = sorted
			}
		}
		if len(serviceSchedule) > 0 {
			directionSchedule[directionKey] = serviceSchedule
		}
	}
	return directionSchedule
}

// resolveDaySchedules merges each stop's per-service times into per-weekday
// lists using the active service set of that weekday's representative date.
func (b *feedBuilder) resolveDaySchedules(ri *routeIndex, stops []StopEntry) map[string]map[string]map[string][]string {
	byStop := map[string]map[string]map[string][]string{}
	for _, stop := range stops {
		byDirection := map[string]map[string][]string{}
		for _, directionKey := range ri.directionKeys {
			byService := ri.schedule[stop.StopID][directionKey]
			byDay := map[string][]string{}
			for weekday, dayKey := range dayKeys {
				byDay[dayKey] = mergeActiveTimes(byService, ri.activeServices[directionKey][weekday])
			}
			byDirection[directionKey] = byDay
		}
		byStop[stop.StopID] = byDirection
	}
	return byStop
}

func (b *feedBuilder) representativeDatesJSON(ri *routeIndex) map[string]*string {
	out := make(map[string]*string, len(dayKeys))
	for weekday, dayKey := range dayKeys {
		if chosen := ri.repDates[weekday]; chosen != nil {
			formatted := chosen.Format("2006-01-02")
			out[dayKey] = &formatted
		} else {
			out[dayKey] = nil
		}
	}
	return out
}

func (b *feedBuilder) activeServicesJSON(ri *routeIndex) map[string]map[string][]string {
	out := make(map[string]map[string][]string, len(ri.directionKeys))
	for _, directionKey := range ri.directionKeys {
		byDay := make(map[string][]string, len(dayKeys))
		for weekday, dayKey := range dayKeys {
			active := ri.activeServices[directionKey][weekday]
			ids := make([]string, 0, len(active))
			for serviceID := range active {
				ids = append(ids, serviceID)
			}
			sort.Strings(ids)
			byDay[dayKey] = ids
		}
		out[directionKey] = byDay
	}
	return out
}

// searchText builds the lowercase manifest search blob: short name, long
// name, description, agency label, plus the first matching synonym rule.
func (b *feedBuilder) searchText(ri *routeIndex) string {
	parts := []string{ri.shortName, ri.longName, ri.routeDesc, b.feed.AgencyLabel}
	for _, rule := range b.feed.SearchTerms {
		if rule.matches(ri.shortName) {
			parts = append(parts, rule.Terms)
			break
		}
	}

	nonEmpty := parts[:0]
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return strings.ToLower(strings.Join(nonEmpty, " "))
}

// matches reports whether a synonym rule applies to a route short name.
// Rules are evaluated in order and the first match wins; an empty match list
// is a catch-all.
func (r SearchTermRule) matches(shortName string) bool {
	if len(r.Match) == 0 {
		return true
	}
	for _, candidate := range r.Match {
		if candidate == shortName {
			return true
		}
	}
	return false
}

func computeBounds(shapes []ShapeEntry, stops []StopEntry) [][]float64 {
	var minLat, minLon, maxLat, maxLon float64
	found := false

	visit := func(lat, lon float64) {
		if !found {
			minLat, maxLat = lat, lat
			minLon, maxLon = lon, lon
			found = true
			return
		}
		if lat < minLat {
			minLat = lat
		}
		if lat > maxLat {
			maxLat = lat
		}
		if lon < minLon {
			minLon = lon
		}
		if lon > maxLon {
			maxLon = lon
		}
	}

	for _, shape := range shapes {
		for _, point := range shape.Points {
			visit(point[0], point[1])
		}
	}
	for _, stop := range stops {
		visit(stop.Lat, stop.Lon)
	}

	if !found {
		return nil
	}
	return [][]float64{
		{round6(minLat), round6(minLon)},
		{round6(maxLat), round6(maxLon)},
	}
}
