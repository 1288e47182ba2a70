package builder

import (
	"fmt"
	"time"

	"github.com/transitmaps/routebuilder/gtfs"
)

// ScheduleMode controls how per-stop schedule data is emitted.
type ScheduleMode string

const (
	// ScheduleModeInline embeds raw per-service time tables in each route
	// document and lets the consumer resolve active services.
	ScheduleModeInline ScheduleMode = "inline"
	// ScheduleModeExternal resolves per-weekday time tables and writes them
	// to a companion schedule document per route.
	ScheduleModeExternal ScheduleMode = "external"
	// ScheduleModeNone suppresses schedule computation entirely.
	ScheduleModeNone ScheduleMode = "none"
)

// ParseScheduleMode validates a schedule mode string from configuration.
func ParseScheduleMode(value string) (ScheduleMode, error) {
	switch ScheduleMode(value) {
	case ScheduleModeInline, ScheduleModeExternal, ScheduleModeNone:
		return ScheduleMode(value), nil
	}
	return "", fmt.Errorf("builder: unknown schedule mode %q", value)
}

// MinShapePoints is the lowest accepted shape point budget; anything smaller
// degrades geometry beyond usefulness for rendering.
const MinShapePoints = 50

// Options configures one pipeline run.
type Options struct {
	MaxShapePoints int
	ScheduleMode   ScheduleMode
	// Today anchors representative-date tie-breaking. Zero means the current
	// UTC date.
	Today time.Time
}

// Validate rejects invalid options before any processing begins.
func (o Options) Validate() error {
	if o.MaxShapePoints < MinShapePoints {
		return fmt.Errorf("builder: max shape points must be >= %d, got %d", MinShapePoints, o.MaxShapePoints)
	}
	switch o.ScheduleMode {
	case ScheduleModeInline, ScheduleModeExternal, ScheduleModeNone:
	default:
		return fmt.Errorf("builder: unknown schedule mode %q", o.ScheduleMode)
	}
	return nil
}

func (o Options) today() time.Time {
	if o.Today.IsZero() {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(o.Today.Year(), o.Today.Month(), o.Today.Day(), 0, 0, 0, 0, time.UTC)
}

// SearchTermRule adds synonym terms to manifest search text for routes whose
// short name matches; an empty match list applies to every route.
type SearchTermRule struct {
	Match []string
	Terms string
}

// FeedInfo identifies one GTFS source feed.
type FeedInfo struct {
	AgencyID    string
	AgencyLabel string
	Description string
	GTFSURL     string
	ArchivePath string
	SearchTerms []SearchTermRule
}

// TableSource is the archive-access contract the pipeline consumes: named
// tables iterated as string-keyed rows, per-table presence checks, and the
// archive's freshness marker.
type TableSource interface {
	HasTable(table string) bool
	EachRow(table string, fn func(gtfs.Row) error) error
	NewestEntryTime() (time.Time, bool)
}

// ShapeEntry is one polyline of a route, tagged with the directions that
// travel it. Points are [lat, lon] pairs.
type ShapeEntry struct {
	ShapeID       string      `json:"shapeId"`
	DirectionKeys []string    `json:"directionKeys"`
	Points        [][]float64 `json:"points"`
}

// StopEntry is one stop of a route. ServiceScheduleByDirection is populated
// in inline mode only: direction key -> service id -> sorted times.
type StopEntry struct {
	StopID                     string                         `json:"stopId"`
	Name                       string                         `json:"name"`
	Lat                        float64                        `json:"lat"`
	Lon                        float64                        `json:"lon"`
	ServiceScheduleByDirection map[string]map[string][]string `json:"serviceScheduleByDirection,omitempty"`
}

// RouteDocument is the full per-route payload written to routes/<file>.
type RouteDocument struct {
	Key             string            `json:"key"`
	AgencyID        string            `json:"agencyId"`
	AgencyLabel     string            `json:"agencyLabel"`
	RouteID         string            `json:"routeId"`
	ShortName       string            `json:"shortName"`
	LongName        string            `json:"longName"`
	RouteDesc       string            `json:"routeDesc"`
	Label           string            `json:"label"`
	Color           string            `json:"color"`
	GTFSColor       string            `json:"gtfsColor"`
	TripCount       int               `json:"tripCount"`
	StopCount       int               `json:"stopCount"`
	ShapeCount      int               `json:"shapeCount"`
	Bounds          [][]float64       `json:"bounds"`
	Shapes          []ShapeEntry      `json:"shapes"`
	Stops           []StopEntry       `json:"stops"`
	DirectionLabels map[string]string `json:"directionLabels"`

	// Inline mode only.
	RepresentativeDates            map[string]*string             `json:"representativeDates,omitempty"`
	ActiveServicesByDayByDirection map[string]map[string][]string `json:"activeServicesByDayByDirection,omitempty"`

	// External mode only: relative path of the companion schedule document.
	ScheduleFile string `json:"scheduleFile,omitempty"`

	// Filename is the route document's file name under routes/.
	Filename string `json:"-"`
}

// ScheduleDocument is the external-mode companion document per route:
// stop id -> direction key -> weekday -> sorted times.
type ScheduleDocument struct {
	Key                           string                                  `json:"key"`
	AgencyID                      string                                  `json:"agencyId"`
	RouteID                       string                                  `json:"routeId"`
	RepresentativeDates           map[string]*string                      `json:"representativeDates"`
	DirectionLabels               map[string]string                       `json:"directionLabels"`
	DaySchedulesByStopByDirection map[string]map[string]map[string][]string `json:"daySchedulesByStopByDirection"`

	Filename string `json:"-"`
}

// ManifestEntry is one route's summary row in the cross-feed manifest.
type ManifestEntry struct {
	Key          string      `json:"key"`
	AgencyID     string      `json:"agencyId"`
	AgencyLabel  string      `json:"agencyLabel"`
	RouteID      string      `json:"routeId"`
	ShortName    string      `json:"shortName"`
	LongName     string      `json:"longName"`
	RouteDesc    string      `json:"routeDesc"`
	Label        string      `json:"label"`
	Color        string      `json:"color"`
	TripCount    int         `json:"tripCount"`
	StopCount    int         `json:"stopCount"`
	ShapeCount   int         `json:"shapeCount"`
	Bounds       [][]float64 `json:"bounds"`
	File         string      `json:"file"`
	SearchText   string      `json:"searchText"`
	ScheduleFile string      `json:"scheduleFile,omitempty"`
}

// SourceMeta records a feed's provenance in the manifest.
type SourceMeta struct {
	AgencyID      string  `json:"agencyId"`
	AgencyLabel   string  `json:"agencyLabel"`
	Description   string  `json:"description"`
	GTFSURL       string  `json:"gtfsUrl"`
	GTFSZip       string  `json:"gtfsZip"`
	FeedUpdatedAt *string `json:"feedUpdatedAt"`
}

// AgencyInfo is a feed's identity block in the manifest.
type AgencyInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Manifest is the single cross-feed index document.
type Manifest struct {
	BuildID     string          `json:"buildId"`
	GeneratedAt string          `json:"generatedAt"`
	Timezone    string          `json:"timezone"`
	Agencies    []AgencyInfo    `json:"agencies"`
	Sources     []SourceMeta    `json:"sources"`
	RouteCount  int             `json:"routeCount"`
	Routes      []ManifestEntry `json:"routes"`
}

// Result is everything one feed build produces.
type Result struct {
	Source    SourceMeta
	Routes    []RouteDocument
	Schedules []ScheduleDocument
	Manifest  []ManifestEntry
}
