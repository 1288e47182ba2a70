package builder

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// SortManifest orders the cross-feed route index: agency label first, then
// natural ordering of the route short name so "Route 9" sorts before
// "Route 10", with the route key as a final tie-break.
func SortManifest(entries []ManifestEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].AgencyLabel != entries[j].AgencyLabel {
			return entries[i].AgencyLabel < entries[j].AgencyLabel
		}
		if c := naturalCompare(entries[i].ShortName, entries[j].ShortName); c != 0 {
			return c < 0
		}
		return entries[i].Key < entries[j].Key
	})
}

// NewManifest assembles the single cross-feed manifest document from the
// per-feed build results, sorting the route index in place.
func NewManifest(timezone string, agencies []AgencyInfo, sources []SourceMeta, routes []ManifestEntry) Manifest {
	SortManifest(routes)
	return Manifest{
		BuildID:     uuid.NewString(),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Timezone:    timezone,
		Agencies:    agencies,
		Sources:     sources,
		RouteCount:  len(routes),
		Routes:      routes,
	}
}
