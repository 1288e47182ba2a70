// Package routebuilder converts GTFS feeds into per-route JSON documents and
// a cross-feed manifest for a map-rendering client, and can serve the built
// output during development.
package routebuilder

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/transitmaps/routebuilder/builder"
	"github.com/transitmaps/routebuilder/config"
	"github.com/transitmaps/routebuilder/formatter"
	"github.com/transitmaps/routebuilder/gtfs"
	"github.com/transitmaps/routebuilder/internal/logging"
)

// RunOptions configures one full build across all configured feeds.
type RunOptions struct {
	builder.Options
	// GeoJSON additionally exports one FeatureCollection per route.
	GeoJSON bool
}

// TodayIn returns the current calendar date in the named timezone, the
// reference date for representative-date tie-breaking.
func TodayIn(tzName string) (time.Time, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return time.Time{}, fmt.Errorf("routebuilder: load timezone %s: %w", tzName, err)
	}
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Run builds every configured feed and writes the output tree: one JSON
// document per route under routes/, optional schedule companions under
// schedules/, optional GeoJSON exports under geojson/, and the manifest. The
// routes and schedules subfolders are wiped and fully rewritten; the build
// is not incremental. Any unrecoverable input error aborts the whole build.
func Run(cfg *config.AppConfig, opts RunOptions, logger *slog.Logger) (*builder.Manifest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	outDir := cfg.Output.Dir
	if err := prepareOutputDirs(outDir, opts); err != nil {
		return nil, err
	}

	var (
		agencies []builder.AgencyInfo
		sources  []builder.SourceMeta
		entries  []builder.ManifestEntry
	)

	for _, feed := range cfg.Feeds {
		started := time.Now()
		result, err := buildOneFeed(feed, opts, logger)
		if err != nil {
			logging.LogError(logger, "feed build failed", err, slog.String("agency", feed.ID))
			return nil, err
		}
		if err := writeFeedResult(outDir, result, opts); err != nil {
			return nil, err
		}

		agencies = append(agencies, builder.AgencyInfo{
			ID:          feed.ID,
			Label:       feed.Label,
			Description: feed.Description,
		})
		sources = append(sources, result.Source)
		entries = append(entries, result.Manifest...)

		logging.LogOperation(logger, "feed_complete",
			slog.String("agency", feed.ID),
			slog.Int("routes", len(result.Routes)),
			slog.Duration("duration", time.Since(started)))
	}

	manifest := builder.NewManifest(cfg.Output.Timezone, agencies, sources, entries)
	manifestPath := filepath.Join(outDir, "manifest.json")
	if err := formatter.WriteIndented(manifestPath, manifest); err != nil {
		return nil, err
	}

	logging.LogOperation(logger, "build_complete",
		slog.String("manifest", manifestPath),
		slog.Int("route_count", manifest.RouteCount))
	for agency, count := range routesByAgency(manifest.Routes) {
		logger.Info("agency_routes", slog.String("agency", agency), slog.Int("routes", count))
	}

	return &manifest, nil
}

func buildOneFeed(feed config.Feed, opts RunOptions, logger *slog.Logger) (*builder.Result, error) {
	archive, err := gtfs.OpenArchive(feed.ArchivePath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	return builder.BuildFeed(archive, feedInfo(feed), opts.Options, logger)
}

func feedInfo(feed config.Feed) builder.FeedInfo {
	info := builder.FeedInfo{
		AgencyID:    feed.ID,
		AgencyLabel: feed.Label,
		Description: feed.Description,
		GTFSURL:     feed.GTFSURL,
		ArchivePath: feed.ArchivePath,
	}
	for _, rule := range feed.SearchTerms {
		info.SearchTerms = append(info.SearchTerms, builder.SearchTermRule{
			Match: rule.Match,
			Terms: rule.Terms,
		})
	}
	return info
}

func prepareOutputDirs(outDir string, opts RunOptions) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("routebuilder: create output dir: %w", err)
	}

	routesDir := filepath.Join(outDir, "routes")
	if err := os.RemoveAll(routesDir); err != nil {
		return fmt.Errorf("routebuilder: clear routes dir: %w", err)
	}
	if err := os.MkdirAll(routesDir, 0o755); err != nil {
		return err
	}

	schedulesDir := filepath.Join(outDir, "schedules")
	if err := os.RemoveAll(schedulesDir); err != nil {
		return fmt.Errorf("routebuilder: clear schedules dir: %w", err)
	}
	if opts.ScheduleMode == builder.ScheduleModeExternal {
		if err := os.MkdirAll(schedulesDir, 0o755); err != nil {
			return err
		}
	}

	geojsonDir := filepath.Join(outDir, "geojson")
	if err := os.RemoveAll(geojsonDir); err != nil {
		return fmt.Errorf("routebuilder: clear geojson dir: %w", err)
	}
	if opts.GeoJSON {
		if err := os.MkdirAll(geojsonDir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func writeFeedResult(outDir string, result *builder.Result, opts RunOptions) error {
	for i := range result.Routes {
		doc := &result.Routes[i]
		if err := formatter.WriteCompact(filepath.Join(outDir, "routes", doc.Filename), doc); err != nil {
			return err
		}
		if opts.GeoJSON {
			name := strings.TrimSuffix(doc.Filename, ".json") + ".geojson"
			if err := formatter.WriteCompact(filepath.Join(outDir, "geojson", name), builder.RouteGeoJSON(doc)); err != nil {
				return err
			}
		}
	}
	for i := range result.Schedules {
		doc := &result.Schedules[i]
		if err := formatter.WriteCompact(filepath.Join(outDir, "schedules", doc.Filename), doc); err != nil {
			return err
		}
	}
	return nil
}

func routesByAgency(entries []builder.ManifestEntry) map[string]int {
	counts := map[string]int{}
	for _, entry := range entries {
		counts[entry.AgencyID]++
	}
	return counts
}
