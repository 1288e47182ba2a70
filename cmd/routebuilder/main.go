package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	lib "github.com/transitmaps/routebuilder"
	"github.com/transitmaps/routebuilder/builder"
	"github.com/transitmaps/routebuilder/config"
	"github.com/transitmaps/routebuilder/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (default: config.yml)")
	outputDir := flag.String("output-dir", "", "output directory (overrides config)")
	maxShapePoints := flag.Int("max-shape-points", 0, "maximum points kept per shape after simplification (overrides config)")
	inlineSchedules := flag.Bool("inline-schedules", false, "embed stop schedules inside each route JSON")
	noStopSchedules := flag.Bool("no-stop-schedules", false, "omit stop-level schedule data entirely")
	refresh := flag.Bool("refresh", false, "re-download all GTFS feeds before building")
	today := flag.String("today", "", "reference date YYYY-MM-DD for representative-date selection (default: current date in the configured timezone)")
	geoJSON := flag.Bool("geojson", false, "also export one GeoJSON FeatureCollection per route")
	serve := flag.Bool("serve", false, "serve the output directory after building")
	port := flag.Int("port", 0, "preview server port (overrides config)")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)

	path := *configPath
	if path == "" {
		path = os.Getenv("ROUTEBUILDER_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		logging.LogError(logger, "failed to load configuration", err)
		os.Exit(1)
	}

	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *maxShapePoints != 0 {
		cfg.Output.MaxShapePoints = *maxShapePoints
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *inlineSchedules {
		cfg.Output.ScheduleMode = string(builder.ScheduleModeInline)
	}
	if *noStopSchedules {
		cfg.Output.ScheduleMode = string(builder.ScheduleModeNone)
	}

	scheduleMode, err := builder.ParseScheduleMode(cfg.Output.ScheduleMode)
	if err != nil {
		logging.LogError(logger, "invalid schedule mode", err)
		os.Exit(1)
	}

	referenceDate, err := resolveToday(*today, cfg.Output.Timezone)
	if err != nil {
		logging.LogError(logger, "invalid reference date", err)
		os.Exit(1)
	}

	opts := lib.RunOptions{
		Options: builder.Options{
			MaxShapePoints: cfg.Output.MaxShapePoints,
			ScheduleMode:   scheduleMode,
			Today:          referenceDate,
		},
		GeoJSON: *geoJSON,
	}
	if err := opts.Validate(); err != nil {
		logging.LogError(logger, "invalid options", err)
		os.Exit(1)
	}

	f := newFetcher()
	for _, feed := range cfg.Feeds {
		if err := f.ensureArchive(feed, *refresh, logger); err != nil {
			logging.LogError(logger, "failed to fetch feed archive", err, slog.String("agency", feed.ID))
			os.Exit(1)
		}
	}

	if _, err := lib.Run(cfg, opts, logger); err != nil {
		logging.LogError(logger, "build failed", err)
		os.Exit(1)
	}

	if *serve {
		lib.StartServer(cfg.Server.Port, cfg.Output.Dir, logger)
		lib.HandleGracefulShutdown(logger)
	}
}

func resolveToday(value, timezone string) (time.Time, error) {
	if value == "" {
		return lib.TodayIn(timezone)
	}
	return time.ParseInLocation("2006-01-02", value, time.UTC)
}
