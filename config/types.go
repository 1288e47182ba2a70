package config

// ServerConfig contains preview server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"omitempty,gt=0"`
}

// OutputConfig controls where and how build artifacts are written
type OutputConfig struct {
	Dir            string `yaml:"dir"`
	MaxShapePoints int    `yaml:"maxShapePoints" validate:"omitempty,gte=50"`
	ScheduleMode   string `yaml:"scheduleMode" validate:"omitempty,oneof=inline external none"`
	Timezone       string `yaml:"timezone"`
}

// SearchTerms adds extra manifest search text to routes whose short name
// matches one of the listed values. An empty match list applies to every
// route of the feed.
type SearchTerms struct {
	Match []string `yaml:"match"`
	Terms string   `yaml:"terms" validate:"required"`
}

// Feed represents a single GTFS source feed
type Feed struct {
	ID          string        `yaml:"id" validate:"required"`
	Label       string        `yaml:"label" validate:"required"`
	Description string        `yaml:"description"`
	GTFSURL     string        `yaml:"gtfsUrl" validate:"omitempty,url"`
	ArchivePath string        `yaml:"archivePath" validate:"required"`
	SearchTerms []SearchTerms `yaml:"searchTerms"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server ServerConfig `yaml:"server"`
	Output OutputConfig `yaml:"output"`
	Feeds  []Feed       `yaml:"feeds"`
}
