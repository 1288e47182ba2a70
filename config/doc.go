// Package config handles application configuration loading and validation.
//
// Configuration is loaded from config.yml and validated using struct tags.
// The package supports multiple GTFS feeds plus output and preview server
// options; unset fields receive documented defaults.
package config
