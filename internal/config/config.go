package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/v0xg/menucrawl/internal/crawler"
)

const (
	// AppName is used for XDG directory paths.
	AppName = "menucrawl"

	// DefaultSite is the dining hall storefront the selectors were written for.
	DefaultSite = "https://new.dineoncampus.com/tcnj/whats-on-the-menu"

	DefaultFormat = "table"

	// DefaultServiceName identifies exported traces.
	DefaultServiceName = "menucrawl"
)

// Config holds every option of a crawl. It is populated from defaults, then
// the config file, then CLI flags.
type Config struct {
	Site      string            `yaml:"site" json:"site"`
	Selectors crawler.Selectors `yaml:"selectors" json:"selectors"`
	Timeouts  Timeouts          `yaml:"timeouts" json:"timeouts"`
	Settle    Settle            `yaml:"settle" json:"settle"`
	Browser   Browser           `yaml:"browser" json:"browser"`
	Output    Output            `yaml:"output" json:"output"`
	Store     Store             `yaml:"store" json:"store"`
	Telemetry Telemetry         `yaml:"telemetry" json:"telemetry"`
	Annotate  Annotate          `yaml:"annotate" json:"annotate"`

	// Verbose enables debug logging.
	Verbose bool `yaml:"-" json:"-"`
}

// Timeouts bound each level's change wait
type Timeouts struct {
	Day     Duration `yaml:"day" json:"day"`
	Period  Duration `yaml:"period" json:"period"`
	Station Duration `yaml:"station" json:"station"`
	Load    Duration `yaml:"load" json:"load"`
}

// Settle is the pause after each successful transition
type Settle struct {
	Day     Duration `yaml:"day" json:"day"`
	Period  Duration `yaml:"period" json:"period"`
	Station Duration `yaml:"station" json:"station"`
}

type Browser struct {
	// Show runs Chromium with a visible window.
	Show       bool   `yaml:"show" json:"show"`
	ProfileDir string `yaml:"profile_dir" json:"profile_dir"`
	Width      int    `yaml:"width" json:"width"`
	Height     int    `yaml:"height" json:"height"`
}

type Output struct {
	Format         string `yaml:"format" json:"format"`
	Path           string `yaml:"path" json:"path"`
	DiagnosticsDir string `yaml:"diagnostics_dir" json:"diagnostics_dir"`
}

type Store struct {
	Dir string `yaml:"dir" json:"dir"`
	// Save archives every crawl without --save.
	Save bool `yaml:"save" json:"save"`
}

type Telemetry struct {
	OTLPEndpoint string            `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	Headers      map[string]string `yaml:"headers" json:"headers"`
	ServiceName  string            `yaml:"service_name" json:"service_name"`
}

type Annotate struct {
	Provider string `yaml:"provider" json:"provider"` // claude, openai
	Model    string `yaml:"model" json:"model"`
}

// NewConfig returns a Config with the defaults observed to work against the
// live site.
func NewConfig() *Config {
	def := crawler.DefaultConfig()
	return &Config{
		Site:      DefaultSite,
		Selectors: def.Selectors,
		Timeouts: Timeouts{
			Day:     Duration(def.Timeouts.Day),
			Period:  Duration(def.Timeouts.Period),
			Station: Duration(def.Timeouts.Station),
			Load:    Duration(30 * time.Second),
		},
		Settle: Settle{
			Day:     Duration(def.Settle.Day),
			Period:  Duration(def.Settle.Period),
			Station: Duration(def.Settle.Station),
		},
		Browser: Browser{
			Width:  1280,
			Height: 800,
		},
		Output: Output{
			Format: DefaultFormat,
		},
		Store: Store{
			Dir: DefaultStoreDir(),
		},
		Telemetry: Telemetry{
			ServiceName: DefaultServiceName,
		},
	}
}

// DefaultStoreDir returns $XDG_DATA_HOME/menucrawl
func DefaultStoreDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Crawler converts the configuration into the crawler's own form
func (c *Config) Crawler() crawler.Config {
	return crawler.Config{
		Selectors: c.Selectors,
		Timeouts: crawler.Timeouts{
			Day:     c.Timeouts.Day.Std(),
			Period:  c.Timeouts.Period.Std(),
			Station: c.Timeouts.Station.Std(),
		},
		Settle: crawler.Settle{
			Day:     c.Settle.Day.Std(),
			Period:  c.Settle.Period.Std(),
			Station: c.Settle.Station.Std(),
		},
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	s := c.Selectors
	for _, v := range []string{
		s.Day, s.DayScope, s.DayClass, s.DaySelectedClass,
		s.Period, s.PeriodScope, s.PeriodActiveClass,
		s.Station, s.StationScope, s.ItemCardClass,
	} {
		if v == "" {
			return ErrMissingSelector
		}
	}
	if c.Timeouts.Day <= 0 || c.Timeouts.Period <= 0 || c.Timeouts.Station <= 0 {
		return ErrInvalidTimeout
	}
	if c.Settle.Day < 0 || c.Settle.Period < 0 || c.Settle.Station < 0 {
		return ErrInvalidSettle
	}
	switch c.Output.Format {
	case "json", "markdown", "table":
	default:
		return ErrInvalidFormat
	}
	switch c.Annotate.Provider {
	case "", "claude", "openai":
	default:
		return ErrUnknownProvider
	}
	return nil
}
