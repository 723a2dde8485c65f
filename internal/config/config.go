// engine/internal/config/config.go
package config

import (
	"time"
)

const (
	DefaultUserAgent = "GT-CS-Internship-Portal/1.0 (Educational Purpose)"
	DefaultPort      = 38471
)

type SourceFormat string

const (
	FormatMarkdown SourceFormat = "markdown"
	FormatHTML     SourceFormat = "html"
)

type Source struct {
	Name     string       `yaml:"name" json:"name"`
	URL      string       `yaml:"url" json:"url"`
	Priority int          `yaml:"priority" json:"priority"`
	Format   SourceFormat `yaml:"format" json:"format"`
	// markdown only
	Header string `yaml:"header,omitempty" json:"header,omitempty"`
	// html only
	AggregatorDomain string `yaml:"aggregator_domain,omitempty" json:"aggregator_domain,omitempty"`
	Disabled         bool   `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

type AppConfig struct {
	Host    string `yaml:"host" json:"host"`
	Port    int    `yaml:"port" json:"port"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

type StoreConfig struct {
	// sqlite | postgres
	Driver string `yaml:"driver" json:"driver"`
	// sqlite: file path (default <data_dir>/internhub.db); postgres: connection string
	DSN string `yaml:"dsn" json:"dsn"`
}

type TriggerConfig struct {
	// Secret overrides the keyring entry when set (INTERNHUB_TRIGGER_SECRET).
	Secret         string        `yaml:"secret,omitempty" json:"-"`
	KeyringAccount string        `yaml:"keyring_account" json:"keyring_account"`
	Interval       time.Duration `yaml:"interval" json:"interval"`
}

type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent    string        `yaml:"user_agent" json:"user_agent"`
	PerHostRPS   float64       `yaml:"per_host_rps" json:"per_host_rps"`
	PerHostBurst int           `yaml:"per_host_burst" json:"per_host_burst"`
}

type ProbeConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled"`
	BatchSize     int           `yaml:"batch_size" json:"batch_size"`
	Stagger       time.Duration `yaml:"stagger" json:"stagger"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" json:"max_body_bytes"`
	PerHostRPS    float64       `yaml:"per_host_rps" json:"per_host_rps"`
	PerHostBurst  int           `yaml:"per_host_burst" json:"per_host_burst"`
	ClosedPhrases []string      `yaml:"closed_phrases,omitempty" json:"closed_phrases,omitempty"`
	CacheTTL      time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
}

type CacheConfig struct {
	RedisAddr     string `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword string `yaml:"redis_password,omitempty" json:"-"`
	RedisDB       int    `yaml:"redis_db" json:"redis_db"`
}

type EventsConfig struct {
	NATSURL string `yaml:"nats_url" json:"nats_url"`
	Subject string `yaml:"subject" json:"subject"`
}

type CronConfig struct {
	TargetURL string        `yaml:"target_url" json:"target_url"`
	Interval  time.Duration `yaml:"interval" json:"interval"`
}

type Config struct {
	App     AppConfig     `yaml:"app" json:"app"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Trigger TriggerConfig `yaml:"trigger" json:"trigger"`
	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	Probe   ProbeConfig   `yaml:"probe" json:"probe"`
	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Events  EventsConfig  `yaml:"events" json:"events"`
	Cron    CronConfig    `yaml:"cron" json:"cron"`
	Sources []Source      `yaml:"sources" json:"sources"`
}

// Default is the built-in configuration. Sources are left empty here and
// filled by DefaultSources after loading so a file list replaces them whole.
func Default() Config {
	return Config{
		App:   AppConfig{Host: "127.0.0.1", Port: DefaultPort, DataDir: "."},
		Log:   LogConfig{Level: "info", Format: "json"},
		Store: StoreConfig{Driver: "sqlite"},
		Trigger: TriggerConfig{
			KeyringAccount: "internhub:trigger",
			Interval:       30 * time.Minute,
		},
		Fetch: FetchConfig{
			Timeout:      30 * time.Second,
			UserAgent:    DefaultUserAgent,
			PerHostRPS:   2,
			PerHostBurst: 2,
		},
		Probe: ProbeConfig{
			Enabled:      true,
			BatchSize:    20,
			Stagger:      100 * time.Millisecond,
			Timeout:      8 * time.Second,
			UserAgent:    DefaultUserAgent,
			MaxBodyBytes: 2 << 20,
			PerHostRPS:   5,
			PerHostBurst: 5,
			CacheTTL:     6 * time.Hour,
		},
		Events: EventsConfig{Subject: "internships.scrape"},
		Cron: CronConfig{
			TargetURL: "http://127.0.0.1:38471/api/scrape",
			Interval:  30 * time.Minute,
		},
	}
}

func DefaultSources() []Source {
	return []Source{
		{
			Name:     "github-primary",
			URL:      "https://raw.githubusercontent.com/vanshb03/Summer2026-Internships/main/README.md",
			Priority: 1,
			Format:   FormatMarkdown,
		},
		{
			Name:             "simplify-jobs",
			URL:              "https://raw.githubusercontent.com/SimplifyJobs/Summer2026-Internships/refs/heads/dev/README.md",
			Priority:         2,
			Format:           FormatHTML,
			AggregatorDomain: "simplify.jobs",
		},
	}
}
