package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	appLog "intentcal/internal/log"
)

const (
	defaultListen    = "127.0.0.1:8080"
	defaultTimezone  = "UTC"
	defaultLanguage  = "en"
	defaultRefresh   = "*/15 * * * *"
	defaultCacheDir  = "./var/ics-cache"
	defaultRateLimit = 10
	defaultBurst     = 20
)

// CalendarConfig describes a single ICS subscription that ReadCalendar can
// answer questions about.
type CalendarConfig struct {
	// ID is an internal identifier used for cache keys and logging.
	ID string `yaml:"id" json:"id"`
	// Name is the spoken name ("work", "family").
	Name string `yaml:"name" json:"name"`
	// Aliases are alternative spoken names.
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	// URL is the ICS endpoint, or "keyring:<key>" to read it from the OS
	// keyring (private feed URLs embed access tokens).
	URL string `yaml:"url" json:"url"`
}

// AgentConfig describes another conversation agent ConversationProcess can
// relay text to.
type AgentConfig struct {
	ID      string   `yaml:"id" json:"id"`
	Name    string   `yaml:"name" json:"name"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	// URL receives POST {"text", "agent_id"}.
	URL string `yaml:"url" json:"url"`
	// Token is sent as a bearer token; "keyring:<key>" is supported.
	Token string `yaml:"token,omitempty" json:"token,omitempty"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the HTTP API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	// Password may be "keyring:<key>".
	Password string `yaml:"password" json:"password"`
}

// RateLimitConfig bounds requests per client address.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second" json:"per_second"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file,omitempty" json:"file,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone all questions are answered in
	// (e.g. "Europe/Berlin").
	Timezone string `yaml:"timezone" json:"timezone"`

	// Language selects the response message catalogue.
	Language string `yaml:"language" json:"language"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used to prefetch calendar feeds into the disk cache.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds per-feed ICS bodies and HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// AgentID is this service's own conversation agent id. ConversationProcess
	// refuses to relay to itself.
	AgentID string `yaml:"agent_id" json:"agent_id"`

	Calendars []CalendarConfig `yaml:"calendars" json:"calendars"`
	Agents    []AgentConfig    `yaml:"agents" json:"agents"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		Language:    defaultLanguage,
		RefreshCron: defaultRefresh,
		CacheDir:    defaultCacheDir,
		AgentID:     "conversation.intentcal",
		Calendars:   []CalendarConfig{},
		Agents:      []AgentConfig{},
		BasicAuth:   nil,
		RateLimit: RateLimitConfig{
			PerSecond: defaultRateLimit,
			Burst:     defaultBurst,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.Language == "" {
		c.Language = defaultLanguage
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefresh
	}
	if _, err := cron.ParseStandard(c.RefreshCron); err != nil {
		appLog.Error("invalid refresh schedule; using default", err, "refresh", c.RefreshCron)
		c.RefreshCron = defaultRefresh
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.RateLimit.PerSecond <= 0 {
		c.RateLimit.PerSecond = defaultRateLimit
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = defaultBurst
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Calendars == nil {
		c.Calendars = []CalendarConfig{}
	}
	if c.Agents == nil {
		c.Agents = []AgentConfig{}
	}
	// Entries without an ID fall back to their name so logs and cache keys
	// stay readable.
	for i := range c.Calendars {
		if c.Calendars[i].ID == "" {
			c.Calendars[i].ID = c.Calendars[i].Name
		}
	}
	for i := range c.Agents {
		if c.Agents[i].ID == "" {
			c.Agents[i].ID = c.Agents[i].Name
		}
	}
}

// Location resolves Timezone, falling back to time.Local when it is not a
// known IANA zone.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Calendar returns the calendar with the given ID.
func (c *Config) Calendar(id string) (CalendarConfig, bool) {
	for _, cal := range c.Calendars {
		if cal.ID == id {
			return cal, true
		}
	}
	return CalendarConfig{}, false
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".intentcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
