package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"ArticlesHarvester/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "ARTICLE_HARVESTER_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	extractorKeyEnv   = "EXTRACTOR_API_KEY"
	extractorModelEnv = "EXTRACTOR_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	logLevelEnv       = "LOG_LEVEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Pipeline      PipelineConfig     `yaml:"pipeline"`
	Source        SourceConfig       `yaml:"source"`
	Extractor     ExtractorConfig    `yaml:"extractor"`
	Output        OutputConfig       `yaml:"output"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
}

// LoggingConfig selects slog level and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PipelineConfig holds the run knobs.
type PipelineConfig struct {
	CutoffDays            int `yaml:"cutoffDays"`
	MaxPages              int `yaml:"maxPages"`
	DiscoveryConcurrency  int `yaml:"discoveryConcurrency"`
	EnrichmentConcurrency int `yaml:"enrichmentConcurrency"`
}

// RunParams converts the section into domain parameters.
func (p PipelineConfig) RunParams() domain.RunParams {
	return domain.RunParams{
		CutoffDays:            p.CutoffDays,
		MaxPages:              p.MaxPages,
		DiscoveryConcurrency:  p.DiscoveryConcurrency,
		EnrichmentConcurrency: p.EnrichmentConcurrency,
	}
}

// SourceConfig describes the paginated listing to scan.
type SourceConfig struct {
	Name         string          `yaml:"name"`
	Kind         string          `yaml:"kind"`
	BaseURL      string          `yaml:"baseUrl"`
	PagePattern  string          `yaml:"pagePattern"`
	Selectors    SelectorsConfig `yaml:"selectors"`
	DateLayout   string          `yaml:"dateLayout"`
	Timezone     string          `yaml:"timezone"`
	RequestDelay time.Duration   `yaml:"requestDelay"`
	Timeout      time.Duration   `yaml:"timeout"`
	UserAgent    string          `yaml:"userAgent"`
}

// Location resolves the source timezone, falling back to UTC.
func (s SourceConfig) Location() *time.Location {
	return loadLocation(s.Timezone)
}

// SelectorsConfig are CSS selectors for HTML listings.
type SelectorsConfig struct {
	Item string `yaml:"item"`
	Link string `yaml:"link"`
	Date string `yaml:"date"`
}

// ExtractorConfig defines how detail pages become structured data.
type ExtractorConfig struct {
	Backend         string        `yaml:"backend"`
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	APIKey          string        `yaml:"apiKey"`
	SystemPrompt    string        `yaml:"systemPrompt"`
	Schema          string        `yaml:"schema"`
	SchemaFile      string        `yaml:"schemaFile"`
	MaxTokens       int           `yaml:"maxTokens"`
	Temperature     float64       `yaml:"temperature"`
	JSONMode        bool          `yaml:"jsonMode"`
	ContentFormat   string        `yaml:"contentFormat"`
	MaxContentChars int           `yaml:"maxContentChars"`
	Timeout         time.Duration `yaml:"timeout"`
}

// OutputConfig controls the file store.
type OutputConfig struct {
	Dir       string `yaml:"dir"`
	Archive   bool   `yaml:"archive"`
	Snapshots bool   `yaml:"snapshots"`
}

// DatabaseConfig enables the SQL store when Driver is set.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// SchedulerConfig defines when recurring runs fire.
type SchedulerConfig struct {
	CronExpression string `yaml:"cronExpression"`
	Timezone       string `yaml:"timezone"`
	RunOnStart     bool   `yaml:"runOnStart"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	return loadLocation(s.Timezone)
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"botToken"`
	ChatID   int64  `yaml:"chatId"`
}

// Load reads the file named by ARTICLE_HARVESTER_CONFIG (if set) and applies environment overrides.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(configPathEnv))
}

// LoadFrom reads YAML configuration at path over the defaults. An empty path means defaults only.
func LoadFrom(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse config %s: %v", domain.ErrConfiguration, path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if cfg.Extractor.Schema == "" && cfg.Extractor.SchemaFile != "" {
		schema, err := os.ReadFile(cfg.Extractor.SchemaFile)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read schema file: %v", domain.ErrConfiguration, err)
		}
		cfg.Extractor.Schema = string(schema)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(extractorKeyEnv); v != "" {
		c.Extractor.APIKey = v
	}
	if v := os.Getenv(extractorModelEnv); v != "" {
		c.Extractor.Model = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer: %v", domain.ErrConfiguration, telegramChatIDEnv, err)
		}
		c.Notifications.Telegram.ChatID = id
	}
	return nil
}

// Validate reports every invalid setting, each wrapped with domain.ErrConfiguration.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{domain.ErrConfiguration}, args...)...))
	}

	if err := c.Pipeline.RunParams().Validate(); err != nil {
		errs = append(errs, err)
	}

	switch c.Source.Kind {
	case "html", "feed":
	default:
		add("source kind %q is not one of html, feed", c.Source.Kind)
	}
	if u, err := url.Parse(c.Source.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		add("source baseUrl %q must be an absolute URL", c.Source.BaseURL)
	}
	if c.Source.RequestDelay < 0 {
		add("source requestDelay must not be negative")
	}
	if _, err := time.LoadLocation(c.Source.Timezone); err != nil {
		add("source timezone %q: %v", c.Source.Timezone, err)
	}

	switch c.Extractor.Backend {
	case "openai", "http":
		if c.Extractor.Endpoint == "" {
			add("extractor endpoint is required for backend %s", c.Extractor.Backend)
		}
	case "anthropic":
		if c.Extractor.APIKey == "" {
			add("extractor apiKey is required for backend anthropic")
		}
	default:
		add("extractor backend %q is not one of openai, anthropic, http", c.Extractor.Backend)
	}
	switch c.Extractor.ContentFormat {
	case "raw", "text", "markdown":
	default:
		add("extractor contentFormat %q is not one of raw, text, markdown", c.Extractor.ContentFormat)
	}

	switch c.Database.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Database.DSN == "" {
			add("database dsn is required for driver %s", c.Database.Driver)
		}
	default:
		add("database driver %q is not one of sqlite, postgres", c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		add("scheduler timezone %q: %v", c.Scheduler.Timezone, err)
	}

	tg := c.Notifications.Telegram
	if tg.Enabled && (tg.BotToken == "" || tg.ChatID == 0) {
		add("telegram notifications need botToken and chatId")
	}

	return errors.Join(errs...)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Pipeline: PipelineConfig{
			CutoffDays:            5,
			MaxPages:              50,
			DiscoveryConcurrency:  4,
			EnrichmentConcurrency: 5,
		},
		Source: SourceConfig{
			Name:         "blog",
			Kind:         "html",
			Selectors:    SelectorsConfig{Item: "article", Link: "h2 > a", Date: "time"},
			DateLayout:   domain.DateLayout,
			Timezone:     defaultTimezone,
			RequestDelay: time.Second,
			Timeout:      30 * time.Second,
		},
		Extractor: ExtractorConfig{
			Backend:         "openai",
			Endpoint:        "https://api.openai.com/v1/chat/completions",
			Model:           "gpt-4o-mini",
			MaxTokens:       4096,
			Temperature:     0.1,
			JSONMode:        true,
			ContentFormat:   "text",
			MaxContentChars: 50000,
			Timeout:         60 * time.Second,
		},
		Output:    OutputConfig{Dir: "data", Archive: true, Snapshots: true},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone},
	}
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
