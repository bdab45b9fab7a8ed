package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	configPathEnv     = "VESSEL_OSINT_CONFIG"
	logLevelEnv       = "LOG_LEVEL"
	databaseDSNEnv    = "DATABASE_DSN"
	databaseDriverEnv = "DATABASE_DRIVER"
	redisURLEnv       = "REDIS_URL"
	natsURLEnv        = "NATS_URL"
	httpAddrEnv       = "HTTP_ADDR"
	chatGPTAPIKeyEnv  = "CHATGPT_API_KEY"
	chatGPTModelEnv   = "CHATGPT_MODEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Redis         RedisConfig        `yaml:"redis"`
	NATS          NATSConfig         `yaml:"nats"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Correlation   CorrelationConfig  `yaml:"correlation"`
	Roster        RosterConfig       `yaml:"roster"`
	Dictionaries  DictionaryConfig   `yaml:"dictionaries"`
	Sites         []SiteConfig       `yaml:"sites"`
	Watch         WatchConfig        `yaml:"watch"`
	Export        ExportConfig       `yaml:"export"`
	HTTP          HTTPConfig         `yaml:"http"`
	Notifications NotificationConfig `yaml:"notifications"`
	ChatGPT       ChatGPTConfig      `yaml:"chatgpt"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DatabaseConfig selects the event store. An empty DSN keeps events in memory
// for the lifetime of the process only.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig backs the seen-article store.
type RedisConfig struct {
	URL       string        `yaml:"url"`
	KeyPrefix string        `yaml:"keyPrefix"`
	TTL       time.Duration `yaml:"ttl"`
}

// NATSConfig backs the event bus.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// CorrelationConfig tunes the correlation core. A nil threshold keeps the default.
type CorrelationConfig struct {
	Threshold *float64      `yaml:"threshold"`
	Weights   WeightsConfig `yaml:"weights"`
}

// WeightsConfig mirrors the scorer weights; all-zero means defaults.
type WeightsConfig struct {
	NameMatch float64 `yaml:"nameMatch"`
	Keyword   float64 `yaml:"keyword"`
	Location  float64 `yaml:"location"`
	Temporal  float64 `yaml:"temporal"`
	Context   float64 `yaml:"context"`
}

// IsZero reports whether no weight was configured.
func (w WeightsConfig) IsZero() bool {
	return w == WeightsConfig{}
}

// RosterConfig points at the tracked vessel file.
type RosterConfig struct {
	Path string `yaml:"path"`
}

// DictionaryConfig points at an optional file of extra dictionaries.
type DictionaryConfig struct {
	Path string `yaml:"path"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name       string            `yaml:"name"`
	Scanner    string            `yaml:"scanner"`
	Categories []CategoryConfig  `yaml:"categories"`
	Options    map[string]string `yaml:"options"`
}

// CategoryConfig holds the concrete endpoints to crawl (listing pages, feeds, globs).
type CategoryConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// WatchConfig configures the drop-directory watcher.
type WatchConfig struct {
	Dir        string        `yaml:"dir"`
	Debounce   time.Duration `yaml:"debounce"`
	Extensions []string      `yaml:"extensions"`
}

// ExportConfig controls the run artifact. Format is json or jsonl.
type ExportConfig struct {
	Path            string `yaml:"path"`
	Format          string `yaml:"format"`
	LightProvenance bool   `yaml:"lightProvenance"`
}

// HTTPConfig configures the query API.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken    string `yaml:"botToken"`
	ChatID      string `yaml:"chatId"`
	MinSeverity string `yaml:"minSeverity"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// Load reads YAML configuration named by VESSEL_OSINT_CONFIG (if present) and applies
// environment overrides. Unreadable files fall back to defaults.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			log.Printf("config: %v (falling back to defaults)", err)
		} else {
			cfg = mergeConfig(cfg, fileCfg)
		}
	}

	return finish(cfg)
}

// LoadFile is Load with an explicit path; unlike Load it reports file errors.
func LoadFile(path string) (Config, error) {
	fileCfg, err := readFile(path)
	if err != nil {
		return Config{}, err
	}
	return finish(mergeConfig(defaultConfig(), fileCfg)), nil
}

func readFile(path string) (Config, error) {
	var fileCfg Config
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileCfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fileCfg, fmt.Errorf("cannot parse %s: %w", path, err)
	}
	return fileCfg, nil
}

func finish(cfg Config) Config {
	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if len(cfg.Sites) == 0 {
		cfg.Sites = defaultConfig().Sites
	}
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(databaseDriverEnv); v != "" {
		c.Database.Driver = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Redis.URL = v
	}

	if v := os.Getenv(natsURLEnv); v != "" {
		c.NATS.URL = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Database.Driver != "" {
		base.Database.Driver = override.Database.Driver
	}
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}

	if override.Redis.URL != "" {
		base.Redis.URL = override.Redis.URL
	}
	if override.Redis.KeyPrefix != "" {
		base.Redis.KeyPrefix = override.Redis.KeyPrefix
	}
	if override.Redis.TTL != 0 {
		base.Redis.TTL = override.Redis.TTL
	}

	if override.NATS.URL != "" {
		base.NATS.URL = override.NATS.URL
	}
	if override.NATS.SubjectPrefix != "" {
		base.NATS.SubjectPrefix = override.NATS.SubjectPrefix
	}

	if override.Scheduler.Interval != 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	if override.Correlation.Threshold != nil {
		threshold := *override.Correlation.Threshold
		base.Correlation.Threshold = &threshold
	}
	if !override.Correlation.Weights.IsZero() {
		base.Correlation.Weights = override.Correlation.Weights
	}

	if override.Roster.Path != "" {
		base.Roster.Path = override.Roster.Path
	}
	if override.Dictionaries.Path != "" {
		base.Dictionaries.Path = override.Dictionaries.Path
	}

	if len(override.Sites) > 0 {
		base.Sites = override.Sites
	}

	if override.Watch.Dir != "" {
		base.Watch.Dir = override.Watch.Dir
	}
	if override.Watch.Debounce != 0 {
		base.Watch.Debounce = override.Watch.Debounce
	}
	if len(override.Watch.Extensions) > 0 {
		base.Watch.Extensions = override.Watch.Extensions
	}

	if override.Export.Path != "" {
		base.Export.Path = override.Export.Path
	}
	if override.Export.Format != "" {
		base.Export.Format = override.Export.Format
	}
	base.Export.LightProvenance = base.Export.LightProvenance || override.Export.LightProvenance

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}
	if override.Notifications.Telegram.MinSeverity != "" {
		base.Notifications.Telegram.MinSeverity = override.Notifications.Telegram.MinSeverity
	}

	if override.ChatGPT.Endpoint != "" {
		base.ChatGPT.Endpoint = override.ChatGPT.Endpoint
	}
	if override.ChatGPT.Model != "" {
		base.ChatGPT.Model = override.ChatGPT.Model
	}
	if override.ChatGPT.APIKey != "" {
		base.ChatGPT.APIKey = override.ChatGPT.APIKey
	}
	if override.ChatGPT.SystemPrompt != "" {
		base.ChatGPT.SystemPrompt = override.ChatGPT.SystemPrompt
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{Driver: "sqlite", DSN: ""},
		Redis:     RedisConfig{KeyPrefix: "vesselosint:seen:", TTL: 30 * 24 * time.Hour},
		NATS:      NATSConfig{SubjectPrefix: "osint.events"},
		Scheduler: SchedulerConfig{Interval: 6 * time.Hour, Timezone: defaultTimezone, location: tz},
		Roster:    RosterConfig{Path: "config/vessels.yaml"},
		Watch: WatchConfig{
			Dir:        "data/inbox",
			Debounce:   500 * time.Millisecond,
			Extensions: []string{".json"},
		},
		Export: ExportConfig{Format: "json"},
		HTTP:   HTTPConfig{Addr: ":8080"},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BotToken: "", ChatID: "", MinSeverity: "high"},
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			APIKey:       "",
			SystemPrompt: "You brief maritime intelligence analysts on vessel timeline events.",
		},
		Sites: []SiteConfig{
			{
				Name:    "manual",
				Scanner: "manual",
				Categories: []CategoryConfig{
					{Name: "curated", URL: "data/articles/**/*.json"},
				},
			},
		},
	}
}
