package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/example/lawstudy/internal/database"
)

// Config holds all configuration for our application
type Config struct {
	Participants []string           `mapstructure:"participants"`
	Local        LocalConfig        `mapstructure:"local"`
	Remote       RemoteConfig       `mapstructure:"remote"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Study        StudyConfig        `mapstructure:"study"`
	Content      ContentConfig      `mapstructure:"content"`
	Telegram     TelegramConfig     `mapstructure:"telegram"`
	Notification NotificationConfig `mapstructure:"notification"`
	Log          LogConfig          `mapstructure:"log"`
}

// LocalConfig locates the durable local cache. A .db/.sqlite path selects the
// SQLite store, anything else the JSON file store.
type LocalConfig struct {
	Path string `mapstructure:"path"`
}

// RemoteConfig holds the shared store settings. An empty driver keeps the
// engine local-only.
type RemoteConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

// SyncConfig holds the periodic job settings
type SyncConfig struct {
	Interval          time.Duration `mapstructure:"interval"`
	ChallengeInterval time.Duration `mapstructure:"challenge_interval"`
	StreakCheckAt     string        `mapstructure:"streak_check_at"`
}

// StudyConfig holds deck settings
type StudyConfig struct {
	DeckSize int    `mapstructure:"deck_size"`
	Timezone string `mapstructure:"timezone"`
}

// ContentConfig points at a JSON content file. Empty uses the bundled sample.
type ContentConfig struct {
	Path string `mapstructure:"path"`
}

// TelegramConfig holds the bot settings. Chats maps participant to chat id.
type TelegramConfig struct {
	BotToken string           `mapstructure:"bot_token"`
	Chats    map[string]int64 `mapstructure:"-"`
}

// NotificationConfig bounds the hours reminders are sent in
type NotificationConfig struct {
	StartHour int           `mapstructure:"start_hour"`
	EndHour   int           `mapstructure:"end_hour"`
	Interval  time.Duration `mapstructure:"interval"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Options tune where Load looks
type Options struct {
	// .env file loaded into the environment first; missing files are ignored
	EnvFile string
	// Optional YAML/JSON/TOML config file
	ConfigFile string
}

// Load reads configuration from the .env file, an optional config file and
// environment variables, in increasing priority
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading %s: %w", envFile, err)
	}

	v := viper.New()
	setDefaults(v)

	// Enable reading from environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	config.Participants = stringList(v.Get("participants"))
	chats, err := parseChats(v.Get("telegram.chats"))
	if err != nil {
		return nil, err
	}
	config.Telegram.Chats = chats

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("participants", "")
	v.SetDefault("local.path", "data/lawstudy.json")

	v.SetDefault("remote.driver", "")
	v.SetDefault("remote.dsn", "")
	v.SetDefault("remote.path", "")

	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.challenge_interval", time.Minute)
	v.SetDefault("sync.streak_check_at", "00:00")

	v.SetDefault("study.deck_size", 20)
	v.SetDefault("study.timezone", "Local")

	v.SetDefault("content.path", "")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chats", "")

	v.SetDefault("notification.start_hour", 8)
	v.SetDefault("notification.end_hour", 22)
	v.SetDefault("notification.interval", time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// stringList accepts "a, b" from the environment as well as a list from a
// config file
func stringList(raw interface{}) []string {
	var items []string
	if s, ok := raw.(string); ok {
		items = strings.Split(s, ",")
	} else {
		items = cast.ToStringSlice(raw)
	}
	var out []string
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseChats reads "alice:123,bob:456" or a map from a config file
func parseChats(raw interface{}) (map[string]int64, error) {
	chats := make(map[string]int64)
	if m, ok := raw.(map[string]interface{}); ok {
		for user, chat := range m {
			id, err := cast.ToInt64E(chat)
			if err != nil {
				return nil, fmt.Errorf("invalid telegram chat for %s: %w", user, err)
			}
			chats[user] = id
		}
		return chats, nil
	}
	for _, pair := range stringList(raw) {
		user, chat, ok := strings.Cut(pair, ":")
		if !ok {
			return nil, fmt.Errorf("invalid telegram chat %q, want user:chat_id", pair)
		}
		id, err := cast.ToInt64E(strings.TrimSpace(chat))
		if err != nil {
			return nil, fmt.Errorf("invalid telegram chat for %s: %w", user, err)
		}
		chats[strings.TrimSpace(user)] = id
	}
	return chats, nil
}

// Validate rejects settings the application cannot run with. A bad remote is
// not an error; see RemoteEnabled.
func (c *Config) Validate() error {
	if c.Local.Path == "" {
		return fmt.Errorf("local.path is required")
	}
	if c.Sync.Interval <= 0 || c.Sync.ChallengeInterval <= 0 || c.Notification.Interval <= 0 {
		return fmt.Errorf("sync and notification intervals must be positive")
	}
	if c.Study.DeckSize <= 0 {
		return fmt.Errorf("study.deck_size must be positive, got %d", c.Study.DeckSize)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	for _, h := range []int{c.Notification.StartHour, c.Notification.EndHour} {
		if h < 0 || h > 23 {
			return fmt.Errorf("notification hour %d outside 0-23", h)
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// Location resolves the study timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Study.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid study.timezone %q: %w", c.Study.Timezone, err)
	}
	return loc, nil
}

// RemoteEnabled reports whether the remote settings name a supported driver.
// The error explains why the engine stays local-only.
func (c *Config) RemoteEnabled() (bool, error) {
	if _, err := database.DialectFor(c.Remote.Driver); err != nil {
		return false, err
	}
	return true, nil
}

// DatabaseConfig converts the remote settings for database.Open
func (c *Config) DatabaseConfig() database.RemoteConfig {
	return database.RemoteConfig{Driver: c.Remote.Driver, DSN: c.Remote.DSN, Path: c.Remote.Path}
}
