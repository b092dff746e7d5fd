package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"botfoundation/core/log"
)

// DefaultConfigFile is read when no config file is named and it exists in the
// working directory; the setup wizard writes here by default
const DefaultConfigFile = "config.yaml"

// DefaultActivities are the presence texts rotated when none are configured
var DefaultActivities = []string{
	"In a bot lobby",
	"Blowing all my money on crack",
	"My Taxes",
}

type AppConfig struct {
	// Discord
	BotToken             string   `yaml:"token"                  env:"DISCORD_BOT_TOKEN"`
	Prefix               string   `yaml:"prefix"                 env:"COMMAND_PREFIX"`
	OwnerIDs             []string `yaml:"owners"                 env:"OWNER_IDS"              envSeparator:","`
	SyncCommandsGlobally bool     `yaml:"sync_commands_globally" env:"SYNC_COMMANDS_GLOBALLY"`

	// Persistence
	DatabaseURL    string `yaml:"database_url"    env:"DB_URL"`
	DatabaseSchema string `yaml:"database_schema" env:"DB_SCHEMA"`

	// Background jobs
	PresenceInterval      time.Duration `yaml:"presence_interval"       env:"PRESENCE_INTERVAL"`
	PresenceActivities    []string      `yaml:"presence_activities"     env:"PRESENCE_ACTIVITIES"     envSeparator:","`
	CooldownSweepInterval time.Duration `yaml:"cooldown_sweep_interval" env:"COOLDOWN_SWEEP_INTERVAL"`

	// Dispatch
	DispatchWorkers     int  `yaml:"dispatch_workers"      env:"DISPATCH_WORKERS"`
	CrashOnUnclassified bool `yaml:"crash_on_unclassified" env:"CRASH_ON_UNCLASSIFIED"`

	// Logging
	LogFile  string `yaml:"log_file"  env:"LOG_FILE"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// Ops
	Port                 string `yaml:"http_port"               env:"HTTP_PORT"`
	CORSAllowedOrigins   string `yaml:"cors_allowed_origins"    env:"CORS_ALLOWED_ORIGINS"`
	SlackAlertWebhookURL string `yaml:"slack_alert_webhook_url" env:"SLACK_ALERT_WEBHOOK_URL"`
	Environment          string `yaml:"environment"             env:"ENVIRONMENT"`
}

// LoadOptions selects the optional files read before the environment
type LoadOptions struct {
	// EnvFile is loaded into the process environment; missing files are tolerated
	EnvFile string
	// ConfigFile is a YAML file whose values are overridden by the environment
	ConfigFile string
}

// Defaults returns the configuration used for anything not set explicitly
func Defaults() *AppConfig {
	activities := make([]string, len(DefaultActivities))
	copy(activities, DefaultActivities)

	return &AppConfig{
		Prefix:                "!",
		DatabaseURL:           "sqlite://data.db",
		PresenceInterval:      time.Minute,
		PresenceActivities:    activities,
		CooldownSweepInterval: 5 * time.Minute,
		DispatchWorkers:       1,
		LogFile:               "discord.log",
		LogLevel:              "info",
		Port:                  "8080",
		CORSAllowedOrigins:    "*",
		Environment:           "dev",
	}
}

func LoadConfig(opts LoadOptions) (*AppConfig, error) {
	envFiles := []string{}
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}
	if err := godotenv.Load(envFiles...); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	config := Defaults()

	if configFile := resolveConfigFile(opts); configFile != "" {
		if err := loadFile(configFile, config); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	if config.SlackAlertWebhookURL != "" {
		log.Info("✅ Slack alerting configured")
	} else {
		log.Info("⚠️ Slack alerting not configured - unclassified errors will only be logged")
	}

	return config, nil
}

// NeedsSetup reports whether there is nothing to start from: no config file
// to read and no token in the environment or the env file
func NeedsSetup(opts LoadOptions) bool {
	envFiles := []string{}
	if opts.EnvFile != "" {
		envFiles = append(envFiles, opts.EnvFile)
	}
	_ = godotenv.Load(envFiles...)

	return resolveConfigFile(opts) == "" && os.Getenv("DISCORD_BOT_TOKEN") == ""
}

func resolveConfigFile(opts LoadOptions) string {
	if opts.ConfigFile != "" {
		return opts.ConfigFile
	}
	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		return configFile
	}
	if info, err := os.Stat(DefaultConfigFile); err == nil && info.Mode().IsRegular() {
		return DefaultConfigFile
	}
	return ""
}

func loadFile(path string, config *AppConfig) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(config); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the invariants every other component relies on
func (c *AppConfig) Validate() error {
	var errs []error

	if c.BotToken == "" {
		errs = append(errs, fmt.Errorf("required environment variable DISCORD_BOT_TOKEN is not set"))
	}
	if utf8.RuneCountInString(c.Prefix) != 1 {
		errs = append(errs, fmt.Errorf("command prefix must be exactly 1 character, got %q", c.Prefix))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("database URL cannot be empty"))
	}
	if c.PresenceInterval <= 0 {
		errs = append(errs, fmt.Errorf("presence interval must be positive, got %s", c.PresenceInterval))
	}
	if len(c.PresenceActivities) == 0 {
		errs = append(errs, fmt.Errorf("at least one presence activity is required"))
	}
	if c.CooldownSweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("cooldown sweep interval must be positive, got %s", c.CooldownSweepInterval))
	}
	if c.DispatchWorkers < 1 {
		errs = append(errs, fmt.Errorf("dispatch workers must be at least 1, got %d", c.DispatchWorkers))
	}
	if c.Port != "" {
		if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("invalid HTTP port %q", c.Port))
		}
	}
	for _, ownerID := range c.OwnerIDs {
		if ownerID == "" {
			errs = append(errs, fmt.Errorf("owner ids cannot contain empty entries"))
			break
		}
	}

	return errors.Join(errs...)
}

// IsOwner reports whether userID is one of the configured owners
func (c *AppConfig) IsOwner(userID string) bool {
	for _, ownerID := range c.OwnerIDs {
		if ownerID == userID {
			return true
		}
	}
	return false
}
