package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultAPIBaseURL is used when no base URL is configured anywhere.
const DefaultAPIBaseURL = "http://localhost:8000"

// Settings is the resolved application configuration.
type Settings struct {
	APIBaseURL  string
	UI          string
	FiltersFile string
	MetricsAddr string
	Logging     LoggingSettings
	Gmail       GmailSettings
}

type LoggingSettings struct {
	Level  string
	Format string
	File   string
}

type GmailSettings struct {
	Enabled          bool
	CredentialsFile  string
	TokenFile        string
	InitialFetch     int64
	PeriodicFetch    int64
	InitialPollDelay time.Duration
	PollInterval     time.Duration
}

// NewViper returns a viper instance with defaults and environment binding in
// place but no config file read.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("VEIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// VEIL_API_URL is the short form most deployments set.
	_ = v.BindEnv("api.base_url", "VEIL_API_URL", "VEIL_API_BASE_URL")
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultAPIBaseURL)

	v.SetDefault("ui.mode", "tea")
	v.SetDefault("filters.file", "config/filters.json")
	v.SetDefault("metrics.addr", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "veil.log")

	v.SetDefault("gmail.enabled", false)
	v.SetDefault("gmail.credentials_file", "credentials.json")
	v.SetDefault("gmail.token_file", "token.json")
	v.SetDefault("gmail.initial_fetch", 20)
	v.SetDefault("gmail.periodic_fetch", 10)
	v.SetDefault("gmail.initial_poll_delay", "1s")
	v.SetDefault("gmail.poll_interval", "30s")
}

// ReadConfigFile reads configFile into v, or searches the standard locations
// for veil.yaml when configFile is empty. A missing file in the search path
// is not an error.
func ReadConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName("veil")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/veil")
	v.AddConfigPath("/etc/veil")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Load reads configuration from file and environment.
func Load(configFile string) (*Settings, error) {
	v := NewViper()
	if err := ReadConfigFile(v, configFile); err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper converts a populated viper instance into Settings.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		APIBaseURL:  strings.TrimRight(strings.TrimSpace(v.GetString("api.base_url")), "/"),
		UI:          v.GetString("ui.mode"),
		FiltersFile: v.GetString("filters.file"),
		MetricsAddr: v.GetString("metrics.addr"),
		Logging: LoggingSettings{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
			File:   v.GetString("logging.file"),
		},
		Gmail: GmailSettings{
			Enabled:          v.GetBool("gmail.enabled"),
			CredentialsFile:  v.GetString("gmail.credentials_file"),
			TokenFile:        v.GetString("gmail.token_file"),
			InitialFetch:     v.GetInt64("gmail.initial_fetch"),
			PeriodicFetch:    v.GetInt64("gmail.periodic_fetch"),
			InitialPollDelay: v.GetDuration("gmail.initial_poll_delay"),
			PollInterval:     v.GetDuration("gmail.poll_interval"),
		},
	}
	if s.APIBaseURL == "" {
		s.APIBaseURL = DefaultAPIBaseURL
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks values that would otherwise fail far from their source.
func (s *Settings) Validate() error {
	if !strings.HasPrefix(s.APIBaseURL, "http://") && !strings.HasPrefix(s.APIBaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", s.APIBaseURL)
	}
	switch s.UI {
	case "tea", "form":
	default:
		return fmt.Errorf("ui.mode must be tea or form, got %q", s.UI)
	}
	if s.Gmail.PollInterval <= 0 {
		return fmt.Errorf("gmail.poll_interval must be positive")
	}
	if s.Gmail.InitialFetch <= 0 || s.Gmail.PeriodicFetch <= 0 {
		return fmt.Errorf("gmail fetch counts must be positive")
	}
	return nil
}
