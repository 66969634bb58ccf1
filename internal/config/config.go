package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	// FileName is the configuration file looked up in the config directory.
	FileName = "ringclash"
	// EnvPrefix scopes environment overrides, e.g. RINGCLASH_SERVER_ADDR.
	EnvPrefix = "RINGCLASH"
)

// Settings holds process-level options that do not affect gameplay.
type Settings struct {
	Addr            string   `json:"addr" mapstructure:"addr"`
	TickRate        int      `json:"tickRate" mapstructure:"tickRate"`
	CatchupMaxTicks int      `json:"catchupMaxTicks" mapstructure:"catchupMaxTicks"`
	CommandCapacity int      `json:"commandCapacity" mapstructure:"commandCapacity"`
	PerActorLimit   int      `json:"perActorLimit" mapstructure:"perActorLimit"`
	WarningStep     int      `json:"warningStep" mapstructure:"warningStep"`
	Codec           string   `json:"codec" mapstructure:"codec"`
	LogLevel        string   `json:"logLevel" mapstructure:"logLevel"`
	LogFormat       string   `json:"logFormat" mapstructure:"logFormat"`
	EventSinks      []string `json:"eventSinks" mapstructure:"eventSinks"`
	EventLogPath    string   `json:"eventLogPath" mapstructure:"eventLogPath"`
	EventBuffer     int      `json:"eventBuffer" mapstructure:"eventBuffer"`
	SentryDSN       string   `json:"sentryDsn" mapstructure:"sentryDsn"`
	SentryEnv       string   `json:"sentryEnv" mapstructure:"sentryEnv"`
	GraylogAddr     string   `json:"graylogAddr" mapstructure:"graylogAddr"`
	StatsviewAddr   string   `json:"statsviewAddr" mapstructure:"statsviewAddr"`
}

// Config is the full configuration tree.
type Config struct {
	Server Settings `json:"server" mapstructure:"server"`
	Tuning Tuning   `json:"tuning" mapstructure:"tuning"`
}

// DefaultSettings returns the process defaults.
func DefaultSettings() Settings {
	return Settings{
		Addr:            ":8080",
		TickRate:        64,
		CatchupMaxTicks: 4,
		CommandCapacity: 256,
		PerActorLimit:   32,
		WarningStep:     64,
		Codec:           "json",
		LogLevel:        "info",
		LogFormat:       "console",
		EventSinks:      []string{"console"},
		EventLogPath:    "",
		EventBuffer:     512,
		SentryEnv:       "development",
	}
}

// Default returns a configuration populated entirely from defaults.
func Default() Config {
	return Config{Server: DefaultSettings(), Tuning: DefaultTuning()}
}

// Load reads ringclash.json from configDir (when present), applies RINGCLASH_*
// environment overrides on top of the defaults and validates the result.
func Load(configDir string) (Config, error) {
	v := viper.New()
	if err := setDefaults(v); err != nil {
		return Config{}, err
	}

	v.SetConfigName(FileName)
	v.SetConfigType("json")
	if configDir != "" {
		v.AddConfigPath(configDir)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configDir != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks both the process settings and the tuning table.
func (c Config) Validate() error {
	var errs []error
	if c.Server.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("server.tickRate must be positive, got %d", c.Server.TickRate))
	}
	switch c.Server.Codec {
	case "json", "msgpack":
	default:
		errs = append(errs, fmt.Errorf("server.codec must be json or msgpack, got %q", c.Server.Codec))
	}
	if err := c.Tuning.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tuning: %w", err))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) error {
	defaults, err := asMap(Default())
	if err != nil {
		return err
	}
	for section, values := range defaults {
		fields, ok := values.(map[string]any)
		if !ok {
			v.SetDefault(section, values)
			continue
		}
		for key, value := range fields {
			v.SetDefault(section+"."+key, value)
		}
	}
	return nil
}

// asMap flattens the defaults through their JSON tags so viper keys match the
// file layout.
func asMap(cfg Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode defaults: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode defaults: %w", err)
	}
	return out, nil
}
