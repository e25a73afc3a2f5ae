package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RecognizerConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type UploadConfig struct {
	Dir     string `mapstructure:"dir"`
	MaxSize int64  `mapstructure:"max_size"`
}

type NotifierConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Recognizer RecognizerConfig `mapstructure:"recognizer"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Notifier   NotifierConfig   `mapstructure:"notifier"`
	Log        LogConfig        `mapstructure:"log"`
}

// Load reads configuration from an optional YAML file and PARKEASE_*
// environment variables. The recognizer token is deliberately not
// defaulted: it is a credential and must be provided by the operator.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("recognizer.url", "https://api.platerecognizer.com/v1/plate-reader/")
	v.SetDefault("recognizer.timeout", 15*time.Second)
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_size", int64(5*1024*1024))
	v.SetDefault("notifier.enabled", true)
	v.SetDefault("notifier.interval", 3*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvPrefix("PARKEASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only walks keys that are defaulted, set, or bound. The
	// credential keys carry no default, so they must be bound explicitly
	// to be readable from the environment alone.
	for _, key := range []string{"database.dsn", "recognizer.token"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required (PARKEASE_DATABASE_DSN)")
	}
	if c.Recognizer.Token == "" {
		return errors.New("recognizer.token is required (PARKEASE_RECOGNIZER_TOKEN)")
	}
	if c.Recognizer.URL == "" {
		return errors.New("recognizer.url must not be empty")
	}
	if c.Upload.MaxSize <= 0 {
		return errors.New("upload.max_size must be positive")
	}
	if c.Notifier.Interval <= 0 {
		return errors.New("notifier.interval must be positive")
	}
	return nil
}
