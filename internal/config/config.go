package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Classify  ClassifyConfig  `yaml:"classify" mapstructure:"classify"`
	Lookup    LookupConfig    `yaml:"lookup" mapstructure:"lookup"`
	Bundle    BundleConfig    `yaml:"bundle" mapstructure:"bundle"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver"`
	Ingest    IngestConfig    `yaml:"ingest" mapstructure:"ingest"`
	Upload    UploadConfig    `yaml:"upload" mapstructure:"upload"`
	Mail      MailConfig      `yaml:"mail" mapstructure:"mail"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-record database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// ClassifyConfig controls the per-row LLM classification call.
type ClassifyConfig struct {
	MaxTokens      int64 `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs    int   `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts    int   `yaml:"max_attempts" mapstructure:"max_attempts"`
	RetryDelaySecs int   `yaml:"retry_delay_secs" mapstructure:"retry_delay_secs"`
}

// LookupConfig controls the MX provider lookup.
type LookupConfig struct {
	DoHBaseURL  string `yaml:"doh_base_url" mapstructure:"doh_base_url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	DelayMillis int    `yaml:"delay_millis" mapstructure:"delay_millis"`
}

// BundleConfig controls per-company bundling.
type BundleConfig struct {
	Size int `yaml:"size" mapstructure:"size"`
}

// ResolverConfig points at an optional column-pattern override file.
type ResolverConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// IngestConfig controls input decoding.
type IngestConfig struct {
	FallbackCharset string `yaml:"fallback_charset" mapstructure:"fallback_charset"`
}

// UploadConfig selects and configures the artifact sink.
type UploadConfig struct {
	Backend string      `yaml:"backend" mapstructure:"backend"` // "drive" or "ftp"
	Drive   DriveConfig `yaml:"drive" mapstructure:"drive"`
	FTP     FTPConfig   `yaml:"ftp" mapstructure:"ftp"`
}

// DriveConfig holds the Drive upload credentials and destination folder.
type DriveConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	FolderID string `yaml:"folder_id" mapstructure:"folder_id"`
}

// FTPConfig holds the FTP upload target.
type FTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Dir      string `yaml:"dir" mapstructure:"dir"`
	LinkBase string `yaml:"link_base" mapstructure:"link_base"`
}

// MailConfig holds SMTP settings for operator notifications.
type MailConfig struct {
	Host       string   `yaml:"host" mapstructure:"host"`
	Port       int      `yaml:"port" mapstructure:"port"`
	User       string   `yaml:"user" mapstructure:"user"`
	Password   string   `yaml:"password" mapstructure:"password"`
	From       string   `yaml:"from" mapstructure:"from"`
	Recipients []string `yaml:"recipients" mapstructure:"recipients"`
}

// ServerConfig configures the ingress server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLEANER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "lead-cleaner.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("classify.max_tokens", 4)
	v.SetDefault("classify.timeout_secs", 60)
	v.SetDefault("classify.max_attempts", 3)
	v.SetDefault("classify.retry_delay_secs", 5)
	v.SetDefault("lookup.doh_base_url", "https://dns.google/resolve")
	v.SetDefault("lookup.timeout_secs", 5)
	v.SetDefault("lookup.delay_millis", 200)
	v.SetDefault("bundle.size", 50)
	v.SetDefault("ingest.fallback_charset", "windows-1252")
	v.SetDefault("upload.backend", "drive")
	v.SetDefault("mail.port", 587)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
