package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment variables, e.g. CHARTFLOW_LOG_LEVEL or
// CHARTFLOW_PUBLISH_API_KEY.
const envPrefix = "CHARTFLOW"

// Load reads configuration with the usual precedence: defaults, then the
// config file (explicit path or a chartflow.yaml found in the search paths),
// then environment variables. A .env file in the working directory is loaded
// into the environment first, so local development keys stay out of shells
// and config files.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	if v == nil {
		v = viper.New()
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("No .env file loaded", "error", err)
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("chartflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.config/chartflow")
		}
		v.AddConfigPath("/etc/chartflow")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		slog.Debug("Loaded config file", "path", v.ConfigFileUsed())
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

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("confidence_threshold", d.ConfidenceThreshold)
	v.SetDefault("dialect_override", d.DialectOverride)
	v.SetDefault("profile_file", d.ProfileFile)
	v.SetDefault("date_locale_hint", d.DateLocaleHint)
	v.SetDefault("required_fields", d.RequiredFields)
	v.SetDefault("display_index", d.DisplayIndex)
	v.SetDefault("batch_workers", d.BatchWorkers)

	v.SetDefault("vision.endpoint", d.Vision.Endpoint)
	v.SetDefault("vision.api_key", "")
	v.SetDefault("vision.model", d.Vision.Model)
	v.SetDefault("vision.max_tokens", d.Vision.MaxTokens)
	v.SetDefault("vision.timeout", d.Vision.Timeout)
	v.SetDefault("vision.logical_screen_width", 0)
	v.SetDefault("vision.logical_screen_height", 0)

	v.SetDefault("publish.base_url", "")
	v.SetDefault("publish.api_key", "")
	v.SetDefault("publish.auth_email", "")
	v.SetDefault("publish.auth_internal_id", d.Publish.AuthInternalID)
	v.SetDefault("publish.timeout", d.Publish.Timeout)
	v.SetDefault("publish.allow_demo_fallback", false)
	v.SetDefault("publish.retries", d.Publish.Retries)
	v.SetDefault("publish.backoff_base", d.Publish.BackoffBase)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
}

// SetupLogging installs the process-wide slog handler at the configured
// level.
func SetupLogging(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
