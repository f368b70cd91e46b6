// Package config holds the application configuration: one typed struct,
// loadable from a YAML file, environment variables and flags, with
// per-subsystem conversion helpers so packages never depend on this one.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/chartflow/chartflow/internal/pipeline"
	"github.com/chartflow/chartflow/internal/publish"
	"github.com/chartflow/chartflow/internal/recognition"
	"github.com/chartflow/chartflow/internal/vision"
)

// Config is the complete application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// Recognition settings.
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`

	// Dialect settings.
	DialectOverride string `mapstructure:"dialect_override"`
	ProfileFile     string `mapstructure:"profile_file"`

	// Extraction settings.
	DateLocaleHint string   `mapstructure:"date_locale_hint"`
	RequiredFields []string `mapstructure:"required_fields"`

	// Capture settings.
	DisplayIndex int `mapstructure:"display_index"`

	// Batch settings.
	BatchWorkers int `mapstructure:"batch_workers"`

	Vision  VisionConfig  `mapstructure:"vision"`
	Publish PublishConfig `mapstructure:"publish"`
	Server  ServerConfig  `mapstructure:"server"`
}

// VisionConfig configures the vision model endpoint.
type VisionConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`

	// LogicalScreenWidth and LogicalScreenHeight describe the pointer
	// coordinate space for the locator; zero means take the capture bounds.
	LogicalScreenWidth  int `mapstructure:"logical_screen_width"`
	LogicalScreenHeight int `mapstructure:"logical_screen_height"`
}

// PublishConfig configures the destination clinical system.
type PublishConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	AuthEmail         string        `mapstructure:"auth_email"`
	AuthInternalID    string        `mapstructure:"auth_internal_id"`
	Timeout           time.Duration `mapstructure:"timeout"`
	AllowDemoFallback bool          `mapstructure:"allow_demo_fallback"`
	Retries           int           `mapstructure:"retries"`
	BackoffBase       time.Duration `mapstructure:"backoff_base"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Default returns the configuration defaults.
func Default() Config {
	visionDefaults := vision.DefaultConfig()
	publishDefaults := publish.DefaultConfig()
	return Config{
		LogLevel:            "info",
		ConfidenceThreshold: recognition.DefaultConfidenceThreshold,
		BatchWorkers:        4,
		Vision: VisionConfig{
			Endpoint:  visionDefaults.Endpoint,
			Model:     visionDefaults.Model,
			MaxTokens: visionDefaults.MaxTokens,
			Timeout:   visionDefaults.Timeout,
		},
		Publish: PublishConfig{
			AuthInternalID: publishDefaults.AuthInternalID,
			Timeout:        publishDefaults.Timeout,
			Retries:        3,
			BackoffBase:    500 * time.Millisecond,
		},
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
	}
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return errors.New("config: confidence threshold must be in [0,1]")
	}
	if c.DisplayIndex < 0 {
		return errors.New("config: display index must be >= 0")
	}
	if c.BatchWorkers <= 0 {
		return errors.New("config: batch workers must be positive")
	}
	switch c.DateLocaleHint {
	case "", "us", "eu":
	default:
		return fmt.Errorf("config: unknown date locale hint %q", c.DateLocaleHint)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	// Publish credentials are validated where a publisher is actually built;
	// offline commands run without them.
	return nil
}

// ToVisionConfig converts to the vision client configuration.
func (c Config) ToVisionConfig() vision.Config {
	vc := vision.DefaultConfig()
	if c.Vision.Endpoint != "" {
		vc.Endpoint = c.Vision.Endpoint
	}
	vc.APIKey = c.Vision.APIKey
	if c.Vision.Model != "" {
		vc.Model = c.Vision.Model
	}
	if c.Vision.MaxTokens > 0 {
		vc.MaxTokens = c.Vision.MaxTokens
	}
	if c.Vision.Timeout > 0 {
		vc.Timeout = c.Vision.Timeout
	}
	return vc
}

// ToPublishConfig converts to the publish client configuration.
func (c Config) ToPublishConfig() publish.Config {
	pc := publish.DefaultConfig()
	pc.BaseURL = c.Publish.BaseURL
	pc.APIKey = c.Publish.APIKey
	pc.AuthEmail = c.Publish.AuthEmail
	if c.Publish.AuthInternalID != "" {
		pc.AuthInternalID = c.Publish.AuthInternalID
	}
	if c.Publish.Timeout > 0 {
		pc.Timeout = c.Publish.Timeout
	}
	pc.AllowDemoFallback = c.Publish.AllowDemoFallback
	return pc
}

// ToPipelineConfig converts to the orchestration configuration.
func (c Config) ToPipelineConfig() pipeline.Config {
	pc := pipeline.DefaultConfig()
	if c.ConfidenceThreshold > 0 {
		pc.ConfidenceThreshold = c.ConfidenceThreshold
	}
	pc.DialectOverride = c.DialectOverride
	pc.RequiredFields = c.RequiredFields
	pc.DateLocaleHint = c.DateLocaleHint
	pc.DisplayIndex = c.DisplayIndex
	if c.BatchWorkers > 0 {
		pc.BatchWorkers = c.BatchWorkers
	}
	pc.PublishRetries = c.Publish.Retries
	if c.Publish.BackoffBase > 0 {
		pc.PublishBackoffBase = c.Publish.BackoffBase
	}
	return pc
}
