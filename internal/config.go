package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Vault      VaultConfig       `yaml:"vault"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Validation ValidationConfig  `yaml:"validation"`
	Watcher    WatcherConfig     `yaml:"watcher"`
	Archive    ArchiveConfig     `yaml:"archive"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Validation.Validate(); err != nil {
		return err
	}
	if err := c.Watcher.Validate(); err != nil {
		return err
	}
	return c.Archive.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the Markdown vault directory.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// ValidationConfig tunes the validation pipeline.
type ValidationConfig struct {
	Workers                  int     `yaml:"workers"`
	ChunkSize                int     `yaml:"chunk_size"`
	DashboardMaxAgeHours     int     `yaml:"dashboard_max_age_hours"`
	AliasCaseSensitive       bool    `yaml:"alias_case_sensitive"`
	AliasPartialMatching     bool    `yaml:"alias_partial_matching"`
	AliasSimilarityThreshold float64 `yaml:"alias_similarity_threshold"`
}

// Validate validates the validation pipeline configuration.
func (c *ValidationConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
		validation.Field(&c.ChunkSize, validation.Min(0), validation.Max(1024)),
		validation.Field(&c.DashboardMaxAgeHours, validation.Min(0)),
		validation.Field(&c.AliasSimilarityThreshold, validation.Min(0.0), validation.Max(1.0)),
	)
}

// DashboardMaxAge returns the dashboard staleness window as a duration.
func (c *ValidationConfig) DashboardMaxAge() time.Duration {
	return time.Duration(c.DashboardMaxAgeHours) * time.Hour
}

// WatcherConfig tunes event buffering for the change reactor.
type WatcherConfig struct {
	DebounceMS    int `yaml:"debounce_ms"`
	AffectedDepth int `yaml:"affected_depth"`
}

// Validate validates the watcher configuration.
func (c *WatcherConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DebounceMS, validation.Min(0), validation.Max(60000)),
		validation.Field(&c.AffectedDepth, validation.Min(0), validation.Max(16)),
	)
}

// Debounce returns the event buffering window as a duration.
func (c *WatcherConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// ArchiveConfig controls archive retention.
type ArchiveConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

// Validate validates the archive configuration.
func (c *ArchiveConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.RetentionDays, validation.Min(0)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./gebo.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Validation: ValidationConfig{
			Workers:                  8,
			ChunkSize:                16,
			DashboardMaxAgeHours:     24,
			AliasSimilarityThreshold: 0.85,
		},
		Watcher: WatcherConfig{
			DebounceMS:    500,
			AffectedDepth: 2,
		},
		Archive: ArchiveConfig{
			RetentionDays: 30,
		},
	}
}
