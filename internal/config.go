package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/faf/internal/document"
	"github.com/starford/faf/internal/mirror"
	"github.com/starford/faf/internal/score"
	"github.com/starford/faf/internal/slots"
	pkgconfig "github.com/starford/faf/pkg/config"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// HistoryOff disables the score history database.
const HistoryOff = "off"

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Files   FilesConfig       `yaml:"files"`
	Score   ScoreConfig       `yaml:"score"`
	Mirror  MirrorConfig      `yaml:"mirror"`
	History HistoryConfig     `yaml:"history"`
	Auth    AuthConfig        `yaml:"auth"`
}

// DefaultConfigFile is read from the working directory when no config file
// is named.
const DefaultConfigFile = "faf.yaml"

// LoadConfig applies the file at path over the defaults. A path the user
// named (explicit) must exist; the implicit default may be absent.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := NewDefaultConfig()
	if path == "" {
		path = DefaultConfigFile
	}
	load := pkgconfig.LoadOptional[Config]
	if explicit {
		load = pkgconfig.Load[Config]
	}
	if err := load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Files.Validate(); err != nil {
		return err
	}
	if err := c.Score.Validate(); err != nil {
		return err
	}
	if err := c.Mirror.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
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

// FilesConfig names the mirrored file pair, relative to the project root.
type FilesConfig struct {
	Structured string `yaml:"structured"`
	Readable   string `yaml:"readable"`
}

// Validate validates the file names.
func (c *FilesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Structured, validation.Required),
		validation.Field(&c.Readable, validation.Required, validation.By(func(v any) error {
			if v.(string) == c.Structured {
				return validation.NewError("validation_same_file", "must differ from files.structured")
			}
			return nil
		})),
	)
}

// ScoreConfig tunes the score calculator and the score command.
type ScoreConfig struct {
	Minimum        int `yaml:"minimum"`
	MaxSuggestions int `yaml:"max_suggestions"`
}

// Validate validates the score configuration.
func (c *ScoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Minimum, validation.Min(0), validation.Max(100)),
		validation.Field(&c.MaxSuggestions, validation.Required, validation.Min(1), validation.Max(slots.Total)),
	)
}

// Options returns the calculator options the configuration implies.
func (c *ScoreConfig) Options() []score.Option {
	return []score.Option{score.WithMaxSuggestions(c.MaxSuggestions)}
}

// MirrorConfig configures the sync engine.
type MirrorConfig struct {
	ConflictStrategy string `yaml:"conflict_strategy"`
	Lock             bool   `yaml:"lock"`
}

// Validate validates the mirror configuration.
func (c *MirrorConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ConflictStrategy, validation.In(
			string(mirror.StructuredWins), string(mirror.ReadableWins), string(mirror.NewestWins))),
	)
}

// HistoryConfig locates the SQLite history database. An empty path means
// the per-user default; "off" disables history.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether history is on.
func (c *HistoryConfig) Enabled() bool {
	return c.Path != HistoryOff
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

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelWarn,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Files: FilesConfig{
			Structured: document.StructuredName,
			Readable:   document.ReadableName,
		},
		Score: ScoreConfig{
			MaxSuggestions: score.DefaultMaxSuggestions,
		},
		Mirror: MirrorConfig{
			ConflictStrategy: string(mirror.StructuredWins),
			Lock:             true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
