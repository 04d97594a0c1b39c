package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/promptbox/internal/promptservice"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	Prompts PromptsConfig     `yaml:"prompts"`
	Inbox   InboxConfig       `yaml:"inbox"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Prompts.Validate(); err != nil {
		return fmt.Errorf("prompts: %w", err)
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

// StoreConfig holds the key/value store location and its size quota.
// MaxBytes of zero disables the quota.
type StoreConfig struct {
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
	)
}

// PromptsConfig holds limits and defaults for prompts and the UI.
type PromptsConfig struct {
	MaxTextLength int    `yaml:"max_text_length"`
	PageSize      int    `yaml:"page_size"`
	Language      string `yaml:"language"`
}

// Validate validates the prompts configuration.
func (c *PromptsConfig) Validate() error {
	langs := make([]interface{}, len(promptservice.Languages))
	for i, l := range promptservice.Languages {
		langs[i] = l
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxTextLength, validation.Required, validation.Min(1)),
		validation.Field(&c.PageSize, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.Language, validation.Required, validation.In(langs...)),
	)
}

// Service returns the service tunables.
func (c *PromptsConfig) Service() promptservice.Config {
	return promptservice.Config{
		MaxTextLength:   c.MaxTextLength,
		PageSize:        c.PageSize,
		DefaultLanguage: c.Language,
	}
}

// InboxConfig holds the drop directory watched for prompt files.
// An empty Path disables the inbox.
type InboxConfig struct {
	Path string `yaml:"path"`
}

// Enabled reports whether an inbox directory is configured.
func (c *InboxConfig) Enabled() bool {
	return c.Path != ""
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Store: StoreConfig{
			Path:     "./promptbox.db",
			MaxBytes: 5 << 20,
		},
		Prompts: PromptsConfig{
			MaxTextLength: 10000,
			PageSize:      10,
			Language:      "es",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
