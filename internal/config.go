package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Auth      AuthConfig        `yaml:"auth"`
	Chat      ChatConfig        `yaml:"chat"`
	Skills    SkillsConfig      `yaml:"skills"`
	Usage     UsageConfig       `yaml:"usage"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Chat.Validate()
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

// WorkspaceConfig locates the agent workspace and the dashboard-private
// state directory inside it.
type WorkspaceConfig struct {
	Path     string `yaml:"path"`
	StateDir string `yaml:"state_dir"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.StateDir, validation.Required),
	)
}

// StatePath returns the absolute state directory path.
func (c *WorkspaceConfig) StatePath() string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(c.Path, c.StateDir)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for a
//     single-user deployment behind a trusted network.
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

// ChatConfig selects and parameterises the chat backend. When both
// GatewayURL and GatewayToken are set the HTTP gateway is used; otherwise
// messages go through the local CLI.
type ChatConfig struct {
	GatewayURL   string   `yaml:"gateway_url"`
	GatewayToken string   `yaml:"gateway_token"`
	Model        string   `yaml:"model"`
	AgentID      string   `yaml:"agent_id"`
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
}

// GatewayConfigured reports whether the HTTP gateway backend is usable.
func (c *ChatConfig) GatewayConfigured() bool {
	return c.GatewayURL != "" && c.GatewayToken != ""
}

// Validate validates the chat configuration.
func (c *ChatConfig) Validate() error {
	if c.GatewayConfigured() {
		return validation.ValidateStruct(c,
			validation.Field(&c.GatewayURL, validation.Required),
			validation.Field(&c.Model, validation.Required),
		)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Command, validation.Required),
	)
}

// SkillsConfig holds optional search-path overrides and the package names
// probed in package-manager install locations.
type SkillsConfig struct {
	CustomPath string   `yaml:"custom_path"`
	SystemPath string   `yaml:"system_path"`
	Packages   []string `yaml:"packages"`
}

// UsageConfig points at the externally written stats cache.
type UsageConfig struct {
	StatsPath string `yaml:"stats_path"`
	Plan      string `yaml:"plan"`
}

// NewDefaultConfig returns a new Config with sensible default values.
// The workspace defaults to $WORKSPACE_PATH, then $HOME, then /root.
func NewDefaultConfig() *Config {
	workspace := os.Getenv("WORKSPACE_PATH")
	if workspace == "" {
		workspace = os.Getenv("HOME")
	}
	if workspace == "" {
		workspace = "/root"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = workspace
	}

	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Workspace: WorkspaceConfig{
			Path:     workspace,
			StateDir: ".agent-dash",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Chat: ChatConfig{
			GatewayURL:   os.Getenv("AGENT_GATEWAY_URL"),
			GatewayToken: os.Getenv("AGENT_GATEWAY_TOKEN"),
			Model:        "agent:main",
			AgentID:      "main",
			Command:      "agent",
			Args:         []string{"--print"},
		},
		Skills: SkillsConfig{
			CustomPath: os.Getenv("CUSTOM_SKILLS_PATH"),
			SystemPath: os.Getenv("SYSTEM_SKILLS_PATH"),
			Packages:   []string{"agentd", "openagent"},
		},
		Usage: UsageConfig{
			StatsPath: filepath.Join(home, ".agent", "stats-cache.json"),
			Plan:      "Max (5x)",
		},
	}
}
