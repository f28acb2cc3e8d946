package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	TransportSocketIO = "socketio"
	TransportWS       = "ws"

	defaultServerURL = "http://localhost:3005"
	defaultSTUN      = "stun:stun.l.google.com:19302"
)

// ClientConfig holds the terminal client's configuration.
type ClientConfig struct {
	// ServerURL is the base URL of the relay.
	ServerURL string `yaml:"serverUrl"`
	// Token authenticates against the relay.
	Token string `yaml:"token"`
	// Transport is TransportSocketIO or TransportWS.
	Transport string `yaml:"transport"`

	// Home is where the client keeps local state.
	Home string `yaml:"-"`
	// DatabasePath is the local profile database.
	DatabasePath string `yaml:"database"`
	// ProfileID selects the local profile.
	ProfileID string `yaml:"profileId"`

	OpenAIKey    string   `yaml:"openaiKey"`
	AIModel      string   `yaml:"aiModel"`
	AIBaseURL    string   `yaml:"aiBaseUrl"`
	STUNServers  []string `yaml:"stunServers"`
	DisableMedia bool     `yaml:"disableMedia"`
	Debug        bool     `yaml:"debug"`
}

// ClientOverrides optionally overrides file and environment values. A nil
// pointer keeps the loaded value.
type ClientOverrides struct {
	ConfigPath *string
	ServerURL  *string
	Token      *string
	Transport  *string
	Debug      *bool
}

// LoadClient reads the YAML file (LIVEROOM_CONFIG, or config.yaml in the
// client home when present), then the environment, then overrides.
func LoadClient(overrides ClientOverrides) (*ClientConfig, error) {
	home := os.Getenv("LIVEROOM_HOME")
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		home = filepath.Join(userHome, ".liveroom")
	}
	if err := os.MkdirAll(home, 0700); err != nil {
		return nil, fmt.Errorf("failed to create liveroom home: %w", err)
	}

	cfg := &ClientConfig{}
	path := os.Getenv("LIVEROOM_CONFIG")
	explicit := path != ""
	if overrides.ConfigPath != nil {
		path, explicit = *overrides.ConfigPath, true
	}
	if path == "" {
		path = filepath.Join(home, "config.yaml")
	}
	if err := readYAML(path, cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	cfg.Home = home

	setString(&cfg.ServerURL, "LIVEROOM_SERVER_URL")
	setString(&cfg.Token, "LIVEROOM_TOKEN")
	setString(&cfg.Transport, "LIVEROOM_TRANSPORT")
	setString(&cfg.DatabasePath, "LIVEROOM_DB")
	setString(&cfg.ProfileID, "LIVEROOM_PROFILE")
	setString(&cfg.OpenAIKey, "OPENAI_API_KEY")
	setString(&cfg.AIModel, "LIVEROOM_AI_MODEL")
	setString(&cfg.AIBaseURL, "LIVEROOM_AI_BASE_URL")
	if stun := splitList(os.Getenv("LIVEROOM_STUN")); len(stun) > 0 {
		cfg.STUNServers = stun
	}
	cfg.DisableMedia = envBool("LIVEROOM_DISABLE_MEDIA", cfg.DisableMedia)
	cfg.Debug = envBool("DEBUG", cfg.Debug)

	if overrides.ServerURL != nil {
		cfg.ServerURL = *overrides.ServerURL
	}
	if overrides.Token != nil {
		cfg.Token = *overrides.Token
	}
	if overrides.Transport != nil {
		cfg.Transport = *overrides.Transport
	}
	if overrides.Debug != nil {
		cfg.Debug = *overrides.Debug
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportSocketIO
	}
	if cfg.Transport != TransportSocketIO && cfg.Transport != TransportWS {
		return nil, fmt.Errorf("invalid transport %q (expected socketio or ws)", cfg.Transport)
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(home, "profile.db")
	}
	if len(cfg.STUNServers) == 0 {
		cfg.STUNServers = []string{defaultSTUN}
	}
	return cfg, nil
}

// Save writes cfg as YAML to config.yaml in its home.
func (c *ClientConfig) Save() error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(c.Home, 0700); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.Home, "config.yaml"), raw, 0600)
}

func readYAML(path string, out *ClientConfig) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
