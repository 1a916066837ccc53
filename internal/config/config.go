// Package config loads client configuration from the environment, with
// optional named profiles from a YAML file.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-based configuration for clinic-chat.
type Config struct {
	// Server address, e.g. https://chat.example-clinic.com
	BaseURL string `env:"CLINIC_BASE_URL"`

	// Session token for the messaging API. Falls back to the cached
	// token in the state store when empty.
	Token string `env:"CLINIC_TOKEN"`

	// Conversation to attach to.
	ConversationID string `env:"CLINIC_CONVERSATION"`

	// Named profile from the profiles file; overrides BaseURL and
	// ConversationID when set.
	Profile string `env:"CLINIC_PROFILE"`

	// ProfilesPath locates the profiles file. Defaults to
	// ~/.clinic-chat/profiles.yaml.
	ProfilesPath string `env:"CLINIC_PROFILES_PATH"`

	// PollInterval is the timer cadence of the sync loop.
	PollInterval time.Duration `env:"CLINIC_POLL_INTERVAL" envDefault:"2500ms"`

	// DownloadDir is where opened attachments land. Defaults to
	// ~/.clinic-chat/downloads.
	DownloadDir string `env:"CLINIC_DOWNLOAD_DIR"`

	// OutboxDir, when set, is watched for files to upload.
	OutboxDir string `env:"CLINIC_OUTBOX_DIR"`

	// MaxOpenAttempts bounds the attachment retrieval retry loop.
	MaxOpenAttempts int `env:"CLINIC_OPEN_ATTEMPTS" envDefault:"3"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

// Profile is one named server/conversation preset.
type Profile struct {
	BaseURL        string `yaml:"base_url"`
	ConversationID string `yaml:"conversation"`
}

type profilesFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing the session token to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables. It first
// attempts to load a .env file if present, then parses env vars, then
// applies the selected profile.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Profile != "" {
		if err := cfg.applyProfile(); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if cfg.DownloadDir == "" {
		dir, err := defaultPath("downloads")
		if err != nil {
			return nil, err
		}

		cfg.DownloadDir = dir
	}

	// Resolve directories to absolute paths at startup so downstream
	// path handling does not depend on the working directory.
	for _, dir := range []*string{&cfg.DownloadDir, &cfg.OutboxDir} {
		if *dir == "" {
			continue
		}

		abs, err := filepath.Abs(*dir)
		if err != nil {
			return nil, fmt.Errorf("resolving %s to absolute path: %w", *dir, err)
		}

		*dir = abs
	}

	return cfg, nil
}

// applyProfile overlays the named profile from the profiles file.
func (c *Config) applyProfile() error {
	path := c.ProfilesPath
	if path == "" {
		var err error

		path, err = defaultPath("profiles.yaml")
		if err != nil {
			return err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profiles file: %w", err)
	}

	var pf profilesFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("parsing profiles file: %w", err)
	}

	p, ok := pf.Profiles[c.Profile]
	if !ok {
		return fmt.Errorf("profile %q not found in %s", c.Profile, path)
	}

	if p.BaseURL != "" {
		c.BaseURL = p.BaseURL
	}

	if p.ConversationID != "" {
		c.ConversationID = p.ConversationID
	}

	return nil
}

func (c *Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("CLINIC_BASE_URL is required (or a profile providing it)")
	}

	if c.ConversationID == "" {
		return fmt.Errorf("CLINIC_CONVERSATION is required (or a profile providing it)")
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("CLINIC_POLL_INTERVAL must be positive")
	}

	if c.MaxOpenAttempts <= 0 {
		return fmt.Errorf("CLINIC_OPEN_ATTEMPTS must be positive")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaultPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".clinic-chat", name), nil
}
