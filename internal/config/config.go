package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for rgit.
type Config struct {
	UserID     string           `toml:"user_id"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Vaults     []VaultConfig    `toml:"vaults"`
	Encryption EncryptionConfig `toml:"encryption"`
	Database   DatabaseConfig   `toml:"database"`
	Log        LogConfig        `toml:"log"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Diff       DiffConfig       `toml:"diff"`
}

// EncryptionConfig holds paths to the age key pair used to encrypt snapshots.
type EncryptionConfig struct {
	Type           string `toml:"type"` // "none" (default), "age" or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// VaultConfig represents configuration for a snapshot vault backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type VaultConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"
	Name string `toml:"name"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket    string `toml:"s3_bucket,omitempty"`
	S3Prefix    string `toml:"s3_prefix,omitempty"`
	S3Region    string `toml:"s3_region,omitempty"`
	S3Endpoint  string `toml:"s3_endpoint,omitempty"` // S3-compatible stores such as MinIO
	S3AccessKey string `toml:"s3_access_key,omitempty"`
	S3SecretKey string `toml:"s3_secret_key,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSVaultRoot string `toml:"fs_vault_root,omitempty"`
}

// DatabaseConfig represents configuration for the persistence store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "postgres"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
	DSN     string `toml:"dsn,omitempty"`      // only used for type=postgres
}

// LogConfig selects the log format and verbosity.
type LogConfig struct {
	Format string `toml:"format"` // "text" (default) or "json"
	Level  string `toml:"level"`  // debug, info, warn or error
	Stderr bool   `toml:"stderr"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	Textfile string `toml:"textfile,omitempty"`
}

// DiffConfig sets diff defaults.
type DiffConfig struct {
	Match string `toml:"match"` // "position" (default) or "id"
}

// NewConfig creates a new Config with the provided values and defaults for
// a single-user local install.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		UserID:  userID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Vaults: []VaultConfig{
			{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(baseDir, "vault")},
		},
		Encryption: EncryptionConfig{
			Type:           "none",
			PublicKeyPath:  filepath.Join(baseDir, "keys", "rgit.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "rgit.key"),
		},
		Database: DatabaseConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Log:      LogConfig{Format: "text", Level: "info"},
		Diff:     DiffConfig{Match: "position"},
	}
}

// Validate checks the tagged-union type fields.
func (c *Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if !slices.Contains([]string{"sqlite", "memory", "postgres"}, c.Database.Type) {
		return fmt.Errorf("unknown database type: %q", c.Database.Type)
	}
	if len(c.Vaults) == 0 {
		return fmt.Errorf("at least one vault must be configured")
	}
	for _, v := range c.Vaults {
		if !slices.Contains([]string{"memory", "filesystem", "s3"}, v.Type) {
			return fmt.Errorf("vault %q: unknown type %q", v.Name, v.Type)
		}
	}
	if !slices.Contains([]string{"", "none", "age", "test"}, c.Encryption.Type) {
		return fmt.Errorf("unknown encryption type: %q", c.Encryption.Type)
	}
	if !slices.Contains([]string{"", "text", "json"}, c.Log.Format) {
		return fmt.Errorf("unknown log format: %q", c.Log.Format)
	}
	if !slices.Contains([]string{"", "position", "id"}, c.Diff.Match) {
		return fmt.Errorf("unknown diff match: %q", c.Diff.Match)
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold S3 credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes a new config file at path. It refuses to overwrite an existing one.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
