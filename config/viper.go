package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	APIHost    string   `toml:"api_host" mapstructure:"api_host"`
	APIPort    int      `toml:"api_port" mapstructure:"api_port"`
	APIRPM     int      `toml:"api_rpm" mapstructure:"api_rpm"`
	APIKeyAuth bool     `toml:"api_key_auth" mapstructure:"api_key_auth"`
	APIKeys    []string `toml:"api_keys" mapstructure:"api_keys"`

	Storage     string `toml:"storage" mapstructure:"storage"`
	ProgramsDir string `toml:"programs_dir" mapstructure:"programs_dir"`
	SQLitePath  string `toml:"sqlite_path" mapstructure:"sqlite_path"`

	SSHEnabled        bool   `toml:"ssh_enabled" mapstructure:"ssh_enabled"`
	SSHHost           string `toml:"ssh_host" mapstructure:"ssh_host"`
	SSHPort           int    `toml:"ssh_port" mapstructure:"ssh_port"`
	SSHPrivateKeyPath string `toml:"ssh_private_key_path" mapstructure:"ssh_private_key_path"`

	// Empty admits any public key.
	SSHAuthorizedKeysPath string `toml:"ssh_authorized_keys_path" mapstructure:"ssh_authorized_keys_path"`

	ServerURL     string `toml:"server_url" mapstructure:"server_url"`
	EndpointShape string `toml:"endpoint_shape" mapstructure:"endpoint_shape"`

	// Sent as X-API-Key by edit, pull and push.
	APIKey string `toml:"api_key" mapstructure:"api_key"`

	LogLevel string `toml:"log_level" mapstructure:"log_level"`
}

var C *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_host", "127.0.0.1")
	v.SetDefault("api_port", 3333)
	v.SetDefault("api_rpm", 120)
	v.SetDefault("api_key_auth", false)
	v.SetDefault("api_keys", []string{})
	v.SetDefault("storage", StorageMemory)
	v.SetDefault("programs_dir", "programs")
	v.SetDefault("sqlite_path", "livecode.db")
	v.SetDefault("ssh_enabled", false)
	v.SetDefault("ssh_host", "127.0.0.1")
	v.SetDefault("ssh_port", 2222)
	v.SetDefault("ssh_private_key_path", "id_ed25519")
	v.SetDefault("ssh_authorized_keys_path", "")
	v.SetDefault("server_url", "http://127.0.0.1:3333")
	v.SetDefault("endpoint_shape", EndpointShapeProgram)
	v.SetDefault("api_key", "")
	v.SetDefault("log_level", "info")
}

// Load reads the TOML file at path, applies LIVECODE_* environment overrides
// and validates the result. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("livecode")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	switch c.EndpointShape {
	case EndpointShapeProgram, EndpointShapeUpdate:
	default:
		return fmt.Errorf("invalid endpoint_shape %q, must be %q or %q", c.EndpointShape, EndpointShapeProgram, EndpointShapeUpdate)
	}
	switch c.Storage {
	case StorageMemory, StorageDir, StorageSQLite:
	default:
		return fmt.Errorf("invalid storage %q", c.Storage)
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("invalid api_port %d", c.APIPort)
	}
	// SFTP writes bypass the HTTP key check, so they need their own allow list.
	if c.SSHEnabled && c.APIKeyAuth && c.SSHAuthorizedKeysPath == "" {
		return errors.New("ssh_enabled with api_key_auth requires ssh_authorized_keys_path")
	}
	return nil
}

// SlogLevel maps log_level to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func InitConfig(path string) {
	if C != nil {
		return
	}
	c, err := Load(path)
	if err != nil {
		slog.Error("failed to load config", "path", path, "err", err)
		os.Exit(1)
	}
	C = c
	slog.Debug("config loaded", "api_port", C.APIPort, "storage", C.Storage, "endpoint_shape", C.EndpointShape)
}
