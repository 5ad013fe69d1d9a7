package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"contactreport/internal/apperr"
)

const (
	FileName          = "config.yaml"
	EnvPrefix         = "CONTACTREPORT_"
	DefaultGraphURL   = "https://graph.microsoft.com/v1.0"
	DefaultAuthority  = "https://login.microsoftonline.com"
	defaultConfigPath = ".config/contactreport"
)

// Config holds contactreport settings. Values come from config.yaml in the
// config directory, then .env files, then CONTACTREPORT_* variables.
type Config struct {
	TenantID        string        `yaml:"tenant_id"`
	ClientID        string        `yaml:"client_id"`
	RedirectPort    int           `yaml:"redirect_port"` // 0 picks a free port
	GraphBaseURL    string        `yaml:"graph_base_url"`
	AuthorityHost   string        `yaml:"authority_host"`
	DownloadDir     string        `yaml:"download_dir"`
	OpenBrowser     bool          `yaml:"open_browser"`
	LogoutInBrowser bool          `yaml:"logout_in_browser"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"` // 0 means no client timeout
	Logging         LoggingConfig `yaml:"logging"`

	// Dir is the config directory the file was read from. Not serialized.
	Dir string `yaml:"-"`
}

// LoggingConfig configures the diagnostic log.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	File  string `yaml:"file"`  // relative paths resolve against Dir
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		GraphBaseURL:  DefaultGraphURL,
		AuthorityHost: DefaultAuthority,
		DownloadDir:   ".",
		OpenBrowser:   true,
		Logging: LoggingConfig{
			Level: "info",
			File:  "contactreport.log",
		},
	}
}

// DefaultDir returns ~/.config/contactreport.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}
	return filepath.Join(home, defaultConfigPath), nil
}

// Load reads dir/config.yaml (missing file is fine), applies .env files found
// in the working directory and dir, then environment overrides.
func Load(dir string) (*Config, error) {
	cfg := Default()
	cfg.Dir = dir

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	// godotenv.Load never overrides variables that are already set, so the
	// real environment wins over both files.
	for _, envFile := range []string{".env", filepath.Join(dir, ".env")} {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	str("TENANT_ID", &c.TenantID)
	str("CLIENT_ID", &c.ClientID)
	str("GRAPH_BASE_URL", &c.GraphBaseURL)
	str("AUTHORITY_HOST", &c.AuthorityHost)
	str("DOWNLOAD_DIR", &c.DownloadDir)
	str("LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookup(EnvPrefix + "REDIRECT_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sREDIRECT_PORT: %w", EnvPrefix, err)
		}
		c.RedirectPort = port
	}
	if v, ok := lookup(EnvPrefix + "HTTP_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sHTTP_TIMEOUT: %w", EnvPrefix, err)
		}
		c.HTTPTimeout = d
	}
	if v, ok := lookup(EnvPrefix + "OPEN_BROWSER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sOPEN_BROWSER: %w", EnvPrefix, err)
		}
		c.OpenBrowser = b
	}
	return nil
}

// Validate checks the settings needed to sign in.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.TenantID) == "" {
		missing = append(missing, "tenant_id")
	}
	if strings.TrimSpace(c.ClientID) == "" {
		missing = append(missing, "client_id")
	}
	if len(missing) > 0 {
		return apperr.New(apperr.CodeNotConfigured,
			fmt.Sprintf("missing %s in %s (or %s* environment)", strings.Join(missing, ", "), filepath.Join(c.Dir, FileName), EnvPrefix))
	}
	if c.RedirectPort < 0 || c.RedirectPort > 65535 {
		return apperr.New(apperr.CodeNotConfigured, fmt.Sprintf("redirect_port %d out of range", c.RedirectPort))
	}
	return nil
}

// DBPath is the credential cache location.
func (c *Config) DBPath() string {
	return filepath.Join(c.Dir, "contactreport.db")
}

// LogPath resolves the log file against the config directory.
func (c *Config) LogPath() string {
	if c.Logging.File == "" || filepath.IsAbs(c.Logging.File) {
		return c.Logging.File
	}
	return filepath.Join(c.Dir, c.Logging.File)
}
