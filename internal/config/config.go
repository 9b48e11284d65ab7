// Package config resolves the opt storage layout and reads optional settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultCatalogURL is the remote catalog consulted when nothing overrides it.
	DefaultCatalogURL = "https://optdata.vercel.app/packages.json"

	RegistryFileName = "installed_packages.json"
	PackagesDirName  = "packages"
	HistoryFileName  = "history.db"
	ConfigFileName   = "config.yaml"

	// StagingExt is appended to a package name to form its staging archive path.
	StagingExt = ".zip"

	defaultTimeout         = 30 * time.Second
	defaultDownloadTimeout = 5 * time.Minute
)

// Dir returns the opt storage root. $OPT_HOME wins; otherwise ~/.opt.
func Dir() (string, error) {
	if root := os.Getenv("OPT_HOME"); root != "" {
		return root, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".opt"), nil
}

// Layout carries every on-disk location opt touches. It is passed explicitly
// to the components that need it so tests can point it at a temp directory.
type Layout struct {
	Root         string
	RegistryPath string
	PackagesDir  string
	HistoryPath  string
	ConfigPath   string
}

// NewLayout builds the layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{
		Root:         root,
		RegistryPath: filepath.Join(root, RegistryFileName),
		PackagesDir:  filepath.Join(root, PackagesDirName),
		HistoryPath:  filepath.Join(root, HistoryFileName),
		ConfigPath:   filepath.Join(root, ConfigFileName),
	}
}

// PackageDir returns the extraction directory for name.
func (l Layout) PackageDir(name string) string {
	return filepath.Join(l.PackagesDir, name)
}

// StagingPath returns the transient archive path for name.
func (l Layout) StagingPath(name string) string {
	return filepath.Join(l.PackagesDir, name+StagingExt)
}

// Ensure creates the root and packages directories if they do not exist.
func (l Layout) Ensure() error {
	if err := os.MkdirAll(l.PackagesDir, 0755); err != nil {
		return fmt.Errorf("failed to create packages directory: %w", err)
	}
	return nil
}

// Config holds user-tunable settings read from config.yaml.
type Config struct {
	CatalogURL      string        `yaml:"catalog_url"`
	Timeout         time.Duration `yaml:"timeout"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	Jobs            int           `yaml:"jobs"`
	LogLevel        string        `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		CatalogURL:      DefaultCatalogURL,
		Timeout:         defaultTimeout,
		DownloadTimeout: defaultDownloadTimeout,
		Jobs:            1,
		LogLevel:        "warn",
	}
}

// Load reads the config file at path on top of the defaults, then applies
// $OPT_CATALOG_URL. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if url := strings.TrimSpace(os.Getenv("OPT_CATALOG_URL")); url != "" {
		cfg.CatalogURL = url
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.CatalogURL) == "" {
		c.CatalogURL = DefaultCatalogURL
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative (got %s)", c.Timeout)
	}
	if c.DownloadTimeout < 0 {
		return fmt.Errorf("download_timeout must not be negative (got %s)", c.DownloadTimeout)
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.DownloadTimeout == 0 {
		c.DownloadTimeout = defaultDownloadTimeout
	}
	if c.Jobs < 1 {
		c.Jobs = 1
	}
	return nil
}
