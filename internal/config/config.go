// Package config provides the tool settings of feaprep.
//
// Settings are layered by viper: built-in defaults, then the config file,
// then FEAPREP_* environment variables, then command line flags bound by the
// command surface.
//
// The config file is $FEAPREP_CONFIG when that names a file. Otherwise viper
// searches for feaprep.<ext> (yaml, json, toml and the other formats viper
// reads) in the working directory, $XDG_CONFIG_HOME, ~/.config and /etc, in
// that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"feaprep/internal/log"
)

const (
	// EnvConfigPath names an explicit config file
	EnvConfigPath = "FEAPREP_CONFIG"
	// ConfigName is the config file name without extension
	ConfigName = "feaprep"
	// CatalogFileName is the run catalog file under the data directory
	CatalogFileName = "runs.db"
)

// Mesher names accepted by the configuration
const (
	MesherGmsh       = "gmsh"
	MesherStructured = "structured"
)

// Config is the root configuration structure
type Config struct {
	Mesher  string        `mapstructure:"mesher" yaml:"mesher"`
	Gmsh    GmshConfig    `mapstructure:"gmsh" yaml:"gmsh"`
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Sweep   SweepConfig   `mapstructure:"sweep" yaml:"sweep"`
}

// GmshConfig controls the external mesh generator
type GmshConfig struct {
	// Path is the gmsh binary; empty searches ./gmsh then PATH
	Path      string        `mapstructure:"path" yaml:"path,omitempty"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	KeepFiles bool          `mapstructure:"keep_files" yaml:"keep_files,omitempty"`
}

// CatalogConfig locates the run catalog
type CatalogConfig struct {
	Path     string `mapstructure:"path" yaml:"path"`
	Disabled bool   `mapstructure:"disabled" yaml:"disabled,omitempty"`
}

// LogConfig sets the log verbosity
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// SweepConfig bounds concurrent conversions; 0 uses one per CPU
type SweepConfig struct {
	Parallelism int `mapstructure:"parallelism" yaml:"parallelism"`
}

// SetDefaults sets the default values for the viper config
func SetDefaults(v *viper.Viper) {
	keys := map[string]interface{}{
		"mesher":            MesherGmsh,
		"gmsh.path":         "",
		"gmsh.timeout":      5 * time.Minute,
		"gmsh.keep_files":   false,
		"catalog.path":      DefaultCatalogPath(),
		"catalog.disabled":  false,
		"log.level":         "info",
		"sweep.parallelism": 0,
	}

	for k, value := range keys {
		v.SetDefault(k, value)
	}
}

// New returns a viper instance with defaults and FEAPREP_* environment
// overrides applied. Nested keys map to names like FEAPREP_GMSH_TIMEOUT.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix("FEAPREP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		log.Debugf("Unmarshaling default config failed: %v", err)
		panic(err)
	}
	return c
}

// SearchPaths lists the directories searched for the config file, highest
// priority first
func SearchPaths() []string {
	paths := []string{"."}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, xdg)
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config"))
	}
	return append(paths, "/etc")
}

// DefaultCatalogPath returns the run catalog location under the XDG data
// directory, falling back to the working directory
func DefaultCatalogPath() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, ConfigName, CatalogFileName)
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".local", "share", ConfigName, CatalogFileName)
	}
	return "feaprep.db"
}

// EnsureDir creates the parent directory of path if it doesn't exist
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}

// Load reads the config file into v and returns the merged settings together
// with the file used, if any. A $FEAPREP_CONFIG that names no file falls back
// to the search.
func Load(v *viper.Viper) (*Config, string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return LoadFromPath(v, path)
		}
		log.Warningf("%s=%s is not a file, searching for %s instead", EnvConfigPath, path, ConfigName)
	}

	v.SetConfigName(ConfigName)
	for _, dir := range SearchPaths() {
		v.AddConfigPath(dir)
	}
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		return decode(v, "")
	}
	path, absErr := filepath.Abs(v.ConfigFileUsed())
	if absErr != nil {
		path = v.ConfigFileUsed()
	}
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}
	log.Debugf("using config file %s", path)
	return decode(v, path)
}

// LoadFromPath reads the config file at path into v. An empty path uses only
// defaults, environment and bound flags.
func LoadFromPath(v *viper.Viper, path string) (*Config, string, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("read config: %w", err)
		}
		log.Debugf("using config file %s", path)
	}
	return decode(v, path)
}

func decode(v *viper.Viper, path string) (*Config, string, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, path, err
	}
	return c, path, nil
}

// Validate checks the settings for values no component can run with
func (c *Config) Validate() error {
	var problems []string
	if c.Mesher != MesherGmsh && c.Mesher != MesherStructured {
		problems = append(problems, fmt.Sprintf("mesher: must be %s or %s (got %q)", MesherGmsh, MesherStructured, c.Mesher))
	}
	if c.Gmsh.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("gmsh.timeout: must be positive (got %s)", c.Gmsh.Timeout))
	}
	if !c.Catalog.Disabled && c.Catalog.Path == "" {
		problems = append(problems, "catalog.path: is required unless the catalog is disabled")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level: "+err.Error())
	}
	if c.Sweep.Parallelism < 0 {
		problems = append(problems, fmt.Sprintf("sweep.parallelism: must be >= 0 (got %d)", c.Sweep.Parallelism))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	gmsh := c.Gmsh.Path
	if gmsh == "" {
		gmsh = "auto"
	}
	catalog := c.Catalog.Path
	if c.Catalog.Disabled {
		catalog = "disabled"
	}
	return fmt.Sprintf("Mesher: %s, gmsh: %s (timeout %s)\nCatalog: %s, log level: %s, sweep parallelism: %d",
		c.Mesher, gmsh, c.Gmsh.Timeout, catalog, c.Log.Level, c.Sweep.Parallelism)
}
