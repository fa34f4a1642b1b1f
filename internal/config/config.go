package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	DefaultMethod        string `mapstructure:"default_method" yaml:"default_method"`
	DefaultAction        string `mapstructure:"default_action" yaml:"default_action"`
	CardinalityThreshold int    `mapstructure:"cardinality_threshold" yaml:"cardinality_threshold"`
	StrictCustom         bool   `mapstructure:"strict_custom" yaml:"strict_custom"`
	HistogramBins        int    `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	MaxRows              int    `mapstructure:"max_rows" yaml:"max_rows"`

	// Mutual information
	MINeighbors int `mapstructure:"mi_neighbors" yaml:"mi_neighbors"`
	MIMaxRows   int `mapstructure:"mi_max_rows" yaml:"mi_max_rows"`
	MILimit     int `mapstructure:"mi_limit" yaml:"mi_limit"`

	// Run journal
	Journal     bool   `mapstructure:"journal" yaml:"journal"`
	JournalPath string `mapstructure:"journal_path" yaml:"journal_path"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// Dir returns ~/.quickeda.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".quickeda"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.quickeda/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("QUICKEDA")
	v.AutomaticEnv()

	v.SetDefault("default_method", "z")
	v.SetDefault("default_action", "compress")
	v.SetDefault("cardinality_threshold", 20)
	v.SetDefault("strict_custom", false)
	v.SetDefault("histogram_bins", 10)
	v.SetDefault("max_rows", 100000)
	v.SetDefault("mi_neighbors", 3)
	v.SetDefault("mi_max_rows", 5000)
	v.SetDefault("mi_limit", 10)
	v.SetDefault("journal", true)
	v.SetDefault("journal_path", "")
	v.SetDefault("log_level", "info")

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read
	_ = v.ReadInConfig()

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(dir, "journal.db")
	}
	return &c, nil
}
