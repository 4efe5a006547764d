package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/KaramelBytes/tractmobility-cli/internal/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	RawDir        string `mapstructure:"raw_dir" yaml:"raw_dir"`
	ProcessedDir  string `mapstructure:"processed_dir" yaml:"processed_dir"`
	RidershipYear int    `mapstructure:"ridership_year" yaml:"ridership_year"`
	SampleRows    int    `mapstructure:"sample_rows" yaml:"sample_rows"`
	LogLevel      string `mapstructure:"log_level" yaml:"log_level"`

	// Database export
	ExportDialect string `mapstructure:"export_dialect" yaml:"export_dialect"`
	ExportDSN     string `mapstructure:"export_dsn" yaml:"export_dsn"`
	ExportTable   string `mapstructure:"export_table" yaml:"export_table"`
}

// Keys lists the settable configuration keys in display order.
var Keys = []string{
	"raw_dir", "processed_dir", "ridership_year", "sample_rows", "log_level",
	"export_dialect", "export_dsn", "export_table",
}

func dirName() string { return ".tractmobility" }

// DefaultPath returns ~/.tractmobility/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName(), "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tractmobility/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
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
	v.SetEnvPrefix("TRACTMOB")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("raw_dir", "./data_raw")
	v.SetDefault("processed_dir", "./data_processed")
	v.SetDefault("ridership_year", 2023)
	v.SetDefault("sample_rows", 5)
	v.SetDefault("log_level", "info")
	v.SetDefault("export_dialect", "postgres")
	v.SetDefault("export_dsn", "")
	v.SetDefault("export_table", "tract_mobility_master")

	// Config file
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName()))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// a missing file is fine; a broken one is not
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	for _, dir := range []*string{&c.RawDir, &c.ProcessedDir} {
		if strings.HasPrefix(*dir, "~") {
			expanded, err := utils.ExpandHome(*dir)
			if err != nil {
				return nil, err
			}
			*dir = expanded
		}
	}
	return &c, nil
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	switch key {
	case "raw_dir":
		c.RawDir = val
	case "processed_dir":
		c.ProcessedDir = val
	case "ridership_year":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1900 || i > 9999 {
			return fmt.Errorf("invalid year for ridership_year: %v", val)
		}
		c.RidershipYear = i
	case "sample_rows":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for sample_rows: %v", val)
		}
		c.SampleRows = i
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "export_dialect":
		switch strings.ToLower(val) {
		case "postgres", "postgresql", "pg":
			c.ExportDialect = "postgres"
		case "clickhouse", "ch":
			c.ExportDialect = "clickhouse"
		default:
			return fmt.Errorf("invalid export_dialect: %s (use postgres or clickhouse)", val)
		}
	case "export_dsn":
		c.ExportDSN = val
	case "export_table":
		c.ExportTable = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get returns the string form of one key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "raw_dir":
		return c.RawDir, nil
	case "processed_dir":
		return c.ProcessedDir, nil
	case "ridership_year":
		return strconv.Itoa(c.RidershipYear), nil
	case "sample_rows":
		return strconv.Itoa(c.SampleRows), nil
	case "log_level":
		return c.LogLevel, nil
	case "export_dialect":
		return c.ExportDialect, nil
	case "export_dsn":
		return c.ExportDSN, nil
	case "export_table":
		return c.ExportTable, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}
