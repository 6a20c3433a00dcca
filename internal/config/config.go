// Package config loads pipeline configuration from command-line flags, environment
// variables, a .env file, an optional YAML file and built-in defaults.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bandreports/bandreports/internal/validation"
)

// Disabled turns off an optional output (manifest, index) when used as its path.
const Disabled = "none"

// envPrefix namespaces every environment variable read by the pipeline.
const envPrefix = "BANDREPORTS_"

// Config holds the pipeline configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Paths      PathsConfig      `yaml:"paths"`
	Filter     FilterConfig     `yaml:"filter"`
	Group      GroupConfig      `yaml:"group"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Render     RenderConfig     `yaml:"render"`
	Categorize CategorizeConfig `yaml:"categorize"`
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string `yaml:"environment" validate:"oneof=development staging production"`
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level   string `yaml:"level" validate:"required"`
	Format  string `yaml:"format" validate:"omitempty,oneof=json pretty"`
	NoColor bool   `yaml:"no_color"`
}

// PathsConfig holds every file and directory the stages read or write.
type PathsConfig struct {
	Dataset     string `yaml:"dataset" validate:"required"`
	FallbackCSV string `yaml:"fallback_csv"`
	Records     string `yaml:"records" validate:"required"`
	Images      string `yaml:"images" validate:"required"`
	Output      string `yaml:"output" validate:"required"`
	Categorized string `yaml:"categorized" validate:"required,nefield=Output"`
	Manifest    string `yaml:"manifest"`
	Index       string `yaml:"index"`
}

// FilterConfig holds score filter configuration.
type FilterConfig struct {
	ScoreField       string `yaml:"score_field" validate:"required"`
	Target           string `yaml:"target" validate:"required"`
	EvaluationColumn string `yaml:"evaluation_column" validate:"required"`
}

// GroupConfig holds grouping configuration.
type GroupConfig struct {
	// Field is the record field whose value keys a group.
	Field string `yaml:"field" validate:"required"`
	// MissingKeys decides what happens to records without a key:
	// "merge" puts them all in one group, "split" gives each its own group.
	MissingKeys string `yaml:"missing_keys" validate:"oneof=merge split"`
}

// FetchConfig holds image download configuration.
type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxBytes          int64         `yaml:"max_bytes" validate:"gt=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	UserAgent         string        `yaml:"user_agent"`
}

// RenderConfig holds PDF layout configuration.
type RenderConfig struct {
	// Style selects the page layout: "improved" or "compact".
	Style string `yaml:"style" validate:"oneof=improved compact"`
	// FontPath optionally points at a UTF-8 TrueType font used for all text.
	FontPath string `yaml:"font_path"`
	// FontBoldPath optionally points at the bold variant of FontPath.
	FontBoldPath string `yaml:"font_bold_path"`
}

// CategorizeConfig holds file categorizer configuration.
type CategorizeConfig struct {
	Field string `yaml:"field" validate:"required"`
}

// Default returns the configuration the pipeline runs with when nothing is overridden.
// Paths are relative to the working directory.
func Default() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Paths: PathsConfig{
			Dataset:     "train-00000-of-00001.parquet",
			FallbackCSV: "train.csv",
			Records:     "high_score_results.jsonl",
			Images:      "downloaded_images",
			Output:      "ielts_task1_improved_pdfs",
			Categorized: "categorized_pdfs",
			Manifest:    "bandreports.db",
		},
		Filter: FilterConfig{
			ScoreField:       "overall_band_score",
			Target:           "9",
			EvaluationColumn: "evaluation",
		},
		Group: GroupConfig{
			Field:       "image",
			MissingKeys: "merge",
		},
		Fetch: FetchConfig{
			Timeout:   30 * time.Second,
			MaxBytes:  20 << 20,
			UserAgent: "bandreports/1.0",
		},
		Render: RenderConfig{
			Style: "improved",
		},
		Categorize: CategorizeConfig{
			Field: "topic",
		},
	}
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables (BANDREPORTS_*).
// 3. .env file.
// 4. YAML config file.
// 5. Default values (lowest priority).
//
// fs must have been prepared with RegisterFlags and parsed. A nil fs skips flags.
func Load(fs *pflag.FlagSet) (*Config, error) {
	envFile := flagString(fs, "env-file", ".env")
	_ = loadEnvFile(envFile)

	cfg := Default()

	configFile := getConfigValue(flagString(fs, "config", ""), envPrefix+"CONFIG", "")
	if configFile != "" {
		if err := loadYAMLFile(expandHome(configFile), cfg); err != nil {
			return nil, err
		}
	}

	for _, s := range settings() {
		value := getConfigValue(flagString(fs, s.flag, ""), envKey(s.flag), "")
		if value == "" {
			continue
		}
		if err := s.apply(cfg, value); err != nil {
			return nil, fmt.Errorf("invalid --%s %q: %w", s.flag, value, err)
		}
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// RegisterFlags defines every configuration flag on fs.
// Flags default to empty so that an unset flag falls through to the next layer.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to a YAML config file")
	fs.String("env-file", ".env", "Path to .env file")
	for _, s := range settings() {
		fs.String(s.flag, "", s.usage)
	}
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	if err := validation.New().Validate(c); err != nil {
		return err
	}
	validLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warn":    true,
		"warning": true,
		"error":   true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}
	if c.Paths.Output == c.Paths.Images {
		return errors.New("output and images directories must differ")
	}
	return nil
}

// ManifestEnabled reports whether a manifest database should be used.
func (c *Config) ManifestEnabled() bool {
	return c.Paths.Manifest != "" && c.Paths.Manifest != Disabled
}

// IndexEnabled reports whether an index workbook should be written.
func (c *Config) IndexEnabled() bool {
	return c.Paths.Index != Disabled
}

// IndexPath returns where the index workbook goes; it defaults to index.xlsx
// inside the output directory.
func (c *Config) IndexPath() string {
	if c.Paths.Index == "" {
		return filepath.Join(c.Paths.Output, "index.xlsx")
	}
	return c.Paths.Index
}

func (c *Config) expandPaths() {
	for _, p := range []*string{
		&c.Paths.Dataset, &c.Paths.FallbackCSV, &c.Paths.Records, &c.Paths.Images,
		&c.Paths.Output, &c.Paths.Categorized, &c.Paths.Manifest, &c.Paths.Index,
		&c.Render.FontPath, &c.Render.FontBoldPath,
	} {
		*p = expandHome(*p)
	}
}

// expandHome expands a leading ~/ to the user's home directory.
// Relative paths stay relative to the working directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}

func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) //#nosec G304 -- config path comes from the operator
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

func flagString(fs *pflag.FlagSet, name, fallback string) string {
	if fs == nil {
		return fallback
	}
	f := fs.Lookup(name)
	if f == nil {
		return fallback
	}
	if !f.Changed {
		return fallback
	}
	return f.Value.String()
}

func envKey(flag string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments). Existing variables win.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- env file path comes from the operator
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
