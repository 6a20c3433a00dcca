package config

import (
	"strconv"
	"strings"
	"time"
)

// setting binds one flag (and its BANDREPORTS_* environment variable) to a field.
type setting struct {
	flag  string
	usage string
	apply func(c *Config, value string) error
}

func settings() []setting {
	return []setting{
		stringSetting("env", "Environment (development, staging, production)", func(c *Config) *string { return &c.App.Environment }),
		stringSetting("log-level", "Log level (debug, info, warn, error)", func(c *Config) *string { return &c.Logger.Level }),
		stringSetting("log-format", "Log format (json, pretty; default depends on env)", func(c *Config) *string { return &c.Logger.Format }),
		boolSetting("no-color", "Disable colored log output", func(c *Config) *bool { return &c.Logger.NoColor }),

		stringSetting("dataset", "Source table (.parquet or .xlsx)", func(c *Config) *string { return &c.Paths.Dataset }),
		stringSetting("fallback-csv", "CSV with an evaluation column used when the table cannot be read", func(c *Config) *string { return &c.Paths.FallbackCSV }),
		stringSetting("records", "Filtered records file (JSON lines)", func(c *Config) *string { return &c.Paths.Records }),
		stringSetting("images-dir", "Directory for downloaded images", func(c *Config) *string { return &c.Paths.Images }),
		stringSetting("output-dir", "Directory for rendered PDFs", func(c *Config) *string { return &c.Paths.Output }),
		stringSetting("categorized-dir", "Directory for categorized PDFs", func(c *Config) *string { return &c.Paths.Categorized }),
		stringSetting("manifest", "Manifest database path (\"none\" disables)", func(c *Config) *string { return &c.Paths.Manifest }),
		stringSetting("index", "Report index workbook path (\"none\" disables)", func(c *Config) *string { return &c.Paths.Index }),

		stringSetting("score-field", "Column compared against the target score", func(c *Config) *string { return &c.Filter.ScoreField }),
		stringSetting("target-score", "Exact stored value to keep (e.g. 9)", func(c *Config) *string { return &c.Filter.Target }),
		stringSetting("evaluation-column", "Free-text column searched by the CSV fallback", func(c *Config) *string { return &c.Filter.EvaluationColumn }),

		stringSetting("group-field", "Record field that keys a report", func(c *Config) *string { return &c.Group.Field }),
		stringSetting("missing-keys", "Records without a key: merge or split", func(c *Config) *string { return &c.Group.MissingKeys }),

		durationSetting("fetch-timeout", "Per-request download timeout (default: 30s)", func(c *Config) *time.Duration { return &c.Fetch.Timeout }),
		int64Setting("fetch-max-bytes", "Maximum image size in bytes", func(c *Config) *int64 { return &c.Fetch.MaxBytes }),
		floatSetting("fetch-rate", "Maximum downloads per second (0 = unlimited)", func(c *Config) *float64 { return &c.Fetch.RequestsPerSecond }),
		stringSetting("user-agent", "User-Agent header for downloads", func(c *Config) *string { return &c.Fetch.UserAgent }),

		stringSetting("style", "Report layout: improved or compact", func(c *Config) *string { return &c.Render.Style }),
		stringSetting("font", "UTF-8 TrueType font for report text", func(c *Config) *string { return &c.Render.FontPath }),
		stringSetting("font-bold", "Bold variant of --font", func(c *Config) *string { return &c.Render.FontBoldPath }),

		stringSetting("category-field", "Record field naming the category subdirectory", func(c *Config) *string { return &c.Categorize.Field }),
	}
}

func stringSetting(flag, usage string, field func(*Config) *string) setting {
	return setting{flag: flag, usage: usage, apply: func(c *Config, v string) error {
		*field(c) = v
		return nil
	}}
}

// boolSetting accepts "true", "1", "yes" (case-insensitive) as true; anything else is false.
func boolSetting(flag, usage string, field func(*Config) *bool) setting {
	return setting{flag: flag, usage: usage, apply: func(c *Config, v string) error {
		v = strings.ToLower(v)
		*field(c) = v == "true" || v == "1" || v == "yes"
		return nil
	}}
}

func durationSetting(flag, usage string, field func(*Config) *time.Duration) setting {
	return setting{flag: flag, usage: usage, apply: func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}}
}

func int64Setting(flag, usage string, field func(*Config) *int64) setting {
	return setting{flag: flag, usage: usage, apply: func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}}
}

func floatSetting(flag, usage string, field func(*Config) *float64) setting {
	return setting{flag: flag, usage: usage, apply: func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(c) = f
		return nil
	}}
}
