package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the content of a project configuration file.
type Config struct {
	Adapter   string        `yaml:"adapter"`
	Include   string        `yaml:"include"`
	Ignore    []string      `yaml:"ignore"`
	Extension string        `yaml:"extension"`
	Strict    bool          `yaml:"strict"`
	Debounce  time.Duration `yaml:"debounce"`
	Query     QueryConfig   `yaml:"query"`
}

// QueryConfig describes the query a list is bound to.
type QueryConfig struct {
	Collection string `yaml:"collection"`
	OrderBy    string `yaml:"order_by"`
	Descending bool   `yaml:"descending"`
	PageSize   int    `yaml:"page_size"`
	Policy     string `yaml:"policy"`
}

// DefaultPageSize is used when the configuration names none.
const DefaultPageSize = 20

// LoadConfig reads ConfigFile from dir. A missing file yields the defaults.
func LoadConfig(dir string) (Config, error) {
	cfg := Config{Query: QueryConfig{PageSize: DefaultPageSize}}

	data, err := os.ReadFile(filepath.Join(dir, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", ConfigFile, err)
	}
	if cfg.Query.PageSize <= 0 {
		cfg.Query.PageSize = DefaultPageSize
	}
	return cfg, nil
}

// Options converts the file settings into Open options.
func (c Config) Options() []Option {
	var opts []Option
	if c.Adapter != "" {
		opts = append(opts, WithAdapter(c.Adapter))
	}
	if c.Include != "" {
		opts = append(opts, WithInclude(c.Include))
	}
	if len(c.Ignore) > 0 {
		opts = append(opts, WithIgnore(c.Ignore...))
	}
	if c.Extension != "" {
		opts = append(opts, WithExtension(c.Extension))
	}
	if c.Debounce > 0 {
		opts = append(opts, WithDebounce(c.Debounce))
	}
	return append(opts, WithStrict(c.Strict))
}
