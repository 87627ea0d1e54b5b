package logging

import (
	"os"
	"strings"

	"github.com/spf13/cast"
)

// Env names the environment variables that override Config. Empty names
// are skipped.
type Env struct {
	Level  string
	Format string
	Source string
}

// Config is the [logging] table.
type Config struct {
	Level  Level  `toml:"level"`
	Format Format `toml:"format"`

	// Source adds the calling file and line to each record.
	Source bool `toml:"source"`
}

// Finalize fills in info/text, applies env, and rejects unknown names.
func (c *Config) Finalize(env *Env) error {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatText
	}
	if env != nil {
		c.loadEnv(env)
	}
	if err := c.Level.Validate(); err != nil {
		return err
	}
	return c.Format.Validate()
}

// Merge takes every value the overlay sets.
func (c *Config) Merge(overlay *Config) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
	if overlay.Source {
		c.Source = true
	}
}

func (c *Config) loadEnv(env *Env) {
	if v := lookup(env.Level); v != "" {
		c.Level = Level(strings.ToLower(v))
	}
	if v := lookup(env.Format); v != "" {
		c.Format = Format(strings.ToLower(v))
	}
	if v := lookup(env.Source); v != "" {
		if source, err := cast.ToBoolE(v); err == nil {
			c.Source = source
		}
	}
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}
