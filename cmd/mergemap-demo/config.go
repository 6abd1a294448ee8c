// Copyright 2026 Bob Vawter (bob@vawter.org)
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"github.com/spf13/viper"
)

// envPrefix is applied to environment variables, for example
// MERGEMAP_LIMIT=4.
const envPrefix = "MERGEMAP"

// Config holds the demo settings. Values are read from defaults, an
// optional config file, the environment, and finally flags.
type Config struct {
	Burst     int           `mapstructure:"burst"`
	FailEvery int           `mapstructure:"fail_every"`
	Interval  time.Duration `mapstructure:"interval"`
	Latency   time.Duration `mapstructure:"latency"`
	Limit     int           `mapstructure:"limit"`
	LogLevel  string        `mapstructure:"log_level"`
	Queries   []string      `mapstructure:"queries"`
	Rate      float64       `mapstructure:"rate"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("burst", 2)
	v.SetDefault("fail_every", 0)
	v.SetDefault("interval", 100*time.Millisecond)
	v.SetDefault("latency", 250*time.Millisecond)
	v.SetDefault("limit", 2)
	v.SetDefault("log_level", "INFO")
	v.SetDefault("queries", []string{"g", "go", "gop", "goph", "gophe", "gopher"})
	v.SetDefault("rate", 5.0)
}

// LoadConfig parses the command line and merges it with the other
// configuration sources.
func LoadConfig(args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs := gnuflag.NewFlagSet("mergemap-demo", gnuflag.ContinueOnError)
	var configFile string
	fs.StringVar(&configFile, "config", "", "path to a configuration file")
	fs.IntVar(new(int), "limit", 0, "maximum number of concurrent lookups")
	fs.Float64Var(new(float64), "rate", 0, "lookups started per second")
	fs.IntVar(new(int), "burst", 0, "lookups that may start without waiting")
	fs.IntVar(new(int), "fail-every", 0, "make every n-th lookup fail once")
	fs.DurationVar(new(time.Duration), "interval", 0, "time between queries")
	fs.DurationVar(new(time.Duration), "latency", 0, "simulated lookup latency")
	fs.StringVar(new(string), "log-level", "", "root logging level")
	if err := fs.Parse(true, args); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read %s: %w", configFile, err)
		}
	}

	// Only explicitly set flags override the other sources.
	fs.Visit(func(f *gnuflag.Flag) {
		if f.Name == "config" {
			return
		}
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})
	if queries := fs.Args(); len(queries) > 0 {
		v.Set("queries", queries)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings for consistency.
func (c *Config) Validate() error {
	switch {
	case c.Limit <= 0:
		return fmt.Errorf("limit must be positive, got %d", c.Limit)
	case c.Rate <= 0:
		return fmt.Errorf("rate must be positive, got %v", c.Rate)
	case c.Burst <= 0:
		return fmt.Errorf("burst must be positive, got %d", c.Burst)
	case c.FailEvery < 0:
		return fmt.Errorf("fail_every must not be negative, got %d", c.FailEvery)
	case c.Interval < 0:
		return fmt.Errorf("interval must not be negative, got %s", c.Interval)
	case c.Latency < 0:
		return fmt.Errorf("latency must not be negative, got %s", c.Latency)
	case len(c.Queries) == 0:
		return fmt.Errorf("at least one query is required")
	}
	if _, ok := loggo.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}
