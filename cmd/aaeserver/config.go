package main

import (
	"flag"

	"github.com/isle-project/aae/internal/aae/loader"
)

// Config is the root config for aaeserver: one struct, yaml tags for
// file overlay, and a single flag-registration method applying
// defaults before either source is read.
type Config struct {
	HTTPListenAddr string `yaml:"http_listen_addr,omitempty"`
	LogLevel       string `yaml:"log_level,omitempty"`
	LogJSON        bool   `yaml:"log_json,omitempty"`
	MaxConcurrency int    `yaml:"max_concurrency,omitempty"`
}

// NewDefaultConfig applies defaults through the same registration path
// used for real flags.
func NewDefaultConfig() *Config {
	c := &Config{}
	fs := flag.NewFlagSet("", flag.PanicOnError)
	c.RegisterFlagsAndApplyDefaults(fs)
	return c
}

// RegisterFlagsAndApplyDefaults registers flags and sets their
// defaults before any flag or config file is parsed.
func (c *Config) RegisterFlagsAndApplyDefaults(f *flag.FlagSet) {
	c.HTTPListenAddr = ":8088"
	c.LogLevel = "info"
	c.MaxConcurrency = loader.DefaultMaxConcurrency

	f.StringVar(&c.HTTPListenAddr, "server.http-listen-address", c.HTTPListenAddr, "HTTP server listen address.")
	f.StringVar(&c.LogLevel, "log.level", c.LogLevel, "Log level (debug, info, warn, error).")
	f.BoolVar(&c.LogJSON, "log.json", c.LogJSON, "Emit logs as JSON instead of logfmt.")
	f.IntVar(&c.MaxConcurrency, "engine.max-concurrency", c.MaxConcurrency, "Bound on concurrent child computations per compute call.")
}
