package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/go-kit/log/level"
	"gopkg.in/yaml.v2"

	"github.com/isle-project/aae/internal/aaelog"
)

func main() {
	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}

	aaelog.Init(config.LogLevel, config.LogJSON)

	srv := newServer(config)
	level.Info(aaelog.Logger).Log("msg", "starting aaeserver", "addr", config.HTTPListenAddr)
	if err := srv.ListenAndServe(); err != nil {
		level.Error(aaelog.Logger).Log("msg", "server exited with error", "err", err)
		os.Exit(1)
	}
}

// loadConfig runs a two-pass overlay: first scrape -config.file off
// argv with a throwaway FlagSet, overlay any YAML it names on top of
// the registered defaults, then parse the real flag set so CLI flags
// win last.
func loadConfig() (*Config, error) {
	const configFileOption = "config.file"
	var configFile string

	args := os.Args[1:]
	config := &Config{}

	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&configFile, configFileOption, "", "")
	for len(args) > 0 {
		_ = fs.Parse(args)
		args = args[1:]
	}

	config.RegisterFlagsAndApplyDefaults(flag.CommandLine)

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read configFile %s: %w", configFile, err)
		}
		if err := yaml.UnmarshalStrict(buf, config); err != nil {
			return nil, fmt.Errorf("failed to parse configFile %s: %w", configFile, err)
		}
	}

	flag.String(configFileOption, "", "Configuration file to load")
	flag.Parse()

	return config, nil
}
