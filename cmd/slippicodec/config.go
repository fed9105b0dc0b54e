package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// config holds defaults loadable from a YAML file (--config), overridden
// by any flag the user sets explicitly on the command line.
type config struct {
	DebugLevel int  `yaml:"debugLevel"`
	SkipSave   bool `yaml:"skipSave"`
	RawEnc     bool `yaml:"rawEnc"`
	DumpGecko  bool `yaml:"dumpGecko"`
}

func defaultConfig() config {
	return config{DebugLevel: 0}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "config: read")
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrap(err, "config: parse")
	}
	return cfg, nil
}
