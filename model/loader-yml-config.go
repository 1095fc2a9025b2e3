package model

import (
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "extpack.yml"

// LoadConfigYaml reads fn on top of DefaultConfig. Keys absent from the
// file keep their default values; a non-empty asset list replaces the
// default one.
func LoadConfigYaml(fn string) (*Config, error) {
	fn, err := filepath.Abs(fn)
	if err != nil {
		return nil, err
	}

	log.Debugf("loading config from %s", fn)
	buf, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	err = yaml.Unmarshal(buf, cfg)
	return cfg, err
}

// LoadConfig loads fn when given. Otherwise it looks for DefaultConfigFile
// in dir and falls back to the built-in defaults.
func LoadConfig(dir, fn string) (*Config, error) {
	if fn != "" {
		return LoadConfigYaml(normalizePath(dir, fn))
	}
	fn = filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(fn); err == nil {
		return LoadConfigYaml(fn)
	}
	return DefaultConfig(), nil
}
