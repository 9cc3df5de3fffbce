package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile layers the YAML file at path over base. Keys absent from the file
// keep the values in base; lists in the file replace those in base.
func LoadFile(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	for i := range cfg.Networks {
		cfg.Networks[i].applyDefaults()
	}
	cfg.ConfigFile = path
	return cfg, nil
}

// Resolve loads the environment configuration and, when CHANLOG_CONFIG or
// path is set, the YAML file on top of it.
func Resolve(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		path = cfg.ConfigFile
	}
	if path == "" {
		return cfg, nil
	}
	return LoadFile(path, cfg)
}

func (n *NetworkConfig) applyDefaults() {
	if n.Provider == "" {
		if n.Server == "" && n.ReplayFile != "" {
			n.Provider = "replay"
		} else {
			n.Provider = "irc"
		}
	}
	if n.Nick == "" {
		n.Nick = "chanlog"
	}
	if n.User == "" {
		n.User = n.Nick
	}
	if n.RealName == "" {
		n.RealName = "chanlog " + Version
	}
}
