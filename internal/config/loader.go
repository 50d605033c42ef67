package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/adrg/xdg"
	"github.com/titanous/json5"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFiles are searched, in order, in the current directory.
var DefaultConfigFiles = []string{"menucrawl.yaml", "menucrawl.yml", "menucrawl.json5"}

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if specified
//  2. menucrawl.yaml, menucrawl.yml or menucrawl.json5 in the current directory
//  3. $XDG_CONFIG_HOME/menucrawl/config.yaml
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		for _, name := range DefaultConfigFiles {
			p := filepath.Join(cwd, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}

	if p, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.yaml")); err == nil {
		return p
	}
	return ""
}

// Load reads the configuration file at path and merges it over the defaults.
// A sibling <name>.local.<ext> file, when present, is merged last so machine
// specific settings can stay out of version control.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	file, err := readFile(path)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(cfg, file, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("merge %s: %w", path, err)
	}

	local := localPath(path)
	override, err := readFile(local)
	switch {
	case errors.Is(err, ErrConfigNotFound):
	case err != nil:
		return nil, err
	default:
		if err := mergo.Merge(cfg, override, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merge %s: %w", local, err)
		}
		slog.Debug("merging config with local overrides", "local", local)
	}

	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".json5":
		err = json5.Unmarshal(data, &cfg)
	default:
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// localPath turns dir/name.ext into dir/name.local.ext
func localPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".local" + ext
}
