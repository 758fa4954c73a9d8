// Package config provides configuration loading for the bridge.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tidwall/jsonc"
)

// Default listener settings. The bridge only ever binds loopback.
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 3742
)

// Config holds bridge configuration.
type Config struct {
	// Port the server listens on.
	Port int `json:"port,omitempty"`
	// Host the server binds to. Loopback by default; there is no auth, so
	// binding a non-loopback interface is on the operator.
	Host string `json:"host,omitempty"`
	// Editor is the editor executable used by the CLI editor adapter.
	Editor string `json:"editor,omitempty"`
	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:   DefaultPort,
		Host:   DefaultHost,
		Editor: "code",
	}
}

// Load loads configuration from multiple sources (later sources win):
//  1. Global config (~/.config/editorbridge/editorbridge.json[c])
//  2. Project config (<directory>/.editorbridge.json[c])
//  3. EDITORBRIDGE_* environment variables
func Load(directory string) (*Config, error) {
	config := Default()

	if home := configHome(); home != "" {
		dir := filepath.Join(home, "editorbridge")
		loadFile(filepath.Join(dir, "editorbridge.json"), config)
		loadFile(filepath.Join(dir, "editorbridge.jsonc"), config)
	}

	if directory != "" {
		loadFile(filepath.Join(directory, ".editorbridge.json"), config)
		loadFile(filepath.Join(directory, ".editorbridge.jsonc"), config)
	}

	applyEnvOverrides(config)

	return config, nil
}

// loadFile merges a single JSONC config file into config. Missing files are
// skipped; malformed files are ignored rather than fatal.
func loadFile(path string, config *Config) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	data = jsonc.ToJSON(data)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return
	}

	merge(config, &fileConfig)
}

// merge overlays non-zero fields of src onto dst.
func merge(dst, src *Config) {
	if src.Port != 0 {
		dst.Port = src.Port
	}
	if src.Host != "" {
		dst.Host = src.Host
	}
	if src.Editor != "" {
		dst.Editor = src.Editor
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
}

// applyEnvOverrides applies EDITORBRIDGE_* environment variables, which take
// priority over any file values.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("EDITORBRIDGE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			config.Port = port
		}
	}
	if v := os.Getenv("EDITORBRIDGE_HOST"); v != "" {
		config.Host = v
	}
	if v := os.Getenv("EDITORBRIDGE_EDITOR"); v != "" {
		config.Editor = v
	}
	if v := os.Getenv("EDITORBRIDGE_LOG_LEVEL"); v != "" {
		config.LogLevel = v
	}
}

// configHome returns the XDG config directory.
func configHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config")
	}
	return ""
}
