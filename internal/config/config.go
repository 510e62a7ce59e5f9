package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds process-level settings for a flashing session: which
// transport to prefer, where to look for Download Agent images, and the
// timeouts governing the port.
type Config struct {
	DAPath       string
	Backend      string // "serial" or "usb"
	LogLevel     string
	PortTimeout  time.Duration
}

var (
	loaded     *Config
	wasLoaded  bool
)

// Load reads an optional .env-style file in the project root, then applies
// environment variable overrides, caching the result for the process
// lifetime.
func Load() (*Config, error) {
	if loaded != nil && wasLoaded {
		return loaded, nil
	}

	cfg := &Config{
		Backend:     "usb",
		LogLevel:    "info",
		PortTimeout: 5 * time.Second,
	}

	root := findProjectRoot()
	envPath := filepath.Join(root, ".env")
	if data, err := os.ReadFile(envPath); err == nil {
		parseEnvFile(string(data), cfg)
	}

	if v := os.Getenv("MTK_DA_PATH"); v != "" {
		cfg.DAPath = v
	}
	if v := os.Getenv("MTK_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("MTK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MTK_PORT_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.PortTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	loaded = cfg
	wasLoaded = true
	return cfg, nil
}

func parseEnvFile(content string, cfg *Config) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		switch key {
		case "MTK_DA_PATH":
			cfg.DAPath = value
		case "MTK_BACKEND":
			cfg.Backend = value
		case "MTK_LOG_LEVEL":
			cfg.LogLevel = value
		case "MTK_PORT_TIMEOUT_MS":
			if ms, err := strconv.Atoi(value); err == nil {
				cfg.PortTimeout = time.Duration(ms) * time.Millisecond
			}
		}
	}
}

func findProjectRoot() string {
	cwd, _ := os.Getwd()
	if _, err := os.Stat(filepath.Join(cwd, ".env")); err == nil {
		return cwd
	}
	for {
		if _, err := os.Stat(filepath.Join(cwd, "go.mod")); err == nil {
			return cwd
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			return cwd
		}
		cwd = parent
	}
}
