package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultCloudHost is used when neither the config file nor the credential store names a host.
	DefaultCloudHost = "cloud.videocom.com"
	// DefaultAuthDir is where the JSON credential store lives unless auth-dir overrides it.
	DefaultAuthDir = "~/.videocom-share"
	// DefaultHandshakeTimeout bounds interactive browser sign-in, in seconds.
	DefaultHandshakeTimeout = 600
	// DefaultHTTPTimeout bounds API requests, in seconds.
	DefaultHTTPTimeout = 30
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	SDKConfig `yaml:",inline"`

	// CloudHost is the VideoCom host used when the credential store has no CLOUD_HOST entry.
	CloudHost string `yaml:"cloud-host" json:"cloud-host"`

	// AuthDir is the directory holding the credential store file.
	AuthDir string `yaml:"auth-dir" json:"auth-dir"`

	// Debug enables debug level logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile writes logs to a rotating file under the logs directory instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB caps the logs directory size. <= 0 disables cleanup.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// HandshakeTimeout bounds interactive sign-in in seconds. 0 waits until interrupted.
	HandshakeTimeout *int `yaml:"handshake-timeout,omitempty" json:"handshake-timeout,omitempty"`

	// WatchExtensions lists the file extensions picked up in watch mode.
	WatchExtensions []string `yaml:"watch-extensions,omitempty" json:"watch-extensions,omitempty"`
}

// LoadConfig reads and parses the YAML configuration file at configFile.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads the configuration file. When optional is true a missing or empty
// path yields the default configuration instead of an error.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := &Config{}
	path := strings.TrimSpace(configFile)
	if path == "" {
		if !optional {
			return nil, fmt.Errorf("config: file path is required")
		}
		cfg.applyDefaults()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			cfg.applyDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: failed to read config file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: failed to parse config file: %w", err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	cfg.CloudHost = NormalizeHost(cfg.CloudHost)
	if cfg.CloudHost == "" {
		cfg.CloudHost = DefaultCloudHost
	}
	if value, ok := os.LookupEnv("VIDEOCOM_CLOUD_HOST"); ok {
		if host := NormalizeHost(value); host != "" {
			cfg.CloudHost = host
		}
	}
	cfg.AuthDir = strings.TrimSpace(cfg.AuthDir)
	if cfg.AuthDir == "" {
		cfg.AuthDir = DefaultAuthDir
	}
	cfg.ProxyURL = strings.TrimSpace(cfg.ProxyURL)
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	if cfg.HandshakeTimeout == nil {
		v := DefaultHandshakeTimeout
		cfg.HandshakeTimeout = &v
	} else if *cfg.HandshakeTimeout < 0 {
		v := 0
		cfg.HandshakeTimeout = &v
	}
	exts := make([]string, 0, len(cfg.WatchExtensions))
	for _, ext := range cfg.WatchExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		exts = []string{"mp4"}
	}
	cfg.WatchExtensions = exts
}

// HandshakeTimeoutDuration returns the sign-in bound; zero means no bound.
func (cfg *Config) HandshakeTimeoutDuration() time.Duration {
	if cfg == nil || cfg.HandshakeTimeout == nil {
		return DefaultHandshakeTimeout * time.Second
	}
	return time.Duration(*cfg.HandshakeTimeout) * time.Second
}

// HTTPTimeoutDuration returns the per-request bound for API calls.
func (cfg *Config) HTTPTimeoutDuration() time.Duration {
	if cfg == nil || cfg.HTTPTimeout <= 0 {
		return DefaultHTTPTimeout * time.Second
	}
	return time.Duration(cfg.HTTPTimeout) * time.Second
}

// NormalizeHost strips schemes, paths and surrounding whitespace from a configured host.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	for _, prefix := range []string{"https://", "http://", "wss://", "ws://"} {
		if len(host) >= len(prefix) && strings.EqualFold(host[:len(prefix)], prefix) {
			host = host[len(prefix):]
			break
		}
	}
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	return host
}
