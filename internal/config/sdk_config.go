// Package config provides configuration management for videocom-share.
// It handles loading and parsing the YAML configuration file and exposes structured
// access to the cloud host, proxy, logging and timeout settings.
package config

// SDKConfig holds the transport settings shared by every outbound connection.
type SDKConfig struct {
	// ProxyURL is the URL of an optional proxy server to use for outbound requests.
	// Supported schemes are socks5, http and https.
	ProxyURL string `yaml:"proxy-url" json:"proxy-url"`

	// HTTPTimeout bounds each API request in seconds. Uploads to the signed URL are not bounded.
	// <= 0 falls back to DefaultHTTPTimeout.
	HTTPTimeout int `yaml:"http-timeout,omitempty" json:"http-timeout,omitempty"`
}
