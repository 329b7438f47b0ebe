// Package util provides utility functions shared across videocom-share.
// It includes helpers for proxy configuration, HTTP client setup,
// log level management and path resolution.
package util

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/config"
	"golang.org/x/net/proxy"
)

// SetProxy configures the provided HTTP client with proxy settings from the configuration.
// It supports SOCKS5, HTTP, and HTTPS proxies. The client's transport is replaced only when
// a usable proxy URL is configured.
func SetProxy(cfg *config.SDKConfig, httpClient *http.Client) *http.Client {
	if cfg == nil || strings.TrimSpace(cfg.ProxyURL) == "" {
		return httpClient
	}
	var transport *http.Transport
	proxyURL, errParse := url.Parse(cfg.ProxyURL)
	if errParse != nil {
		log.Errorf("parse proxy URL failed: %v", errParse)
		return httpClient
	}
	switch proxyURL.Scheme {
	case "socks5":
		dialer, errSOCKS5 := SOCKS5Dialer(proxyURL)
		if errSOCKS5 != nil {
			log.Errorf("create SOCKS5 dialer failed: %v", errSOCKS5)
			return httpClient
		}
		transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			},
		}
	case "http", "https":
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	default:
		log.Errorf("unsupported proxy scheme: %s", proxyURL.Scheme)
	}
	if transport != nil {
		httpClient.Transport = transport
	}
	return httpClient
}

// SOCKS5Dialer builds a SOCKS5 dialer for proxyURL, carrying its user info as credentials.
func SOCKS5Dialer(proxyURL *url.URL) (proxy.Dialer, error) {
	var proxyAuth *proxy.Auth
	if proxyURL.User != nil {
		username := proxyURL.User.Username()
		password, _ := proxyURL.User.Password()
		proxyAuth = &proxy.Auth{User: username, Password: password}
	}
	return proxy.SOCKS5("tcp", proxyURL.Host, proxyAuth, proxy.Direct)
}

// NewAPIClient returns the client used for JSON API calls: bounded by the configured
// timeout and routed through the configured proxy.
func NewAPIClient(cfg *config.Config) *http.Client {
	client := &http.Client{Timeout: cfg.HTTPTimeoutDuration()}
	return SetProxy(&cfg.SDKConfig, client)
}

// NewTransferClient returns the client used to stream uploads. It has no overall timeout
// because large recordings can take arbitrarily long.
func NewTransferClient(cfg *config.Config) *http.Client {
	return SetProxy(&cfg.SDKConfig, &http.Client{})
}
