package realtime

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/buildinfo"
	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/util"
)

const handshakeTimeout = 30 * time.Second

// Dialer opens realtime channels, honoring the configured proxy.
type Dialer struct {
	dialer *websocket.Dialer
	header http.Header
}

// NewDialer builds a proxy-aware websocket dialer from the transport settings.
func NewDialer(cfg *config.SDKConfig) *Dialer {
	header := http.Header{}
	header.Set("User-Agent", buildinfo.UserAgent())
	return &Dialer{dialer: newProxyAwareWebsocketDialer(cfg), header: header}
}

// Dial connects to wsURL. The channel is open once Dial returns without error.
func (d *Dialer) Dial(ctx context.Context, wsURL string) (*Channel, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	conn, resp, err := d.dialer.DialContext(ctx, wsURL, d.header)
	if err != nil {
		if body := handshakeBody(resp); len(body) > 0 {
			return nil, fmt.Errorf("realtime: dial %s failed with status %d: %s: %w", wsURL, resp.StatusCode, strings.TrimSpace(string(body)), err)
		}
		return nil, fmt.Errorf("realtime: dial %s: %w", wsURL, err)
	}
	log.Debugf("realtime: connected to %s", wsURL)
	return newChannel(conn, wsURL), nil
}

func newProxyAwareWebsocketDialer(cfg *config.SDKConfig) *websocket.Dialer {
	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshakeTimeout,
		NetDialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	proxyURL := ""
	if cfg != nil {
		proxyURL = strings.TrimSpace(cfg.ProxyURL)
	}
	if proxyURL == "" {
		return dialer
	}

	parsedURL, errParse := url.Parse(proxyURL)
	if errParse != nil {
		log.Errorf("realtime: parse proxy URL failed: %v", errParse)
		return dialer
	}

	switch parsedURL.Scheme {
	case "socks5":
		socksDialer, errSOCKS5 := util.SOCKS5Dialer(parsedURL)
		if errSOCKS5 != nil {
			log.Errorf("realtime: create SOCKS5 dialer failed: %v", errSOCKS5)
			return dialer
		}
		dialer.Proxy = nil
		dialer.NetDialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return socksDialer.Dial(network, addr)
		}
	case "http", "https":
		dialer.Proxy = http.ProxyURL(parsedURL)
	default:
		log.Errorf("realtime: unsupported proxy scheme: %s", parsedURL.Scheme)
	}
	return dialer
}

func handshakeBody(resp *http.Response) []byte {
	if resp == nil || resp.Body == nil {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if errClose := resp.Body.Close(); errClose != nil {
		log.Errorf("realtime: close handshake response body error: %v", errClose)
	}
	return body
}
