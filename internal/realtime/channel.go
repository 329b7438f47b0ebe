// Package realtime provides the bidirectional message channel used by the interactive
// sign-in handshake. It wraps a gorilla/websocket client connection behind a small
// read/close surface that honors context cancellation.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeTimeout         = 10 * time.Second
	heartbeatInterval    = 30 * time.Second
	maxInboundMessageLen = 1 << 20
)

var errClosed = errors.New("realtime: channel closed")

// Channel is an open websocket connection.
type Channel struct {
	conn       *websocket.Conn
	url        string
	closed     chan struct{}
	closeOnce  sync.Once
	writeMutex sync.Mutex
}

func newChannel(conn *websocket.Conn, url string) *Channel {
	c := &Channel{
		conn:   conn,
		url:    url,
		closed: make(chan struct{}),
	}
	conn.SetReadLimit(maxInboundMessageLen)
	c.startHeartbeat()
	return c
}

// URL returns the address the channel was dialed with.
func (c *Channel) URL() string {
	return c.url
}

// startHeartbeat pings the peer so idle proxies keep the connection open while the
// user completes sign-in in the browser.
func (c *Channel) startHeartbeat() {
	ticker := time.NewTicker(heartbeatInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-c.closed:
				return
			case <-ticker.C:
				c.writeMutex.Lock()
				err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout))
				c.writeMutex.Unlock()
				if err != nil {
					log.Debugf("realtime: heartbeat failed: %v", err)
					return
				}
			}
		}
	}()
}

// Read blocks until the next text or binary frame arrives and returns its payload.
// A close frame from the peer yields an error wrapping io.EOF. When ctx ends first the
// pending read is aborted and ctx.Err() is returned.
func (c *Channel) Read(ctx context.Context) ([]byte, error) {
	select {
	case <-c.closed:
		return nil, errClosed
	default:
	}

	done := cancelReadOnContextDone(ctx, c.conn)
	defer close(done)

	for {
		msgType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if ctx != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil, fmt.Errorf("realtime: channel closed by peer (code %d %s): %w", closeErr.Code, closeErr.Text, io.EOF)
			}
			return nil, fmt.Errorf("realtime: read failed: %w", err)
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return payload, nil
		}
	}
}

// Send writes a text frame.
func (c *Channel) Send(payload []byte) error {
	select {
	case <-c.closed:
		return errClosed
	default:
	}
	c.writeMutex.Lock()
	defer c.writeMutex.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("realtime: set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("realtime: write failed: %w", err)
	}
	return nil
}

// Close sends a normal closure frame and releases the connection. It is safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMutex.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
		c.writeMutex.Unlock()
		err = c.conn.Close()
	})
	return err
}

func cancelReadOnContextDone(ctx context.Context, conn *websocket.Conn) chan struct{} {
	done := make(chan struct{})
	if ctx == nil || conn == nil {
		return done
	}
	go func() {
		select {
		case <-done:
		case <-ctx.Done():
			_ = conn.SetReadDeadline(time.Now())
		}
	}()
	return done
}
