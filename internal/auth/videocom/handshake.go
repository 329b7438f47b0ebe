package videocom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/tidwall/gjson"
	"github.com/videocom/videocom-share/internal/logging"
)

const handshakePath = "/api/realtime/auth-handshake"

// Progress messages shown during interactive sign-in.
const (
	ProgressSocketOpen     = "Socket Connection established..."
	ProgressOpeningBrowser = "Opening Browser for authentication..."
	ProgressAuthenticated  = "Authentication Successful!"
)

// HandshakeURL returns the realtime sign-in endpoint for host.
func HandshakeURL(host string) string {
	return "wss://" + host + handshakePath
}

// SignInURL returns the browser page that approves the handshake identified by code.
func SignInURL(host, code string) string {
	return fmt.Sprintf("https://%s/auth?referrer=vpt&handshake_code=%s", host, url.QueryEscape(code))
}

// signIn runs the realtime handshake and returns the credential carried by the terminal message.
func (a *Authenticator) signIn(ctx context.Context, host string) (Credential, error) {
	const op = "auth handshake"

	hsCtx := ctx
	if a.handshakeTimeout > 0 {
		var cancel context.CancelFunc
		hsCtx, cancel = context.WithTimeout(ctx, a.handshakeTimeout)
		defer cancel()
	}

	ch, err := a.dial(hsCtx, HandshakeURL(host))
	if err != nil {
		if errCtx := a.handshakeContextErr(ctx, hsCtx); errCtx != nil {
			return Credential{}, &HandshakeError{Op: op, Err: errCtx}
		}
		return Credential{}, &NetworkError{Op: op, Err: err}
	}
	defer func() {
		if errClose := ch.Close(); errClose != nil {
			logging.Entry(ctx).Debugf("videocom: close handshake channel: %v", errClose)
		}
	}()

	a.setProgress(ProgressSocketOpen, indeterminate)

	for {
		payload, errRead := ch.Read(hsCtx)
		if errRead != nil {
			if errCtx := a.handshakeContextErr(ctx, hsCtx); errCtx != nil {
				return Credential{}, &HandshakeError{Op: op, Err: errCtx}
			}
			if errors.Is(errRead, io.EOF) {
				return Credential{}, &HandshakeError{Op: op, Err: fmt.Errorf("channel closed before sign-in completed: %w", errRead)}
			}
			return Credential{}, &NetworkError{Op: op, Err: errRead}
		}

		if !gjson.ValidBytes(payload) {
			_ = ch.Close()
			return Credential{}, &ParseError{Op: op, Err: fmt.Errorf("invalid message %q", truncate(payload, 64))}
		}

		msg := gjson.ParseBytes(payload)
		if code := msg.Get("handshake_id"); code.Exists() && code.String() != "" {
			a.setProgress(ProgressOpeningBrowser, indeterminate)
			a.launch(ctx, SignInURL(host, code.String()))
			continue
		}
		if msg.Get("type").String() != "auth" {
			logging.Entry(ctx).Debug("videocom: ignoring handshake message")
			continue
		}

		received := a.now()
		_ = ch.Close()

		var auth HandshakeAuth
		if err = json.Unmarshal(payload, &auth); err != nil {
			return Credential{}, &ParseError{Op: op, Err: err}
		}
		if auth.JWT == "" {
			return Credential{}, &AuthError{Op: op, Reason: "terminal message carries no jwt"}
		}
		if auth.RefreshToken == "" {
			return Credential{}, &AuthError{Op: op, Reason: "terminal message carries no refresh_token"}
		}
		return Credential{
			AccessToken:  auth.JWT,
			RefreshToken: auth.RefreshToken,
			ExpiryDate:   received.Add(SessionLifetime).UnixMilli(),
		}, nil
	}
}

// handshakeContextErr reports why hsCtx ended, distinguishing caller cancellation from
// the sign-in timeout.
func (a *Authenticator) handshakeContextErr(parent, hsCtx context.Context) error {
	if hsCtx.Err() == nil {
		return nil
	}
	if errParent := parent.Err(); errParent != nil {
		return errParent
	}
	return fmt.Errorf("sign-in not completed within %s: %w", a.handshakeTimeout, context.DeadlineExceeded)
}

// launch opens the sign-in page, printing it when no browser can be used.
func (a *Authenticator) launch(ctx context.Context, signInURL string) {
	if a.browser != nil {
		err := a.browser.Open(signInURL)
		if err == nil {
			return
		}
		logging.Entry(ctx).Debugf("videocom: could not open browser: %v", err)
	}
	_, _ = fmt.Fprintf(a.out, "To authenticate, please visit:\n%s\n", signInURL)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
