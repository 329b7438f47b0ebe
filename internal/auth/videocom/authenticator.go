// Package videocom implements sign-in and token maintenance for a VideoCom cloud host.
//
// Authenticate chooses exactly one of three branches from the stored credential:
// refresh an expired token through the refresh-extend and refresh endpoints, reuse a
// stored access token, or run the interactive realtime handshake that hands the user to
// the browser. The credential is written to the store in a single write, and only when
// the chosen branch succeeds.
package videocom

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/videocom/videocom-share/internal/logging"
	"github.com/videocom/videocom-share/internal/misc"
	"github.com/videocom/videocom-share/internal/store"
	"golang.org/x/sync/singleflight"
)

// indeterminate marks a progress update without a known fraction.
const indeterminate = -1

// Channel is an open realtime connection.
type Channel interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// DialFunc opens a realtime channel to url.
type DialFunc func(ctx context.Context, url string) (Channel, error)

// Browser opens a URL for the user.
type Browser interface {
	Open(url string) error
}

// ProgressSink receives user-facing progress. A negative fraction means indeterminate.
type ProgressSink interface {
	SetProgress(text string, fraction float64)
}

// Options wires an Authenticator to its collaborators.
type Options struct {
	Store            store.Store
	HTTPClient       Doer
	Dial             DialFunc
	Browser          Browser
	Progress         ProgressSink
	HandshakeTimeout time.Duration
	// Output receives the sign-in URL when the browser cannot be opened. Defaults to stdout.
	Output io.Writer
	Now    func() time.Time
}

// Authenticator resolves a usable access token for one cloud host.
type Authenticator struct {
	store            store.Store
	client           *tokenClient
	dial             DialFunc
	browser          Browser
	progress         ProgressSink
	handshakeTimeout time.Duration
	out              io.Writer
	now              func() time.Time
	flight           singleflight.Group
}

// NewAuthenticator builds an Authenticator from opts.
func NewAuthenticator(opts Options) *Authenticator {
	a := &Authenticator{
		store:            opts.Store,
		client:           &tokenClient{doer: opts.HTTPClient},
		dial:             opts.Dial,
		browser:          opts.Browser,
		progress:         opts.Progress,
		handshakeTimeout: opts.HandshakeTimeout,
		out:              opts.Output,
		now:              opts.Now,
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Authenticate ensures the store holds a usable access token. Concurrent callers share one
// attempt. On failure the stored credential is left exactly as it was.
func (a *Authenticator) Authenticate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, err, _ := a.flight.Do("authenticate", func() (any, error) {
		return nil, a.authenticate(ctx)
	})
	return err
}

func (a *Authenticator) authenticate(ctx context.Context) error {
	host := store.CloudHost(a.store)
	state := ResolveState(a.store, a.now())
	entry := logging.Entry(ctx).WithField("host", host).WithField("state", state.String())

	switch state {
	case ExpiredCredential:
		entry.Debug("videocom: access token expired, refreshing")
		cred, err := a.refresh(ctx, host)
		if err != nil {
			return err
		}
		if err = a.save(cred); err != nil {
			return err
		}
		entry.Infof("videocom: token refreshed, valid until %s", time.UnixMilli(cred.ExpiryDate).Format(time.RFC3339))
		return nil
	case ValidCredential:
		entry.Debug("videocom: reusing stored access token")
		return nil
	default:
		entry.Debug("videocom: no credential stored, starting interactive sign-in")
		cred, err := a.signIn(ctx, host)
		if err != nil {
			return err
		}
		a.setProgress(ProgressAuthenticated, indeterminate)
		if err = a.save(cred); err != nil {
			return err
		}
		entry.Info("videocom: signed in")
		return nil
	}
}

// refresh runs the two-step exchange. The second step always uses the token rotated by the first.
func (a *Authenticator) refresh(ctx context.Context, host string) (Credential, error) {
	extended, err := a.client.refreshExtend(ctx, host, store.String(a.store, store.KeyRefreshToken))
	if err != nil {
		return Credential{}, err
	}
	rotated, err := a.client.refresh(ctx, host, extended.RefreshToken)
	if err != nil {
		return Credential{}, err
	}
	return Credential{
		AccessToken:  rotated.JWT,
		RefreshToken: extended.RefreshToken,
		ExpiryDate:   extended.ExpiresAt,
	}, nil
}

func (a *Authenticator) save(cred Credential) error {
	misc.LogCredentialSeparator()
	if err := a.store.SetMany(cred.values()); err != nil {
		return fmt.Errorf("videocom: save credential: %w", err)
	}
	return nil
}

// AccessToken returns the stored bearer token.
func (a *Authenticator) AccessToken() string {
	return strings.TrimSpace(store.String(a.store, store.KeyAccessToken))
}

// Host returns the cloud host the Authenticator signs in to.
func (a *Authenticator) Host() string {
	return store.CloudHost(a.store)
}

// Status describes the stored credential as of now.
func (a *Authenticator) Status(now time.Time) StatusReport {
	report := StatusReport{
		State: ResolveState(a.store, now),
		Host:  store.CloudHost(a.store),
	}
	if expiry, ok := store.Int64(a.store, store.KeyTokenExpiryDate); ok {
		report.HasExpiry = true
		report.Expiry = time.UnixMilli(expiry)
	}
	return report
}

// SignOut removes the stored credential. The cloud host setting is kept.
func (a *Authenticator) SignOut() error {
	if err := a.store.Delete(store.CredentialKeys...); err != nil {
		return fmt.Errorf("videocom: sign out: %w", err)
	}
	return nil
}

func (a *Authenticator) setProgress(text string, fraction float64) {
	if a.progress != nil {
		a.progress.SetProgress(text, fraction)
	}
}
