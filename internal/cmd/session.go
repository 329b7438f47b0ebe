package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/videocom/videocom-share/internal/auth/videocom"
	"github.com/videocom/videocom-share/internal/browser"
	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/realtime"
	"github.com/videocom/videocom-share/internal/store"
	"github.com/videocom/videocom-share/internal/tui"
	"github.com/videocom/videocom-share/internal/upload"
	"github.com/videocom/videocom-share/internal/util"
)

// Options holds command-line options shared by every command.
type Options struct {
	// NoBrowser prints the sign-in URL instead of opening it.
	NoBrowser bool
	// Title overrides the media title of a single upload.
	Title string
	// Format overrides the extension sent to the upload endpoint.
	Format string
	// Out receives user-facing output. Defaults to stdout.
	Out io.Writer
}

// session bundles the collaborators a command needs.
type session struct {
	cfg      *config.Config
	store    *openedStore
	progress *tui.Progress
	out      io.Writer
	auth     *videocom.Authenticator
	uploader *upload.Uploader
}

func newSession(ctx context.Context, cfg *config.Config, options *Options) (*session, error) {
	if options == nil {
		options = &Options{}
	}
	out := options.Out
	if out == nil {
		out = os.Stdout
	}

	opened, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err = store.EnsureDefault(opened, store.KeyCloudHost, config.NormalizeHost(cfg.CloudHost)); err != nil {
		opened.close()
		return nil, fmt.Errorf("failed to record cloud host: %w", err)
	}

	progress := tui.NewProgress(out)
	dialer := realtime.NewDialer(&cfg.SDKConfig)
	apiClient := util.NewAPIClient(cfg)

	auth := videocom.NewAuthenticator(videocom.Options{
		Store:      opened,
		HTTPClient: apiClient,
		Dial: func(ctx context.Context, url string) (videocom.Channel, error) {
			ch, errDial := dialer.Dial(ctx, url)
			if errDial != nil {
				return nil, errDial
			}
			return ch, nil
		},
		Browser:          browser.New(options.NoBrowser),
		Progress:         progress,
		HandshakeTimeout: cfg.HandshakeTimeoutDuration(),
		Output:           progress,
	})

	uploader := upload.NewUploader(upload.Options{
		Auth:           auth,
		APIClient:      apiClient,
		TransferClient: util.NewTransferClient(cfg),
		Progress:       progress,
		Clipboard:      tui.Clipboard{Out: progress},
		Notifier:       tui.Notifier{Out: progress},
	})

	return &session{
		cfg:      cfg,
		store:    opened,
		progress: progress,
		out:      out,
		auth:     auth,
		uploader: uploader,
	}, nil
}

func (s *session) Close() {
	s.progress.Close()
	s.store.close()
}

// isAuthFailure reports whether err came from authentication rather than the upload itself.
func isAuthFailure(err error) bool {
	var (
		netErr   *videocom.NetworkError
		parseErr *videocom.ParseError
		hsErr    *videocom.HandshakeError
		authErr  *videocom.AuthError
	)
	return errors.As(err, &netErr) || errors.As(err, &parseErr) || errors.As(err, &hsErr) || errors.As(err, &authErr)
}
