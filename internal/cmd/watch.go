package cmd

import (
	"context"
	"fmt"

	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/logging"
	"github.com/videocom/videocom-share/internal/tui"
	"github.com/videocom/videocom-share/internal/upload"
	"github.com/videocom/videocom-share/internal/watcher"
)

// DoWatch uploads recordings as they appear in dir until ctx is cancelled. Sign-in happens
// up front so the first recording does not wait on the browser.
func DoWatch(ctx context.Context, cfg *config.Config, dir string, options *Options) error {
	if options == nil {
		options = &Options{}
	}
	sess, err := newSession(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer sess.Close()

	if err = sess.auth.Authenticate(logging.WithRequestID(ctx, logging.GenerateRequestID())); err != nil {
		return err
	}

	w, err := watcher.New(watcher.Options{
		Dir:        dir,
		Extensions: cfg.WatchExtensions,
		Handler: func(ctx context.Context, path string) error {
			result, errUpload := sess.upload(ctx, upload.Request{Path: path, Format: options.Format})
			if errUpload != nil {
				return errUpload
			}
			_, _ = fmt.Fprintln(sess.progress, tui.RenderLink(result.Link))
			return nil
		},
	})
	if err != nil {
		return err
	}

	logging.StartLogDirCleaner(ctx)
	_, _ = fmt.Fprintf(sess.progress, "Watching %s for new recordings (Ctrl+C to stop)\n", dir)
	return w.Run(ctx)
}
