package cmd

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/logging"
	"github.com/videocom/videocom-share/internal/tui"
	"github.com/videocom/videocom-share/internal/upload"
)

// DoUpload publishes each file in paths, one after another. An authentication failure stops
// the run; other failures are reported and the remaining files are still attempted.
func DoUpload(ctx context.Context, cfg *config.Config, paths []string, options *Options) error {
	if len(paths) == 0 {
		return errors.New("no files to upload")
	}
	if options == nil {
		options = &Options{}
	}
	if options.Title != "" && len(paths) > 1 {
		return errors.New("-title can only be used with a single file")
	}

	sess, err := newSession(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer sess.Close()

	var errs []error
	for _, path := range paths {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		result, errUpload := sess.upload(ctx, upload.Request{Path: path, Title: options.Title, Format: options.Format})
		if errUpload != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, errUpload))
			if isAuthFailure(errUpload) {
				break
			}
			continue
		}
		_, _ = fmt.Fprintln(sess.progress, tui.RenderLink(result.Link))
	}
	return errors.Join(errs...)
}

// upload runs one upload under its own request id.
func (s *session) upload(ctx context.Context, req upload.Request) (*upload.Result, error) {
	ctx = logging.WithRequestID(ctx, logging.GenerateRequestID())
	entry := logging.Entry(ctx).WithField("file", req.Path)
	entry.Debug("upload started")
	result, err := s.uploader.Upload(ctx, req)
	if err != nil {
		entry.WithField("error", err.Error()).Error("upload failed")
		_, _ = fmt.Fprintln(s.progress, tui.RenderError(err))
		return nil, err
	}
	entry.WithField("file_id", result.FileID).Info("upload published")
	log.Debugf("share link: %s", result.Link)
	return result, nil
}
