package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/logging"
)

// DoLogin makes sure a usable credential is stored, refreshing or signing in as needed.
func DoLogin(ctx context.Context, cfg *config.Config, options *Options) error {
	sess, err := newSession(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx = logging.WithRequestID(ctx, logging.GenerateRequestID())
	if err = sess.auth.Authenticate(ctx); err != nil {
		log.Errorf("VideoCom authentication failed: %v", err)
		return err
	}
	sess.progress.Close()
	_, _ = fmt.Fprintf(sess.out, "Signed in to %s\n", sess.auth.Host())
	return nil
}

// DoLogout removes the stored credential.
func DoLogout(ctx context.Context, cfg *config.Config, options *Options) error {
	sess, err := newSession(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer sess.Close()

	host := sess.auth.Host()
	if err = sess.auth.SignOut(); err != nil {
		return err
	}
	sess.progress.Close()
	_, _ = fmt.Fprintf(sess.out, "Signed out of %s\n", host)
	return nil
}
