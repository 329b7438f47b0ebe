package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/videocom/videocom-share/internal/config"
	"github.com/videocom/videocom-share/internal/tui"
)

// DoStatus prints the stored credential state without contacting the cloud host.
func DoStatus(ctx context.Context, cfg *config.Config, options *Options) error {
	sess, err := newSession(ctx, cfg, options)
	if err != nil {
		return err
	}
	defer sess.Close()

	now := time.Now()
	report := sess.auth.Status(now)
	sess.progress.Close()
	_, _ = fmt.Fprint(sess.out, tui.RenderStatus(tui.StatusView{
		Host:      report.Host,
		State:     report.State.String(),
		Store:     sess.store.location,
		HasExpiry: report.HasExpiry,
		Expiry:    report.Expiry,
		Now:       now,
	}))
	return nil
}
