package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"
)

// Notifier prints user notices.
type Notifier struct {
	Out io.Writer
}

// Notify prints text as a success notice.
func (n Notifier) Notify(text string) {
	_, _ = fmt.Fprintln(n.Out, successStyle.Render("✔ "+text))
}

// Clipboard copies text to the system clipboard. When no clipboard is available the text is
// printed instead so the link is never lost.
type Clipboard struct {
	Out io.Writer
}

// WriteAll copies text to the clipboard.
func (c Clipboard) WriteAll(text string) error {
	if clipboard.Unsupported {
		log.Warn("tui: no clipboard utility available")
		c.printFallback(text)
		return nil
	}
	if err := clipboard.WriteAll(text); err != nil {
		log.Warnf("tui: clipboard write failed: %v", err)
		c.printFallback(text)
	}
	return nil
}

func (c Clipboard) printFallback(text string) {
	_, _ = fmt.Fprintf(c.Out, "%s %s\n", helpStyle.Render("Copy this link:"), linkStyle.Render(text))
}

// StatusView is the data rendered by RenderStatus.
type StatusView struct {
	Host      string
	State     string
	Store     string
	HasExpiry bool
	Expiry    time.Time
	Now       time.Time
}

// RenderStatus formats the stored credential summary.
func RenderStatus(v StatusView) string {
	row := func(label, value string) string {
		return labelStyle.Render(label) + value + "\n"
	}
	out := row("Cloud host", valueStyle.Render(v.Host))
	out += row("Credential", stateStyle(v.State).Render(v.State))
	if v.HasExpiry {
		expiry := v.Expiry.Local().Format(time.RFC1123)
		if v.Expiry.After(v.Now) {
			expiry += helpStyle.Render(fmt.Sprintf(" (in %s)", v.Expiry.Sub(v.Now).Round(time.Minute)))
		}
		out += row("Expires", valueStyle.Render(expiry))
	}
	if v.Store != "" {
		out += row("Stored in", helpStyle.Render(v.Store))
	}
	return out
}

// RenderLink formats a published link line.
func RenderLink(link string) string {
	return linkStyle.Render(link)
}

// RenderError formats a failure line.
func RenderError(err error) string {
	return errorStyle.Render("✘ " + err.Error())
}
