// Package browser opens sign-in pages in the user's default web browser.
package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// ErrDisabled is returned by a Launcher that was told not to open a browser.
var ErrDisabled = errors.New("browser: launching disabled")

var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// Launcher opens URLs. The zero value launches the system browser.
type Launcher struct {
	// Disabled makes Open return ErrDisabled without touching the system.
	Disabled bool

	run func(url string) error
}

// New returns a Launcher; noBrowser disables launching.
func New(noBrowser bool) *Launcher {
	return &Launcher{Disabled: noBrowser}
}

// Open opens url, trying open-golang first and platform commands second.
func (l *Launcher) Open(url string) error {
	if l == nil || l.Disabled {
		return ErrDisabled
	}
	if l.run != nil {
		return l.run(url)
	}

	err := open.Run(url)
	if err == nil {
		log.Debug("browser: opened URL using open-golang")
		return nil
	}
	log.Debugf("browser: open-golang failed: %v, trying platform-specific commands", err)
	return openURLPlatformSpecific(url)
}

func openURLPlatformSpecific(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "linux":
		for _, browser := range linuxBrowsers {
			if _, err := exec.LookPath(browser); err == nil {
				cmd = exec.Command(browser, url)
				break
			}
		}
		if cmd == nil {
			return fmt.Errorf("browser: no suitable browser found on Linux system")
		}
	default:
		return fmt.Errorf("browser: unsupported operating system: %s", runtime.GOOS)
	}

	log.Debugf("browser: running command: %s %v", cmd.Path, cmd.Args[1:])
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: failed to start browser command: %w", err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}
