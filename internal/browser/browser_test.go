package browser

import (
	"errors"
	"testing"
)

func TestDisabledLauncher(t *testing.T) {
	for _, l := range []*Launcher{nil, New(true)} {
		if err := l.Open("https://cloud.videocom.com/auth"); !errors.Is(err, ErrDisabled) {
			t.Fatalf("Open() error = %v, want ErrDisabled", err)
		}
	}
}

func TestLauncherUsesRunner(t *testing.T) {
	var opened string
	l := &Launcher{run: func(url string) error {
		opened = url
		return nil
	}}
	if err := l.Open("https://cloud.videocom.com/auth?handshake_code=abc"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if opened != "https://cloud.videocom.com/auth?handshake_code=abc" {
		t.Fatalf("opened = %q", opened)
	}
}
