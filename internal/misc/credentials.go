package misc

import (
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Separator used to visually group related log lines.
var credentialSeparator = strings.Repeat("-", 67)

// LogSavingCredentials emits a consistent log message when persisting auth material.
func LogSavingCredentials(location string) {
	if location == "" {
		return
	}
	if strings.Contains(location, "://") {
		log.Debugf("Saving credentials to %s", location)
		return
	}
	log.Debugf("Saving credentials to %s", filepath.Clean(location))
}

// LogCredentialSeparator adds a visual separator to group auth processing logs.
func LogCredentialSeparator() {
	log.Debug(credentialSeparator)
}

// MaskToken shortens a secret for logs, keeping only the first and last four characters.
func MaskToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:4] + "..." + token[len(token)-4:]
}
