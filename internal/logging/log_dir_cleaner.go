package logging

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const logDirCleanerInterval = time.Minute

var (
	cleanerDir       string
	cleanerMaxBytes  int64
	cleanerProtected string
	cleanerCancel    context.CancelFunc
)

// configureLogDirCleanerLocked records the size limit and prunes once immediately.
// One-shot commands never run long enough to need more than that; watch mode
// starts the periodic loop through StartLogDirCleaner.
func configureLogDirCleanerLocked(logDir string, maxTotalSizeMB int, protectedPath string) {
	stopLogDirCleanerLocked()
	cleanerDir, cleanerMaxBytes, cleanerProtected = "", 0, ""

	if maxTotalSizeMB <= 0 {
		return
	}
	dir := strings.TrimSpace(logDir)
	if dir == "" {
		return
	}
	cleanerDir = filepath.Clean(dir)
	cleanerMaxBytes = int64(maxTotalSizeMB) * 1024 * 1024
	cleanerProtected = strings.TrimSpace(protectedPath)
	pruneLogDir(cleanerDir, cleanerMaxBytes, cleanerProtected)
}

// StartLogDirCleaner keeps enforcing the configured size limit until ctx is done.
// It is a no-op when no limit is configured.
func StartLogDirCleaner(ctx context.Context) {
	writerMu.Lock()
	defer writerMu.Unlock()

	if cleanerDir == "" || cleanerMaxBytes <= 0 {
		return
	}
	stopLogDirCleanerLocked()
	loopCtx, cancel := context.WithCancel(ctx)
	cleanerCancel = cancel
	go runLogDirCleaner(loopCtx, cleanerDir, cleanerMaxBytes, cleanerProtected)
}

func stopLogDirCleanerLocked() {
	if cleanerCancel == nil {
		return
	}
	cleanerCancel()
	cleanerCancel = nil
}

func runLogDirCleaner(ctx context.Context, logDir string, maxBytes int64, protectedPath string) {
	ticker := time.NewTicker(logDirCleanerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneLogDir(logDir, maxBytes, protectedPath)
		}
	}
}

func pruneLogDir(logDir string, maxBytes int64, protectedPath string) {
	deleted, errClean := enforceLogDirSizeLimit(logDir, maxBytes, protectedPath)
	if errClean != nil {
		log.WithError(errClean).Warn("logging: failed to enforce log directory size limit")
		return
	}
	if deleted > 0 {
		log.Debugf("logging: removed %d old log file(s) to enforce log directory size limit", deleted)
	}
}

// enforceLogDirSizeLimit removes the oldest log files until the directory fits in maxBytes.
// protectedPath, usually the active log file, is never removed.
func enforceLogDirSizeLimit(logDir string, maxBytes int64, protectedPath string) (int, error) {
	if maxBytes <= 0 {
		return 0, nil
	}
	dir := strings.TrimSpace(logDir)
	if dir == "" {
		return 0, nil
	}
	dir = filepath.Clean(dir)

	entries, errRead := os.ReadDir(dir)
	if errRead != nil {
		if os.IsNotExist(errRead) {
			return 0, nil
		}
		return 0, errRead
	}

	protected := strings.TrimSpace(protectedPath)
	if protected != "" {
		protected = filepath.Clean(protected)
	}

	type logFile struct {
		path    string
		size    int64
		modTime time.Time
	}

	var (
		files []logFile
		total int64
	)
	for _, entry := range entries {
		if entry.IsDir() || !isLogFileName(entry.Name()) {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, logFile{
			path:    filepath.Join(dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	if total <= maxBytes {
		return 0, nil
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	deleted := 0
	for _, file := range files {
		if total <= maxBytes {
			break
		}
		if protected != "" && filepath.Clean(file.path) == protected {
			continue
		}
		if errRemove := os.Remove(file.path); errRemove != nil {
			log.WithError(errRemove).Warnf("logging: failed to remove old log file: %s", filepath.Base(file.path))
			continue
		}
		total -= file.size
		deleted++
	}
	return deleted, nil
}

func isLogFileName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	// lumberjack backups look like main-2026-10-19T08-00-00.000.log
	return strings.HasSuffix(lower, ".log") || strings.HasSuffix(lower, ".log.gz")
}
