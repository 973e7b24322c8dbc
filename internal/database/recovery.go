// Package database provides corruption recovery for the SQLite data file.
package database

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/gamelens/gamelens/pkg/errors"
	"github.com/gamelens/gamelens/pkg/logger"
)

// corruptionMarkers are substrings of SQLite errors that indicate a damaged
// data or index file rather than a transient failure.
var corruptionMarkers = []string{
	"database disk image is malformed",
	"file is not a database",
	"malformed database schema",
	"fts5: corrupt",
}

// IsCorruptionError reports whether err looks like SQLite file corruption.
func IsCorruptionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range corruptionMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// RecoverCorrupt moves the damaged database file aside with a timestamped
// suffix and re-initializes a fresh database at the same path. Callers retry
// their failed bulk operation once after a successful recovery.
// Returns the path the damaged file was moved to.
func RecoverCorrupt() (string, error) {
	if dbPath == "" {
		return "", errors.New(errors.ErrCodeDBCorrupt, "database not initialized, nothing to recover")
	}
	path := dbPath

	logger.Warn("Database corruption detected, recreating", zap.String("path", path))

	// Close the live connection before touching the file
	if err := Close(); err != nil {
		logger.Warn("Failed to close corrupt database cleanly", zap.Error(err))
	}
	Reset()

	aside := fmt.Sprintf("%s.corrupt.%s", path, time.Now().UTC().Format("20060102150405"))
	if err := renameDBFiles(path, aside); err != nil {
		return "", errors.Wrap(errors.ErrCodeDBCorrupt, "failed to move corrupt database aside", err)
	}

	if err := InitWithPath(path); err != nil {
		return aside, errors.Wrap(errors.ErrCodeDBCorrupt, "failed to recreate database after corruption", err)
	}

	logger.Info("Database recreated after corruption",
		zap.String("path", path),
		zap.String("moved_to", aside),
	)
	return aside, nil
}

// renameDBFiles moves the main database file plus its WAL sidecars.
// Missing sidecars are not an error.
func renameDBFiles(from, to string) error {
	if err := os.Rename(from, to); err != nil {
		return err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Rename(from+suffix, to+suffix); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to move database sidecar", zap.String("file", from+suffix), zap.Error(err))
		}
	}
	return nil
}
