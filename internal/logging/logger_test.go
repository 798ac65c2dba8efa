package logging_test

import (
	"path/filepath"
	"testing"

	"github.com/atlas-desktop/trading-backend/internal/logging"
)

func TestNewWritesToConfiguredPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trading.log")

	logger, err := logging.New(logging.Config{Path: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer logger.Sync()

	logger.Info("hello")
	logger.Debug("debug line")
}

func TestNewDefaultsPath(t *testing.T) {
	// An empty path falls back to logging.DefaultLogPath. This only checks
	// that the default is non-empty; it does not call New, which would
	// create the log file in the working directory.
	if logging.DefaultLogPath == "" {
		t.Fatalf("expected a non-empty default log path")
	}
}
