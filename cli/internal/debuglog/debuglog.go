// ABOUTME: Debug log file for the terminal client
// ABOUTME: Sends slog output to a file so it never draws over the terminal UI

package debuglog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/markalston/artfolio-web/logger"
)

// FileName is the log file created inside the config dir.
const FileName = "debug.log"

// Init points the default slog logger at dir/debug.log, at LOG_LEVEL
// (default info). With an empty dir, logging is discarded. The returned
// func closes the file and restores the previous logger.
func Init(dir string) (func(), error) {
	prev := slog.Default()
	restore := func() { slog.SetDefault(prev) }

	if dir == "" {
		slog.SetDefault(logger.New(io.Discard, "error", "text"))
		return restore, nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return restore, fmt.Errorf("failed to create log dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, FileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return restore, fmt.Errorf("failed to open debug log: %w", err)
	}
	slog.SetDefault(logger.New(f, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")).With("app", "artfolio"))

	return func() {
		restore()
		f.Close()
	}, nil
}
