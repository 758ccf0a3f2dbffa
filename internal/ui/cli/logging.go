package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// configureLogging installs a charm log handler as the slog default. In UI
// mode logs go to a file so they do not corrupt the terminal.
func configureLogging(opts *options) func() {
	level := log.InfoLevel
	switch {
	case opts.verbose:
		level = log.DebugLevel
	case opts.quiet:
		level = log.WarnLevel
	}

	var output io.Writer = opts.stderr
	if output == nil {
		output = os.Stderr
	}
	closeFn := func() {}
	if opts.ui {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			} else {
				output = f
				closeFn = func() { _ = f.Close() }
			}
		}
	}

	handler := log.NewWithOptions(output, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
	slog.SetDefault(slog.New(handler))
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "depgrapher", "depgrapher.log")
	}
	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "depgrapher", "depgrapher.log")
	}
	return "depgrapher.log"
}
