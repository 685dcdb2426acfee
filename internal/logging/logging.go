package logging

import (
	"log/slog"
	"os"

	"github.com/ppiankov/leakspectre/internal/scanner"
)

// Init configures the process-wide logger. Warnings and errors only by
// default; verbose enables debug output.
func Init(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// Token returns a log attribute carrying a redacted token value. Candidate
// secrets must never reach log output in full.
func Token(value string) slog.Attr {
	return slog.String("token", scanner.Redact(value))
}
