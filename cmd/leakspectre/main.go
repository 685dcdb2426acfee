package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/ppiankov/leakspectre/internal/commands"
	"github.com/ppiankov/leakspectre/internal/engine"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := commands.Execute(version, commit, date); err != nil {
		slog.Warn("Command failed", "error", err)
		if errors.Is(err, engine.ErrAborted) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
