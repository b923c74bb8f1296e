package main

import (
	"log/slog"
	"os"

	"github.com/macwinusb/winusb/cmd/winusb/commands"
)

func main() {
	// Operator output goes to stdout through the prompt UI; logs stay on stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: commands.LogLevel,
	}))
	slog.SetDefault(logger)

	commands.Execute()
}
