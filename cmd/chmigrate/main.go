package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/pastorenue/expothesis/internal/cli"
)

func main() {
	// Load .env file if it exists; real env vars win.
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded .env file")
	}

	os.Exit(cli.Execute())
}
