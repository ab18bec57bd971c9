package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ottermq/qhop/config"
)

var (
	VERSION = ""
)

func main() {
	// Load configuration from .env file, environment variables, or defaults
	cfg := config.LoadConfig(VERSION)

	// SIGINT/SIGTERM cancel the running command; a migration in flight stops
	// at its current step and reports how to recover.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newApp(cfg, os.Stdout, os.Stderr).execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
