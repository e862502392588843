package main

import (
	"fmt"
	"os"

	"github.com/dvloznov/billed/internal/cli"
	"github.com/dvloznov/billed/internal/config"
	"github.com/dvloznov/billed/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// stdout carries command output; logs go to stderr.
	log := logger.NewConsole(os.Stderr).With().Str("cmd", "billctl").Logger()
	return cli.NewApp(cfg, log, os.Stdout, nil).Execute()
}
