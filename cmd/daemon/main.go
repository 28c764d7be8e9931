// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ManuGH/subview/internal/config"
	"github.com/ManuGH/subview/internal/daemon"
	svlog "github.com/ManuGH/subview/internal/log"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("subview", flag.ContinueOnError)
	showVersion := flags.Bool("version", false, "print version and exit")
	configPath := flags.String("config", "", "path to config file (YAML)")
	listen := flags.String("listen", "", "override server.listenAddr")
	envFile := flags.String("env-file", ".env", "optional dotenv file loaded before the environment is read")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	svlog.Configure(svlog.Config{Level: "info", Service: "subview", Version: version})
	logger := svlog.WithComponent("daemon")

	if err := loadEnvFile(*envFile); err != nil {
		logger.Warn().Err(err).Str("path", *envFile).Msg("ignoring unreadable env file")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	if path == "" {
		path = resolveDefaultConfigPath()
	}
	loader := config.NewLoader(path, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(svlog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
		return 1
	}
	if addr := strings.TrimSpace(*listen); addr != "" {
		cfg.Server.ListenAddr = addr
		if err := config.Validate(cfg); err != nil {
			logger.Error().Err(err).Str("listen", addr).Msg("invalid -listen override")
			return 1
		}
	}
	if _, err := svlog.SetLevel(cfg.LogLevel); err != nil {
		logger.Warn().Err(err).Msg("invalid log level, keeping info")
	}

	source := "environment"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(svlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("path", path).
		Str("version", version).
		Str("commit", commit).
		Msg("configuration loaded")

	var holder *config.Holder
	if path != "" {
		holder = config.NewHolder(cfg, loader)
	}

	app, err := daemon.Build(ctx, cfg, holder)
	if err != nil {
		logger.Error().Err(err).Str(svlog.FieldEvent, "daemon.build_failed").Msg("failed to start")
		return 1
	}
	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(svlog.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return 1
	}
	logger.Info().Str(svlog.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return 0
}

// loadEnvFile loads KEY=VALUE pairs from path without overriding the
// process environment. A missing file is not an error.
func loadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
