package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/faf/internal"
	"github.com/starford/faf/internal/display"
)

// loadConfig reads the optional config file and applies the global flags.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg, err := internal.LoadConfig(cmd.String("config"), cmd.IsSet("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		if err := cfg.App.LogLevel.UnmarshalText([]byte(lvl)); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return cfg, nil
}

// openApp builds the application for the --dir project. Servers log JSON;
// everything else logs text to stderr so stdout stays clean.
func openApp(cmd *cli.Command, jsonLogs bool, extra ...internal.Option) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(os.Stderr, cfg.App.LogLevel, jsonLogs)
	slog.SetDefault(logger)

	opts := append([]internal.Option{
		internal.WithConfig(cfg),
		internal.WithRoot(cmd.String("dir")),
		internal.WithLogger(logger),
	}, extra...)
	return internal.New(opts...)
}

// attachDisplay prints bus events to stdout unless quiet is set.
func attachDisplay(app *internal.App, quiet, verbose bool) {
	if quiet {
		return
	}
	display.NewListener(os.Stdout, display.ColorEnabled(os.Stdout), verbose).Attach(app.Bus)
}
