package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/faf/internal"
)

var version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "faf",
		Usage:   "Score project context and keep project.faf and CLAUDE.md in sync",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   internal.DefaultConfigFile,
				Sources: cli.EnvVars("FAF_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "Project directory",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Commands: []*cli.Command{
			initCommand(),
			scoreCommand(),
			validateCommand(),
			syncCommand(),
			lintCommand(),
			convertCommand(),
			historyCommand(),
			serveCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("faf error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
