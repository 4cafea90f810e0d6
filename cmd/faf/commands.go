package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/starford/faf/internal"
	"github.com/starford/faf/internal/apperr"
	"github.com/starford/faf/internal/display"
	"github.com/starford/faf/internal/mirror"
	"github.com/starford/faf/internal/project"
	"github.com/starford/faf/internal/storage"
)

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a starter project.faf and its CLAUDE.md mirror",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing project.faf"},
			&cli.StringFlag{Name: "name", Usage: "Project name (defaults to the directory name)"},
			&cli.StringFlag{Name: "goal", Usage: "One-line project goal"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			attachDisplay(app, false, false)

			res, err := app.Service.Init(ctx, project.InitOptions{
				Name:  cmd.String("name"),
				Goal:  cmd.String("goal"),
				Force: cmd.Bool("force"),
			})
			if errors.Is(err, apperr.ErrAlreadyExists) {
				return cli.Exit(err.Error()+" (use --force to overwrite)", 1)
			}
			if err != nil {
				return err
			}
			return syncExit(res)
		},
	}
}

func scoreCommand() *cli.Command {
	return &cli.Command{
		Name:  "score",
		Usage: "Show the completeness score",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "details", Usage: "Show the per-section breakdown"},
			&cli.IntFlag{Name: "minimum", Usage: "Exit with status 1 below this score (overrides score.minimum)"},
			&cli.BoolFlag{Name: "write", Usage: "Write the score back into project.faf"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()

			score := app.Service.Score
			if cmd.Bool("write") {
				score = app.Service.WriteScore
			}
			res, err := score(ctx)
			if err != nil {
				return notFoundHint(err)
			}

			if cmd.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(res); err != nil {
					return err
				}
			} else {
				fmt.Println(display.RenderScore(res, cmd.Bool("details")))
			}

			minimum := app.Config.Score.Minimum
			if cmd.IsSet("minimum") {
				minimum = int(cmd.Int("minimum"))
			}
			if minimum > 0 && res.TotalScore < minimum {
				return cli.Exit(fmt.Sprintf("%s: %d%% < %d%%", apperr.ErrBelowThreshold, res.TotalScore, minimum), 1)
			}
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Check project.faf against the document rules",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, false, internal.WithoutHistory())
			if err != nil {
				return err
			}
			defer app.Close()

			err = app.Service.Validate(ctx)
			var verr *apperr.ValidationError
			switch {
			case err == nil:
				structured, _ := app.Service.Files()
				fmt.Printf("✓ %s is valid\n", structured)
				return nil
			case errors.As(err, &verr):
				fmt.Print(display.RenderIssues(verr.Issues))
				return cli.Exit(fmt.Sprintf("%d validation issue(s)", len(verr.Issues)), 1)
			default:
				return notFoundHint(err)
			}
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Mirror project.faf and CLAUDE.md in whichever direction is needed",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "auto", Usage: "Quiet mode for hooks: no progress output"},
			&cli.BoolFlag{Name: "dry-run", Usage: "Report what would change without writing"},
			&cli.BoolFlag{Name: "watch", Usage: "Keep running and re-sync on file changes"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Show every sync step"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()
			quiet := cmd.Bool("auto")
			attachDisplay(app, quiet, cmd.Bool("verbose"))

			res := app.Service.Sync(ctx, cmd.Bool("dry-run"))
			if cmd.Bool("dry-run") {
				if !quiet {
					fmt.Print(display.RenderSync(res))
				}
				return syncExit(res)
			}
			if !cmd.Bool("watch") {
				return syncExit(res)
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			structured, readable := app.Service.Files()
			if !quiet {
				fmt.Printf("watching %s and %s (ctrl-c to stop)\n", structured, readable)
			}
			if err := app.Watch(ctx, nil); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}

func lintCommand() *cli.Command {
	return &cli.Command{
		Name:  "lint",
		Usage: "Report formatting problems in project.faf",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "fix", Usage: "Rewrite fixable problems in place"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, false, internal.WithoutHistory())
			if err != nil {
				return err
			}
			defer app.Close()

			findings, fixed, err := app.Service.Lint(ctx, cmd.Bool("fix"))
			if err != nil {
				return notFoundHint(err)
			}
			structured, _ := app.Service.Files()
			if fixed {
				fmt.Printf("✓ rewrote %s\n", structured)
			}
			if len(findings) == 0 {
				fmt.Printf("✓ %s is clean\n", structured)
				return nil
			}
			fmt.Print(display.RenderFindings(structured, findings))
			return cli.Exit(fmt.Sprintf("%d lint finding(s)", len(findings)), 1)
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Render project.faf as Markdown or plain text without syncing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "md", Usage: "Output format: md or text"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, false, internal.WithoutHistory())
			if err != nil {
				return err
			}
			defer app.Close()

			var out string
			switch cmd.String("format") {
			case "md", "markdown":
				out, err = app.Service.Readable(ctx)
			case "text", "txt":
				out, err = app.Service.Text(ctx)
			default:
				return cli.Exit(fmt.Sprintf("unknown format %q (want md or text)", cmd.String("format")), 1)
			}
			if err != nil {
				return notFoundHint(err)
			}

			path := cmd.String("output")
			if path == "" {
				fmt.Print(out)
				return nil
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			store, err := storage.NewFS(filepath.Dir(abs))
			if err != nil {
				return err
			}
			if err := store.Write(filepath.Base(abs), []byte(out)); err != nil {
				return err
			}
			fmt.Printf("✓ wrote %s\n", path)
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recent scores for this project",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Number of entries"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()

			entries, err := app.Service.History(ctx, int(cmd.Int("limit")))
			if errors.Is(err, project.ErrHistoryDisabled) {
				return cli.Exit("score history is disabled (history.path: off)", 1)
			}
			if err != nil {
				return err
			}
			fmt.Print(display.RenderHistory(entries))
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with a live event stream and file watcher",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "HTTP port (overrides app.http.port)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer app.Close()
			if cmd.IsSet("port") {
				app.Config.App.HTTP.Port = int(cmd.Int("port"))
			}
			if err := app.Serve(ctx); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			app, err := openApp(cmd, true)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.ServeMCP(version)
		},
	}
}

// syncExit turns a failed sync into exit status 1.
func syncExit(res mirror.Result) error {
	if res.Success {
		return nil
	}
	return cli.Exit("sync failed: "+res.Error, 1)
}

func notFoundHint(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return cli.Exit(err.Error()+" (run `faf init` first)", 1)
	}
	return err
}
