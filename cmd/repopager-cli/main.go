// Command repopager-cli runs a repository search locally and prints the
// result pages.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	_ "modernc.org/sqlite"

	"github.com/ryanbastic/go-repopager/internal/github"
	"github.com/ryanbastic/go-repopager/internal/paging"
	"github.com/ryanbastic/go-repopager/internal/repo"
	"github.com/ryanbastic/go-repopager/internal/reposearch"
	"github.com/ryanbastic/go-repopager/internal/session"
	"github.com/ryanbastic/go-repopager/internal/storage"
)

// CLI defines the command-line interface.
var CLI struct {
	LogLevel string `name:"log-level" help:"Log level" enum:"debug,info,warn,error" default:"warn"`

	Search  SearchCmd  `cmd:"" help:"Search GitHub repositories and print result pages"`
	Migrate MigrateCmd `cmd:"" help:"Apply SQLite migrations"`
}

// SearchCmd runs the full paging pipeline for one query.
type SearchCmd struct {
	Query    string        `arg:"" help:"Search query"`
	Pages    int           `name:"pages" short:"n" help:"Number of pages to print" default:"3"`
	PageSize int           `name:"page-size" help:"Repos per network page" default:"50"`
	Store    string        `name:"store" help:"Local store" enum:"sqlite,memory" default:"sqlite"`
	DB       string        `name:"db" help:"SQLite database path" default:"repopager.db" type:"path"`
	BaseURL  string        `name:"github-url" help:"GitHub API base URL" env:"GITHUB_BASE_URL"`
	Token    string        `name:"token" help:"GitHub token" env:"GITHUB_TOKEN"`
	Timeout  time.Duration `name:"timeout" help:"GitHub request timeout" default:"10s"`
}

// MigrateCmd applies the embedded SQLite migrations.
type MigrateCmd struct {
	DB string `name:"db" help:"SQLite database path" default:"repopager.db" type:"path"`
}

func (c *SearchCmd) Run(ctx context.Context, logger *slog.Logger, out io.Writer) error {
	if c.Pages <= 0 || c.PageSize <= 0 {
		return fmt.Errorf("--pages and --page-size must be positive")
	}

	var store storage.Store
	switch c.Store {
	case "memory":
		store = storage.NewMemoryStore()
	default:
		s, err := storage.OpenSQLite(ctx, c.DB, 5*time.Second)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer s.Close()
		store = s
	}

	client, err := github.NewClient(github.Config{
		BaseURL: c.BaseURL,
		Token:   c.Token,
		Timeout: c.Timeout,
	}, logger)
	if err != nil {
		return fmt.Errorf("create github client: %w", err)
	}

	sessions := session.NewManager(reposearch.NewRepository(store, client, c.PageSize, logger), logger)
	defer sessions.Close()
	return printPages(ctx, out, sessions.Stream(c.Query), c.Pages)
}

func (c *MigrateCmd) Run(ctx context.Context, logger *slog.Logger, out io.Writer) error {
	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db, storage.DialectSQLite); err != nil {
		return err
	}
	logger.Info("migrations complete", "db", c.DB)
	fmt.Fprintf(out, "migrated %s\n", c.DB)
	return nil
}

// printPages prints up to limit pages of stream with star bucket
// separators.
func printPages(ctx context.Context, out io.Writer, stream *paging.Pager[repo.Repo], limit int) error {
	var prev *repo.Repo
	n := 0
	for page, err := range stream.Pages(ctx) {
		if err != nil {
			return err
		}
		if len(page.Data) == 0 {
			continue
		}
		n++
		fmt.Fprintf(out, "# page %d (%d repos)\n", n, len(page.Data))

		rows := session.InsertSeparators(page.Data)
		// A page continuing the previous bucket needs no header.
		if prev != nil && prev.RoundedStars() <= page.Data[0].RoundedStars() {
			rows = rows[1:]
		}
		for _, row := range rows {
			if row.IsSeparator() {
				fmt.Fprintf(out, "== %s ==\n", row.Separator)
				continue
			}
			fmt.Fprintln(out, formatRepo(*row.Repo))
		}
		prev = &page.Data[len(page.Data)-1]

		if n >= limit {
			break
		}
	}
	if n == 0 {
		fmt.Fprintln(out, "no repositories found")
	}
	return nil
}

func formatRepo(r repo.Repo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-40s %7d stars %6d forks", r.Name, r.Stars, r.Forks)
	if r.Language != "" {
		fmt.Fprintf(&b, "  [%s]", r.Language)
	}
	if r.Description != "" {
		fmt.Fprintf(&b, "  %s", r.Description)
	}
	return b.String()
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("repopager-cli"),
		kong.Description("Page through GitHub repository search results"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	var level slog.Level
	if err := level.UnmarshalText([]byte(CLI.LogLevel)); err != nil {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kctx.BindTo(ctx, (*context.Context)(nil))
	kctx.Bind(logger)
	kctx.BindTo(os.Stdout, (*io.Writer)(nil))
	err := kctx.Run()
	kctx.FatalIfErrorf(err)
}
