// Command mailpilot is a conversational Gmail cleanup tool: it parses plain
// commands like "delete emails from spotify older than 30 days", previews
// what would change, and applies the action only after confirmation.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/joshsymonds/mailpilot/internal/engine"
	"github.com/joshsymonds/mailpilot/internal/pipeline"
	"github.com/joshsymonds/mailpilot/internal/rate"
	"github.com/joshsymonds/mailpilot/internal/runtime"
)

type config struct {
	cfgDir   string
	command  string
	envFile  string
	rps      int
	pageSize int
	jsonOut  bool
	readonly bool
	yes      bool
}

func main() {
	cfg := parseFlags()
	if err := run(cfg); err != nil {
		runtime.DefaultLogger().Error("mailpilot failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags() config {
	cfgDir := flag.String("config", os.ExpandEnv("$HOME/.gmailctl"), "gmailctl auth directory")
	command := flag.String("c", "", "run a single command and exit")
	envFile := flag.String("env", ".env", "env file with optional settings")
	rps := flag.Int("rps", 4, "max requests per second")
	pageSize := flag.Int("page-size", 100, "Gmail list page size (<=500)")
	jsonOut := flag.Bool("json", false, "emit results as JSON")
	readonly := flag.Bool("readonly", false, "refuse all mutations")
	yes := flag.Bool("yes", false, "skip confirmation prompts (dangerous)")
	flag.Parse()

	return config{
		cfgDir:   *cfgDir,
		command:  *command,
		envFile:  *envFile,
		rps:      *rps,
		pageSize: *pageSize,
		jsonOut:  *jsonOut,
		readonly: *readonly,
		yes:      *yes,
	}
}

func run(cfg config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Optional; a missing env file is not an error.
	_ = godotenv.Load(cfg.envFile)
	if dir := os.Getenv("MAILPILOT_CONFIG_DIR"); dir != "" && cfg.cfgDir == os.ExpandEnv("$HOME/.gmailctl") {
		cfg.cfgDir = dir
	}

	scope := runtime.ScopeCompose
	if cfg.readonly {
		scope = runtime.ScopeReadonly
	}
	client, err := runtime.NewGmailClient(ctx, cfg.cfgDir, scope)
	if err != nil {
		return fmt.Errorf("create gmail client: %w", err)
	}

	var limiter rate.Limiter = rate.Unlimited{}
	if cfg.rps > 0 {
		bucket := rate.NewTokenBucket(cfg.rps)
		defer bucket.Stop()
		limiter = bucket
	}

	logger := runtime.DefaultLogger()
	exec := engine.New(client, limiter, logger)
	exec.PageSize = cfg.pageSize
	runner := pipeline.NewRunner(exec, logger)

	app := &app{
		runner:   runner,
		session:  uuid.NewString(),
		jsonOut:  cfg.jsonOut,
		readonly: cfg.readonly,
		autoYes:  cfg.yes,
		in:       bufio.NewScanner(os.Stdin),
		out:      os.Stdout,
	}

	if cfg.command != "" {
		return app.runOnce(ctx, cfg.command)
	}
	return app.repl(ctx)
}

type app struct {
	runner   *pipeline.Runner
	session  string
	jsonOut  bool
	readonly bool
	autoYes  bool
	in       *bufio.Scanner
	out      *os.File
}

func (a *app) repl(ctx context.Context) error {
	fmt.Fprintln(a.out, `mailpilot ready. Try "show my emails", "undo", or "quit".`)
	for {
		fmt.Fprint(a.out, "> ")
		if !a.in.Scan() {
			return a.in.Err()
		}
		line := strings.TrimSpace(a.in.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "undo":
			res, err := a.runner.Undo(ctx, a.session, "")
			if err != nil {
				fmt.Fprintln(a.out, "error:", err)
				continue
			}
			a.render(res)
			continue
		case "history":
			a.render(a.runner.RecentActions(a.session, 10))
			continue
		}
		if err := a.runOnce(ctx, line); err != nil {
			fmt.Fprintln(a.out, "error:", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (a *app) runOnce(ctx context.Context, command string) error {
	res, err := a.runner.Run(ctx, a.session, command)
	if err != nil {
		return err
	}
	a.render(res)

	if res.Kind != engine.KindConfirm || res.Details == nil {
		return nil
	}
	if a.readonly {
		fmt.Fprintln(a.out, "readonly mode: not applying")
		return nil
	}
	if !a.autoYes && !a.confirmPrompt() {
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	confirmed, err := a.runner.Confirm(ctx, a.session, *res.Details)
	if err != nil {
		return err
	}
	a.render(confirmed)
	return nil
}

func (a *app) confirmPrompt() bool {
	fmt.Fprint(a.out, "proceed? [y/N] ")
	if !a.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(a.in.Text()))
	return answer == "y" || answer == "yes"
}

func (a *app) render(res engine.Result) {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return
	}
	fmt.Fprintf(a.out, "[%s] %s\n", res.Kind, res.Message)
	for _, e := range res.Preview {
		fmt.Fprintf(a.out, "  %-40s %s\n", trim(e.From, 40), trim(e.Subject, 70))
	}
	for _, e := range res.Emails {
		fmt.Fprintf(a.out, "  %-40s %s\n", trim(e.From, 40), trim(e.Subject, 70))
	}
	if res.UndoID != "" {
		fmt.Fprintf(a.out, "  (undoable: type \"undo\")\n")
	}
	if res.NextPageToken != "" {
		fmt.Fprintln(a.out, "  (more messages available)")
	}
}

func trim(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
