package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ritzau/symdiff/pkg/analysis"
	"github.com/ritzau/symdiff/pkg/config"
	"github.com/ritzau/symdiff/pkg/dump"
	"github.com/ritzau/symdiff/pkg/logging"
	"github.com/ritzau/symdiff/pkg/output"
	"github.com/ritzau/symdiff/pkg/pubsub"
	"github.com/ritzau/symdiff/pkg/snapshot"
	"github.com/ritzau/symdiff/pkg/watcher"
	"github.com/ritzau/symdiff/pkg/web"
)

const usage = `Usage:
  symdiff diff OLD NEW [--json]    print the triggers between two dumps of a module
  symdiff snapshot DUMP [--json]   print the snapshot of a dump
  symdiff watch [DIR] [--web]      report triggers as dumps in DIR change
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		stop()
		logging.Fatal("symdiff failed", "error", err)
	}
}

func newFlagSet(command string) *pflag.FlagSet {
	f := pflag.NewFlagSet("symdiff "+command, pflag.ContinueOnError)
	f.String(config.FileFlag, config.DefaultFile, "Config file")
	f.String("dir", ".", "Directory holding the *.symtab.json dumps")
	f.Bool("web", false, "Serve the HTTP API while watching")
	f.Int("port", 8080, "Port for web server (only used with --web)")
	f.Bool("watch", true, "Keep watching after the baseline is loaded")
	f.Bool("json", false, "Print JSON instead of text")
	f.String("color", "auto", "Color output: auto, always or never")
	f.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	f.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	f.Int("quiet-ms", 300, "Quiet period before a batch of dump writes is applied")
	f.Int("max-wait-ms", 2000, "Longest a burst of dump writes can delay an update")
	return f
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: missing command", errUsage)
	}
	command, rest := args[0], args[1:]

	f := newFlagSet(command)
	if err := f.Parse(rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	path, _ := f.GetString(config.FileFlag)
	cfg, err := config.LoadFile(path, f)
	if err != nil {
		return err
	}

	level, err := logLevel(cfg)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	output.ConfigureColor(cfg.Color)

	switch command {
	case "diff":
		return runDiff(cfg, f.Args(), stdout)
	case "snapshot":
		return runSnapshot(cfg, f.Args(), stdout)
	case "watch":
		return runWatch(ctx, cfg, f.Args(), stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// logLevel resolves --verbosity, falling back to the -v count
func logLevel(cfg *config.Config) (slog.Level, error) {
	switch strings.ToLower(cfg.Verbosity) {
	case "trace":
		return slog.LevelDebug - 4, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "":
	default:
		return 0, fmt.Errorf("unknown verbosity %q", cfg.Verbosity)
	}

	switch {
	case cfg.VerboseCnt >= 2:
		return slog.LevelDebug - 4, nil
	case cfg.VerboseCnt == 1:
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, nil
	}
}

func runDiff(cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: diff takes OLD and NEW", errUsage)
	}

	before, err := dump.Load(args[0])
	if err != nil {
		return err
	}
	after, err := dump.Load(args[1])
	if err != nil {
		return err
	}
	if before.Name != after.Name {
		return fmt.Errorf("module mismatch: %s declares %s, %s declares %s",
			args[0], before.Name, args[1], after.Name)
	}

	triggers := snapshot.Diff(before.Name,
		snapshot.SymbolTable(before.Name, before.Names),
		snapshot.SymbolTable(after.Name, after.Names),
	).Sorted()
	logging.Debug("diff complete", "module", before.Name, "triggers", len(triggers))

	report := output.NewDiffReport(before.Name, triggers)
	if cfg.JSON {
		return output.WriteJSON(stdout, report)
	}
	output.PrintDiffReport(stdout, report)
	return nil
}

func runSnapshot(cfg *config.Config, args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: snapshot takes one DUMP", errUsage)
	}

	mod, err := dump.Load(args[0])
	if err != nil {
		return err
	}

	report := output.NewSnapshotReport(mod.Name, snapshot.SymbolTable(mod.Name, mod.Names))
	if cfg.JSON {
		return output.WriteJSON(stdout, report)
	}
	output.PrintSnapshot(stdout, report)
	return nil
}

func runWatch(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) error {
	dir := cfg.Dir
	switch len(args) {
	case 0:
	case 1:
		dir = args[0]
	default:
		return fmt.Errorf("%w: watch takes at most one DIR", errUsage)
	}

	if cfg.JSON {
		// Keep stdout machine readable end to end
		logging.SetJSONOutput(logging.Level())
	}

	publisher := pubsub.NewSSEPublisher()

	session := analysis.NewSession(nil)
	runner := analysis.NewRunner(dir, session, publisher)
	runner.OnResult(func(result *analysis.Result) {
		if cfg.JSON {
			if err := output.WriteJSON(stdout, result.Event()); err != nil {
				logging.Warn("failed to print result", "error", err)
			}
			return
		}
		output.PrintResult(stdout, result)
	})

	var server *web.Server
	serverErr := make(chan error, 1)
	if cfg.WebMode {
		server = web.NewServer(session, publisher)
		go func() { serverErr <- server.Start(cfg.Port) }()
	}
	defer func() {
		// Closing the publisher ends open SSE streams so shutdown can finish
		_ = publisher.Close()
		if server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logging.Warn("web server shutdown", "error", err)
			}
		}
	}()

	// Watch before loading so writes during the baseline are not lost
	var events <-chan watcher.ChangeEvent
	if cfg.Watch {
		fw, err := watcher.NewFileWatcher(dir)
		if err != nil {
			return err
		}
		if err := fw.Start(ctx); err != nil {
			return err
		}
		debouncer := watcher.NewDebouncer(fw.Events(), cfg.QuietPeriod(), cfg.MaxWait())
		debouncer.Start(ctx)
		events = debouncer.Output()
	}

	if err := runner.LoadBaseline(ctx); err != nil {
		return err
	}
	logging.Info("baseline ready", "dir", dir, "modules", len(session.Modules()))

	if events == nil {
		if server == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			return err
		}
	}

	runErr := make(chan error, 1)
	go func() { runErr <- runner.Run(ctx, events) }()

	select {
	case err := <-runErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	case err := <-serverErr:
		return err
	}
}
