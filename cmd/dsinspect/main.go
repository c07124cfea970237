// Package main is the entry point for dsinspect.
//
// dsinspect serves glyph datasets to a browser based review UI. Each dataset
// is a directory holding a binary record container (dataset.bin) and its
// JSON index (metadata.json). Reviewers browse images by label and flag bad
// records, fonts and finished labels; flags are persisted to metadata.json
// with a backup of the previous version.
//
// Configuration is read from CLI flags and an optional dsinspect.yaml in the
// datasets directory. Flags that are explicitly set win over the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "dsinspect: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()
	ll := &slog.LevelVar{}
	ll.Set(slog.LevelInfo)
	slog.SetDefault(newLogger(ll))
	return newRootCmd(ll, stop).ExecuteContext(ctx)
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	datasetsDir string
	configPath  string
	logLevel    string

	level *slog.LevelVar
	// stop cancels the command context.
	stop context.CancelFunc
}

func newRootCmd(ll *slog.LevelVar, stop context.CancelFunc) *cobra.Command {
	o := &rootOptions{level: ll, stop: stop}
	root := &cobra.Command{
		Use:           "dsinspect",
		Short:         "Inspect and review glyph datasets",
		Long:          "Serves glyph datasets to a review UI and maintains their review flags.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setLevel(o.logLevel)
		},
	}
	f := root.PersistentFlags()
	f.StringVar(&o.datasetsDir, "datasets-dir", "datasets", "Directory holding one sub-directory per dataset")
	f.StringVar(&o.configPath, "config", "", "Configuration file (default: <datasets-dir>/dsinspect.yaml)")
	f.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.AddCommand(
		newServeCmd(o),
		newListCmd(o),
		newVerifyCmd(o),
		newPackCmd(),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) setLevel(level string) error {
	switch level {
	case "debug":
		o.level.Set(slog.LevelDebug)
	case "info":
		o.level.Set(slog.LevelInfo)
	case "warn":
		o.level.Set(slog.LevelWarn)
	case "error":
		o.level.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}
	return nil
}

func newLogger(ll *slog.LevelVar) *slog.Logger {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000", // Like time.TimeOnly plus milliseconds.
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			// Drop localhost IPs (not useful in logs).
			if a.Key == "ip" {
				if v := a.Value.String(); v == "127.0.0.1" || v == "::1" {
					return slog.Attr{}
				}
			}
			skip := false
			switch t := a.Value.Any().(type) {
			case string:
				skip = t == ""
			case bool:
				skip = !t
			case uint64:
				skip = t == 0
			case int64:
				skip = t == 0
			case float64:
				skip = t == 0
			case time.Time:
				skip = t.IsZero()
			case time.Duration:
				skip = t == 0
			case nil:
				skip = true
			}
			if skip {
				return slog.Attr{}
			}
			return a
		},
	}))
}
