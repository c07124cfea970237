package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/dsinspect/internal/config"
	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/inspect"
	"github.com/maruel/dsinspect/internal/server"
	"github.com/maruel/dsinspect/internal/server/handlers"
	"github.com/maruel/dsinspect/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the datasets over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, o)
			if err != nil {
				return err
			}
			noWatch, _ := cmd.Flags().GetBool("no-watch")
			return serve(cmd.Context(), o, cfg, !noWatch)
		},
	}
	d := config.Default()
	cmd.Flags().String("http", d.HTTP, "Address to listen on (e.g., localhost:3000, :3000)")
	cmd.Flags().String("static-dir", "", "Directory holding the web UI")
	cmd.Flags().String("payload-field", d.PayloadField, "Record field holding the image")
	cmd.Flags().Bool("no-watch", false, "Do not exit when the executable is replaced")
	return cmd
}

// loadServeConfig reads the configuration file then applies the flags that
// were explicitly set.
func loadServeConfig(cmd *cobra.Command, o *rootOptions) (*config.Config, error) {
	if err := config.ValidateDir(o.datasetsDir); err != nil {
		return nil, fmt.Errorf("--datasets-dir: %w", err)
	}
	path := o.configPath
	if path == "" {
		path = filepath.Join(o.datasetsDir, config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	for name, dst := range map[string]*string{
		"http":          &cfg.HTTP,
		"static-dir":    &cfg.StaticDir,
		"payload-field": &cfg.PayloadField,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := o.setLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, o *rootOptions, cfg *config.Config, watch bool) error {
	if watch {
		if err := watchExecutable(ctx, o.stop); err != nil {
			slog.WarnContext(ctx, "Could not watch executable", "err", err)
		}
	}

	reg, err := dataset.Discover(ctx, o.datasetsDir)
	if err != nil {
		return err
	}
	if reg.Len() == 0 {
		slog.WarnContext(ctx, "No dataset found", "dir", o.datasetsDir)
	}
	slog.InfoContext(ctx, "Loaded datasets", "count", reg.Len(), "names", reg.Names())

	limits := ratelimit.NewConfig(cfg.RateLimits.ReadPerMin, cfg.RateLimits.WritePerMin)
	defer limits.Close()
	version, _, _, _ := getBuildInfo()
	svc := &handlers.Services{
		Registry: reg,
		Resolver: inspect.NewResolver(cfg.PayloadField),
	}
	hcfg := &handlers.Config{
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		StaticDir:           cfg.StaticDir,
		WritePasswordHash:   cfg.Auth.WritePasswordHash,
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP,
		Handler:           server.NewRouter(svc, hcfg, limits),
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.InfoContext(ctx, "Starting server", "addr", cfg.HTTP, "version", version, "write_protected", cfg.Auth.WritePasswordHash != "")
		serverErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.InfoContext(ctx, "Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		slog.InfoContext(ctx, "Server stopped")
	}
	return nil
}

// watchExecutable calls stop when the executable is rewritten, so a
// supervisor can restart the new build.
func watchExecutable(ctx context.Context, stop context.CancelFunc) error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(exe); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Chmod) {
					slog.InfoContext(ctx, "Executable modified, initiating shutdown")
					stop()
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching executable", "err", err)
			}
		}
	}()
	return nil
}
