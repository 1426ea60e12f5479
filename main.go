// Package main provides the symptom intake agent: a local service that
// records a patient's spoken symptoms and submits them to the consultation
// backend.
//
// Usage:
//
//	intake-agent [serve] [--config path/to/config.json]
//	intake-agent devices
//	intake-agent record --duration 30s --output symptoms.webm
//
// If --config is not specified, the agent looks for config.json in the same
// directory as the binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/config"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "intake-agent",
	Short: "Records patient symptoms for the front-desk intake page",
	Long: `intake-agent captures a short voice recording of a patient's symptoms,
shows a live waveform on the intake page and submits the recording with
typed notes to the consultation backend.

Without a subcommand it runs the web service.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		path, err := resolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg = config.New(path)
		if err := cfg.Load(); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		setupLogging(cfg.Snapshot().System)
		slog.Debug("using config file", "path", path)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web service for the intake page",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), util.ShutdownSignals()...)
		defer stop()
		return serve(ctx, cfg)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available audio input devices",
	RunE: func(cmd *cobra.Command, _ []string) error {
		current := cfg.AudioInput()
		out := cmd.OutOrStdout()
		for _, d := range audio.ListDevices() {
			marker := " "
			if d.ID == current {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-24s %s\n", marker, d.ID, d.Name)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "intake-agent %s (commit %s, built %s)\n", Version, Commit, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: config.json next to binary)")
	rootCmd.AddCommand(serveCmd, devicesCmd, recordCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath returns path, or config.json next to the binary.
func resolveConfigPath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	execPath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(execPath), "config.json"), nil
}

// setupLogging installs the default slog handler for the configured format and level.
func setupLogging(sys config.SystemConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(sys.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(sys.LogFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// serve runs the web service until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	if cfg.GetAPIKey() == "" {
		slog.Warn("no api_key configured - REST capture API is disabled")
	}

	version := NewVersionChecker(githubAPI)
	srv := NewServer(ServerDeps{
		Config:          cfg,
		Recorder:        a.controller,
		Submitter:       a.intake,
		Devices:         a.devices,
		Webhook:         a.webhook,
		EventLog:        a.eventLogPath(),
		Hub:             a.hub,
		Metrics:         a.provider.Handler(),
		Version:         version,
		FFmpegAvailable: a.ffmpegPath != "",
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error { return version.Run(gctx) })

	err = g.Wait()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.close(shutdownCtx)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("shutdown complete")
	return nil
}
