package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/config"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/encoding"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/eventlog"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/ffmpeg"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/hardware"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/intake"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/notify"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/observe"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/server"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

// app holds the wired components of a running agent.
type app struct {
	cfg        *config.Config
	ffmpegPath string
	mic        capture.Microphone
	devices    server.DeviceSelector
	hub        *server.Hub
	webhook    *notify.WebhookNotifier
	events     *eventlog.Logger
	provider   *observe.Provider
	controller *capture.Controller
	intake     *intake.Service
}

// newApp builds the capture pipeline, its observers and the upload path
// from configuration.
func newApp(cfg *config.Config) (*app, error) {
	snap := cfg.Snapshot()
	a := &app{
		cfg:        cfg,
		ffmpegPath: ffmpeg.Resolve(snap.System.FFmpegPath),
		hub:        server.NewHub(),
	}
	if a.ffmpegPath == "" {
		slog.Warn("FFmpeg not found - running in degraded mode", "configured_path", snap.System.FFmpegPath)
	} else {
		slog.Info("FFmpeg found", "path", a.ffmpegPath)
	}

	a.mic, a.devices = newMicrophone(&snap, a.ffmpegPath)

	encoders, err := newEncoderFactory(&snap, a.ffmpegPath)
	if err != nil {
		return nil, err
	}

	provider, err := observe.NewProvider(observe.ProviderConfig{ServiceName: "intake-agent", ServiceVersion: Version})
	if err != nil {
		return nil, fmt.Errorf("create metrics provider: %w", err)
	}
	a.provider = provider
	metrics, err := observe.NewMetrics(provider.MeterProvider())
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	logPath := snap.EventLog.Path
	if logPath == "" {
		logPath = eventlog.DefaultLogPath(snap.System.Port)
	}
	a.events = newEventLogger(logPath, &snap)

	notifiers := notify.Multi{notify.LogNotifier{}, hubNotifier(a.hub)}
	if snap.HasWebhook() {
		a.webhook = notify.NewWebhookNotifier(snap.Notifications.WebhookURL)
		notifiers = append(notifiers, a.webhook)
	}

	opts := []capture.Option{
		capture.WithNotifier(notifiers),
		capture.WithObserver(metrics.ObserveTransition),
		capture.WithTimerInterval(snap.TimerInterval()),
		capture.WithSamplerInterval(snap.SamplerInterval()),
		capture.WithBars(snap.Capture.WaveformBars),
		capture.WithFFTSize(snap.Capture.FFTSize),
		capture.WithMaxDuration(snap.Capture.MaxDurationSeconds),
	}
	if a.events != nil {
		opts = append(opts, capture.WithObserver(a.events.ObserveTransition))
	}
	a.controller, err = capture.NewController(a.mic, encoders, opts...)
	if err != nil {
		a.close(context.Background())
		return nil, fmt.Errorf("create capture controller: %w", err)
	}

	uploader, err := newUploader(&snap)
	if err != nil {
		a.close(context.Background())
		return nil, err
	}
	a.intake = intake.NewService(a.controller, uploader, func(e intake.SubmitEvent) {
		metrics.ObserveSubmit(e)
		if a.events != nil {
			a.events.ObserveSubmit(e)
		}
	})

	return a, nil
}

// newEventLogger opens the event log, or returns nil when it cannot be
// written. The agent still records without one.
func newEventLogger(path string, snap *config.Snapshot) *eventlog.Logger {
	if err := util.CheckPathWritable(filepath.Dir(path)); err != nil {
		slog.Warn("event log disabled", "path", path, "error", err)
		return nil
	}
	logger, err := eventlog.NewLogger(path, eventlog.Rotation{
		MaxSizeMB:  snap.EventLog.MaxSizeMB,
		MaxBackups: snap.EventLog.MaxBackups,
		MaxAgeDays: snap.EventLog.MaxAgeDays,
		Compress:   snap.EventLog.Compress,
	})
	if err != nil {
		slog.Warn("event log disabled", "path", path, "error", err)
		return nil
	}
	return logger
}

// eventLogPath returns the active event log path, or "" when disabled.
func (a *app) eventLogPath() string {
	if a.events == nil {
		return ""
	}
	return a.events.Path()
}

// close releases the controller, event log and metrics provider.
func (a *app) close(ctx context.Context) {
	if a.controller != nil {
		if err := a.controller.Close(); err != nil {
			slog.Error("error closing capture controller", "error", err)
		}
	}
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			slog.Error("error closing event log", "error", err)
		}
	}
	if a.provider != nil {
		if err := a.provider.Shutdown(ctx); err != nil {
			slog.Error("error shutting down metrics provider", "error", err)
		}
	}
}

// newMicrophone selects the capture backend. Only the FFmpeg backend can
// switch devices at runtime.
func newMicrophone(snap *config.Snapshot, ffmpegPath string) (capture.Microphone, server.DeviceSelector) {
	if snap.Audio.Backend == "portaudio" {
		return hardware.NewPortAudioMicrophone(snap.Audio.SampleRate), nil
	}
	mic := hardware.NewFFmpegMicrophone(snap.Audio.Input, ffmpegPath, snap.Audio.SampleRate)
	return mic, mic
}

// newEncoderFactory returns the configured encoder, falling back to WAV when
// FFmpeg is missing.
func newEncoderFactory(snap *config.Snapshot, ffmpegPath string) (*encoding.Factory, error) {
	container := snap.Capture.Container
	if container.NeedsFFmpeg() && ffmpegPath == "" {
		slog.Warn("container requires FFmpeg, recording WAV instead", "container", container)
		container = types.ContainerWAV
	}
	f, err := encoding.NewFactory(ffmpegPath, container)
	if err != nil {
		return nil, fmt.Errorf("create encoder factory: %w", err)
	}
	return f.WithBitrate(snap.Capture.BitrateKbps), nil
}

// newUploader returns the uploader for the configured mode, or nil when
// uploads are disabled.
func newUploader(snap *config.Snapshot) (intake.Uploader, error) {
	up := snap.Upload
	switch up.Mode {
	case config.UploadHTTP:
		hc := intake.HTTPConfig{
			BaseURL: up.BaseURL,
			Token:   up.Token,
			Timeout: snap.UploadTimeout(),
		}
		if up.OAuth.IsConfigured() {
			hc.OAuth = &intake.OAuthConfig{
				ClientID:     up.OAuth.ClientID,
				ClientSecret: up.OAuth.ClientSecret,
				TokenURL:     up.OAuth.TokenURL,
				Scopes:       up.OAuth.Scopes,
			}
		}
		u, err := intake.NewHTTPUploader(hc)
		if err != nil {
			return nil, fmt.Errorf("create http uploader: %w", err)
		}
		return u, nil
	case config.UploadS3:
		u, err := intake.NewS3Uploader(intake.S3Config{
			Endpoint:        up.S3.Endpoint,
			Region:          up.S3.Region,
			Bucket:          up.S3.Bucket,
			AccessKeyID:     up.S3.AccessKeyID,
			SecretAccessKey: up.S3.SecretAccessKey,
			Prefix:          up.S3.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 uploader: %w", err)
		}
		return u, nil
	case config.UploadNone:
		return nil, nil
	default:
		return nil, errors.New("unknown upload mode: " + up.Mode)
	}
}
