package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

var (
	recordDuration     time.Duration
	recordOutput       string
	recordConsultation string
	recordNotes        string
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record symptoms from the terminal",
	Long: `record captures from the configured microphone until the duration
elapses or Ctrl+C is pressed, then writes the recording to --output and,
when --consultation is set, submits it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if recordOutput == "" && recordConsultation == "" {
			return errors.New("nothing to do: set --output or --consultation")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), util.ShutdownSignals()...)
		defer stop()

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close(context.Background())

		artifact, err := recordOnce(ctx, a.controller, recordDuration, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "recorded %ds, %d bytes (%s)\n",
			artifact.Duration(), artifact.Size(), artifact.ContentType())

		if recordOutput != "" {
			if err := writeArtifact(recordOutput, artifact); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", recordOutput)
		}

		if recordConsultation != "" {
			snap := cfg.Snapshot()
			submitCtx, cancel := context.WithTimeout(context.Background(), snap.UploadTimeout())
			defer cancel()
			receipt, err := a.intake.Submit(submitCtx, recordConsultation, recordNotes)
			if err != nil {
				return fmt.Errorf("submit recording: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %s to %s\n", receipt.Filename, receipt.Location)
		}
		return nil
	},
}

func init() {
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "Stop after this long (0 = until interrupted or the configured maximum)")
	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Write the recording to this file")
	recordCmd.Flags().StringVar(&recordConsultation, "consultation", "", "Submit the recording to this consultation ID")
	recordCmd.Flags().StringVar(&recordNotes, "notes", "", "Typed notes to submit with the recording")
}

// headlessRecorder is the part of the capture controller used by recordOnce.
type headlessRecorder interface {
	Start(ctx context.Context) error
	Stop() (*capture.Artifact, error)
	Subscribe() (<-chan capture.Status, func())
}

// recordOnce records until duration elapses, ctx is done, or the session
// stops on its own, and returns the finished artifact. Progress is written
// to progress once per elapsed second.
func recordOnce(ctx context.Context, rec headlessRecorder, duration time.Duration, progress io.Writer) (*capture.Artifact, error) {
	updates, unsubscribe := rec.Subscribe()
	defer unsubscribe()

	if err := rec.Start(ctx); err != nil {
		return nil, fmt.Errorf("start recording: %w", err)
	}
	slog.Info("recording started", "duration", duration)

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	lastElapsed := -1
	for {
		select {
		case <-ctx.Done():
			return rec.Stop()
		case <-deadline:
			return rec.Stop()
		case st := <-updates:
			switch st.State {
			case capture.StateStopped:
				// Max duration or a salvaged disconnect ended the session.
				return rec.Stop()
			case capture.StateFailed:
				return nil, fmt.Errorf("recording failed: %s", st.Reason)
			}
			if st.Elapsed != lastElapsed {
				lastElapsed = st.Elapsed
				fmt.Fprintf(progress, "\r%s  %5.1f dBFS ", util.FormatElapsed(st.Elapsed), st.LevelDB)
			}
		}
	}
}

// writeArtifact saves the recording, adding the container extension when
// path has none.
func writeArtifact(path string, a *capture.Artifact) error {
	if filepath.Ext(path) == "" {
		path += "." + a.Extension()
	}
	if err := os.WriteFile(path, a.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	return nil
}
