package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	s := cfg.Snapshot()
	if s.System.Port != DefaultWebPort || s.Capture.Container != types.DefaultContainer {
		t.Errorf("defaults not applied: %+v", s)
	}
	if s.Upload.Mode != UploadNone {
		t.Errorf("Upload.Mode = %q, want none", s.Upload.Mode)
	}

	again := New(path)
	if err := again.Load(); err != nil {
		t.Fatalf("reload error = %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
		"system": {"port": 9000, "api_key": "0123456789abcdef"},
		"capture": {"container": "mp3", "max_duration_seconds": 120},
		"upload": {"mode": "http", "base_url": "https://api.example.com", "token": "t"}
	}`)

	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := cfg.Snapshot()
	if s.System.Port != 9000 || s.Capture.MaxDurationSeconds != 120 {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Capture.WaveformBars != 30 || s.TimerInterval().Seconds() != 1 {
		t.Errorf("capture defaults = %+v", s.Capture)
	}
	if !s.HasAPIKey() || cfg.GetAPIKey() != "0123456789abcdef" {
		t.Error("api key not loaded")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
system:
  port: 9100
  log_format: json
audio:
  input: "hw:1,0"
capture:
  container: wav
upload:
  mode: s3
  s3:
    bucket: intake
    access_key_id: key
    secret_access_key: secret
    prefix: symptoms
notifications:
  webhook_url: https://hooks.example.com/intake
`)

	cfg := New(path)
	if err := cfg.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	s := cfg.Snapshot()
	if s.System.LogFormat != "json" || s.Audio.Input != "hw:1,0" {
		t.Errorf("snapshot = %+v", s)
	}
	if s.Upload.S3.Prefix != "symptoms" || !s.HasWebhook() {
		t.Errorf("upload = %+v notifications = %+v", s.Upload, s.Notifications)
	}

	if err := cfg.SetAudioInput("hw:2,0"); err != nil {
		t.Fatalf("SetAudioInput() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hw:2,0") || strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		t.Errorf("saved config is not YAML with new input:\n%s", data)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantField string
	}{
		{name: "bad port", content: `{"system":{"port":70000}}`, wantField: "system.port"},
		{name: "bad container", content: `{"capture":{"container":"flac"}}`, wantField: "capture.container"},
		{name: "bad log format", content: `{"system":{"log_format":"xml"}}`, wantField: "system.log_format"},
		{name: "short api key", content: `{"system":{"api_key":"short"}}`, wantField: "system.api_key"},
		{name: "http without base url", content: `{"capture":{"container":"wav"},"upload":{"mode":"http"}}`, wantField: "upload.base_url"},
		{name: "http with webm", content: `{"upload":{"mode":"http","base_url":"https://x.example"}}`, wantField: "capture.container"},
		{name: "partial oauth", content: `{"capture":{"container":"wav"},"upload":{"mode":"http","base_url":"https://x.example","oauth":{"client_id":"a"}}}`, wantField: "upload.oauth"},
		{name: "s3 without bucket", content: `{"upload":{"mode":"s3"}}`, wantField: "upload.s3"},
		{name: "bad webhook", content: `{"notifications":{"webhook_url":"not a url"}}`, wantField: "notifications.webhook_url"},
		{name: "eventlog traversal", content: `{"eventlog":{"path":"../../etc/passwd"}}`, wantField: "eventlog.path"},
		{name: "bad fft size", content: `{"capture":{"fft_size":100}}`, wantField: "capture.fft_size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New(writeConfig(t, "config.json", tt.content))
			err := cfg.Load()

			var verr *types.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Load() error = %v, want *types.ValidationError", err)
			}
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					return
				}
			}
			t.Errorf("errors = %+v, want field %q", verr.Errors, tt.wantField)
		})
	}
}

func TestLoadMalformed(t *testing.T) {
	cfg := New(writeConfig(t, "config.json", `{"system":`))
	if err := cfg.Load(); err == nil {
		t.Error("Load() error = nil for malformed JSON")
	}
}

func TestGenerateAPIKey(t *testing.T) {
	a, err := GenerateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := GenerateAPIKey()
	if len(a) != 32 || a == b {
		t.Errorf("GenerateAPIKey() = %q, %q", a, b)
	}
}
