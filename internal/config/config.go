// Package config provides application configuration management.
package config

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/audio"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultHost              = "127.0.0.1"
	DefaultWebPort           = 8090
	DefaultLogFormat         = "text"
	DefaultLogLevel          = "info"
	DefaultAudioBackend      = "ffmpeg"
	DefaultTimerIntervalMs   = 1000
	DefaultSamplerIntervalMs = 33
	DefaultUploadMode        = "none"
	DefaultUploadTimeout     = 60
	DefaultEventLogMaxSizeMB = 10
	DefaultEventLogBackups   = 5
	DefaultEventLogMaxAge    = 30
)

// Upload modes.
const (
	UploadNone = "none"
	UploadHTTP = string(types.UploadHTTP)
	UploadS3   = string(types.UploadS3)
)

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	Host       string `json:"host" yaml:"host" validate:"omitempty,hostname|ip"`
	Port       int    `json:"port" yaml:"port" validate:"gte=1,lte=65535"`
	FFmpegPath string `json:"ffmpeg_path" yaml:"ffmpeg_path" validate:"omitempty,max=4096"` // Empty = use PATH
	APIKey     string `json:"api_key" yaml:"api_key" validate:"omitempty,min=16,max=128"`   // Required by the REST API
	LogFormat  string `json:"log_format" yaml:"log_format" validate:"oneof=text json"`
	LogLevel   string `json:"log_level" yaml:"log_level" validate:"oneof=debug info warn error"`
}

// AudioConfig holds audio input device settings.
type AudioConfig struct {
	Backend    string `json:"backend" yaml:"backend" validate:"oneof=ffmpeg portaudio"`
	Input      string `json:"input" yaml:"input" validate:"omitempty,max=256"` // Empty = platform default
	SampleRate int    `json:"sample_rate" yaml:"sample_rate" validate:"oneof=8000 16000 22050 24000 44100 48000"`
}

// CaptureConfig holds recording session settings.
type CaptureConfig struct {
	Container          types.Container `json:"container" yaml:"container" validate:"oneof=webm ogg mp3 m4a wav"`
	BitrateKbps        int             `json:"bitrate_kbps" yaml:"bitrate_kbps" validate:"omitempty,gte=16,lte=320"`
	WaveformBars       int             `json:"waveform_bars" yaml:"waveform_bars" validate:"gte=1,lte=128"`
	FFTSize            int             `json:"fft_size" yaml:"fft_size" validate:"oneof=64 128 256 512 1024 2048"`
	TimerIntervalMs    int             `json:"timer_interval_ms" yaml:"timer_interval_ms" validate:"gte=100,lte=10000"`
	SamplerIntervalMs  int             `json:"sampler_interval_ms" yaml:"sampler_interval_ms" validate:"gte=10,lte=1000"`
	MaxDurationSeconds int             `json:"max_duration_seconds" yaml:"max_duration_seconds" validate:"gte=0,lte=3600"` // 0 = unlimited
}

// OAuthConfig holds OAuth2 client credentials for the consultation API.
type OAuthConfig struct {
	ClientID     string   `json:"client_id" yaml:"client_id" validate:"omitempty,max=256"`
	ClientSecret string   `json:"client_secret" yaml:"client_secret" validate:"omitempty,max=512"`
	TokenURL     string   `json:"token_url" yaml:"token_url" validate:"omitempty,url"`
	Scopes       []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// IsConfigured reports whether client credentials are complete.
func (o *OAuthConfig) IsConfigured() bool {
	return util.IsConfigured(o.ClientID, o.ClientSecret, o.TokenURL)
}

// S3Config holds S3-compatible storage settings.
type S3Config struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint" validate:"omitempty,url"` // Empty = AWS
	Region          string `json:"region" yaml:"region" validate:"omitempty,max=64"`
	Bucket          string `json:"bucket" yaml:"bucket" validate:"omitempty,max=63"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" validate:"omitempty,max=128"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" validate:"omitempty,max=256"`
	Prefix          string `json:"prefix" yaml:"prefix" validate:"omitempty,max=512"`
}

// UploadConfig holds the submission destination.
type UploadConfig struct {
	Mode           string      `json:"mode" yaml:"mode" validate:"oneof=none http s3"`
	BaseURL        string      `json:"base_url" yaml:"base_url" validate:"omitempty,url"`
	Token          string      `json:"token" yaml:"token" validate:"omitempty,max=4096"`
	OAuth          OAuthConfig `json:"oauth" yaml:"oauth"`
	TimeoutSeconds int         `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gte=1,lte=600"`
	S3             S3Config    `json:"s3" yaml:"s3"`
}

// NotificationsConfig holds failure notification settings.
type NotificationsConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url" validate:"omitempty,url,max=2048"`
}

// EventLogConfig holds event log file settings.
type EventLogConfig struct {
	Path       string `json:"path" yaml:"path" validate:"omitempty,max=4096"` // Empty = platform default
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" validate:"gte=1,lte=1024"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" validate:"gte=0,lte=100"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" validate:"gte=0,lte=3650"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System        SystemConfig        `json:"system" yaml:"system"`
	Audio         AudioConfig         `json:"audio" yaml:"audio"`
	Capture       CaptureConfig       `json:"capture" yaml:"capture"`
	Upload        UploadConfig        `json:"upload" yaml:"upload"`
	Notifications NotificationsConfig `json:"notifications" yaml:"notifications"`
	EventLog      EventLogConfig      `json:"eventlog" yaml:"eventlog"`

	mu       sync.RWMutex
	filePath string
}

// validate is the validator instance for configuration structs.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	c := &Config{filePath: filePath}
	c.applyDefaults()
	return c
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.filePath
}

// Load reads config from file, creating a default if none exists.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if isYAML(c.filePath) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return util.Wrap("parse config", err)
	}

	c.applyDefaults()

	return c.validate()
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	verr := &types.ValidationError{}

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, e := range fieldErrs {
			verr.Add(fieldPath(e.Namespace()), FormatValidationMessage(e), e.Value())
		}
	}

	if c.EventLog.Path != "" {
		if err := util.ValidatePath("eventlog.path", c.EventLog.Path); err != nil {
			verr.Add("eventlog.path", "must not contain '..'", c.EventLog.Path)
		}
	}
	c.validateUpload(verr)

	return verr.Err()
}

// validateUpload applies the cross-field rules for the upload destination.
func (c *Config) validateUpload(verr *types.ValidationError) {
	u := &c.Upload
	switch u.Mode {
	case UploadHTTP:
		if u.BaseURL == "" {
			verr.Add("upload.base_url", "is required when mode is http", u.BaseURL)
		}
		oauth := u.OAuth
		if (oauth.ClientID != "" || oauth.ClientSecret != "" || oauth.TokenURL != "") && !oauth.IsConfigured() {
			verr.Add("upload.oauth", "client_id, client_secret and token_url must all be set", nil)
		}
		switch c.Capture.Container {
		case types.ContainerWAV, types.ContainerMP3, types.ContainerM4A:
		default:
			verr.Add("capture.container", "must be one of: wav mp3 m4a when mode is http", c.Capture.Container)
		}
	case UploadS3:
		s3 := u.S3
		if !util.IsConfigured(s3.Bucket, s3.AccessKeyID, s3.SecretAccessKey) {
			verr.Add("upload.s3", "bucket, access_key_id and secret_access_key are required when mode is s3", nil)
		}
	}
}

// fieldPath turns a validator namespace ("Config.upload.base_url") into a
// JSON path ("upload.base_url").
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// FormatValidationMessage creates a human-readable message from a validator error.
func FormatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "hostname", "hostname|ip":
		return "must be a valid hostname or IP address"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	// System defaults
	if c.System.Host == "" {
		c.System.Host = DefaultHost
	}
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}
	if c.System.LogFormat == "" {
		c.System.LogFormat = DefaultLogFormat
	}
	if c.System.LogLevel == "" {
		c.System.LogLevel = DefaultLogLevel
	}
	// Audio defaults
	if c.Audio.Backend == "" {
		c.Audio.Backend = DefaultAudioBackend
	}
	if c.Audio.SampleRate == 0 {
		c.Audio.SampleRate = audio.DefaultSampleRate
	}
	// Capture defaults
	if c.Capture.Container == "" {
		c.Capture.Container = types.DefaultContainer
	}
	if c.Capture.WaveformBars == 0 {
		c.Capture.WaveformBars = audio.DefaultBars
	}
	if c.Capture.FFTSize == 0 {
		c.Capture.FFTSize = audio.DefaultFFTSize
	}
	if c.Capture.TimerIntervalMs == 0 {
		c.Capture.TimerIntervalMs = DefaultTimerIntervalMs
	}
	if c.Capture.SamplerIntervalMs == 0 {
		c.Capture.SamplerIntervalMs = DefaultSamplerIntervalMs
	}
	// Upload defaults
	if c.Upload.Mode == "" {
		c.Upload.Mode = DefaultUploadMode
	}
	if c.Upload.TimeoutSeconds == 0 {
		c.Upload.TimeoutSeconds = DefaultUploadTimeout
	}
	// Event log defaults
	if c.EventLog.MaxSizeMB == 0 {
		c.EventLog.MaxSizeMB = DefaultEventLogMaxSizeMB
	}
	if c.EventLog.MaxBackups == 0 {
		c.EventLog.MaxBackups = DefaultEventLogBackups
	}
	if c.EventLog.MaxAgeDays == 0 {
		c.EventLog.MaxAgeDays = DefaultEventLogMaxAge
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	var data []byte
	var err error
	if isYAML(c.filePath) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return util.Wrap("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.Wrap("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.Wrap("write config", err)
	}

	return nil
}

// --- Getters for individual settings ---

// AudioInput returns the configured audio input device.
func (c *Config) AudioInput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Audio.Input
}

// GetFFmpegPath returns the configured FFmpeg binary path.
func (c *Config) GetFFmpegPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.FFmpegPath
}

// GetAPIKey returns the API key for the REST endpoints.
func (c *Config) GetAPIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.System.APIKey
}

// Save writes the current configuration to disk.
func (c *Config) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveLocked()
}

// --- Setters for individual settings ---

// SetAudioInput updates the audio input device and saves the configuration.
func (c *Config) SetAudioInput(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.Input = input
	return c.saveLocked()
}

// SetWebhookURL updates the webhook URL and saves the configuration.
func (c *Config) SetWebhookURL(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Notifications.WebhookURL = url
	return c.saveLocked()
}

// SetAPIKey updates the API key and saves the configuration.
func (c *Config) SetAPIKey(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.System.APIKey = key
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	System        SystemConfig
	Audio         AudioConfig
	Capture       CaptureConfig
	Upload        UploadConfig
	Notifications NotificationsConfig
	EventLog      EventLogConfig
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		System:        c.System,
		Audio:         c.Audio,
		Capture:       c.Capture,
		Upload:        c.Upload,
		Notifications: c.Notifications,
		EventLog:      c.EventLog,
	}
	s.Upload.OAuth.Scopes = slices.Clone(c.Upload.OAuth.Scopes)
	return s
}

// TimerInterval returns the elapsed timer cadence.
func (s *Snapshot) TimerInterval() time.Duration {
	return time.Duration(s.Capture.TimerIntervalMs) * time.Millisecond
}

// SamplerInterval returns the waveform sampling cadence.
func (s *Snapshot) SamplerInterval() time.Duration {
	return time.Duration(s.Capture.SamplerIntervalMs) * time.Millisecond
}

// UploadTimeout returns the upload request timeout.
func (s *Snapshot) UploadTimeout() time.Duration {
	return time.Duration(s.Upload.TimeoutSeconds) * time.Second
}

// HasWebhook reports whether a webhook URL is configured.
func (s *Snapshot) HasWebhook() bool {
	return s.Notifications.WebhookURL != ""
}

// HasAPIKey reports whether the REST API is enabled.
func (s *Snapshot) HasAPIKey() bool {
	return s.System.APIKey != ""
}

// --- Utility functions ---

// GenerateAPIKey generates a new random 32-character alphanumeric API key.
func GenerateAPIKey() (string, error) {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 32
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		result[i] = chars[n.Int64()]
	}
	return string(result), nil
}
