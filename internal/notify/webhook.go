package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/capture"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

const (
	webhookTimeout      = 10 * time.Second
	webhookAttempts     = 3
	webhookInitialDelay = 500 * time.Millisecond
	webhookMaxDelay     = 4 * time.Second
)

// WebhookPayload represents the data sent to webhook endpoints.
type WebhookPayload struct {
	Event     string `json:"event"`
	App       string `json:"app"`
	Session   string `json:"session,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
}

// WebhookNotifier posts failure notices as JSON.
type WebhookNotifier struct {
	url    string
	client *http.Client
	delay  time.Duration
}

// NewWebhookNotifier creates a notifier for url. An empty url makes every
// send a no-op.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
		delay:  webhookInitialDelay,
	}
}

// Notify implements capture.Notifier.
func (w *WebhookNotifier) Notify(ctx context.Context, n capture.Notice) {
	payload := &WebhookPayload{
		Event:     "capture_failed",
		App:       AppName,
		Session:   n.Session,
		Reason:    string(n.Reason),
		Message:   Message(n.Reason),
		Timestamp: timestampUTC(n.At),
	}
	if n.Err != nil {
		payload.Error = n.Err.Error()
	}
	if err := w.Send(ctx, payload); err != nil {
		slog.Error("failure webhook not delivered", "session", n.Session, "reason", n.Reason, "error", err)
		return
	}
	slog.Info("failure webhook sent", "session", n.Session, "reason", n.Reason)
}

// SendTest sends a test notification.
func (w *WebhookNotifier) SendTest(ctx context.Context) error {
	if w.url == "" {
		return fmt.Errorf("webhook URL not configured")
	}
	return w.Send(ctx, &WebhookPayload{
		Event:     "test",
		App:       AppName,
		Message:   "This is a test notification from " + AppName,
		Timestamp: timestampUTC(time.Time{}),
	})
}

// Send delivers payload, retrying transient failures with backoff.
func (w *WebhookNotifier) Send(ctx context.Context, payload *WebhookPayload) error {
	if !util.IsConfigured(w.url) {
		return nil
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return util.Wrap("marshal payload", err)
	}

	backoff := util.NewBackoff(w.delay, webhookMaxDelay)
	for attempt := 1; ; attempt++ {
		retry, err := w.post(ctx, jsonData)
		if err == nil || !retry || attempt == webhookAttempts {
			return err
		}
		if backoff.Wait(ctx) != nil {
			return err
		}
	}
}

// post sends one request and reports whether a failure is worth retrying.
func (w *WebhookNotifier) post(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, util.Wrap("create webhook request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, util.Wrap("send webhook request", err)
	}
	defer util.CloseLogged(resp.Body, "webhook response body")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode >= 500, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return false, nil
}
