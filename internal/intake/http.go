package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	uploadPath           = "/api/v1/consultations/{id}/upload"
	defaultUploadTimeout = 60 * time.Second
)

// OAuthConfig holds client credentials for the consultation API.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// HTTPConfig configures an HTTPUploader.
type HTTPConfig struct {
	BaseURL string
	// Token is a static bearer token. Ignored when OAuth is set.
	Token   string
	OAuth   *OAuthConfig
	Timeout time.Duration
	// Client is the base HTTP client, mainly for tests.
	Client *http.Client
}

// uploadResponse is the consultation API upload reply.
type uploadResponse struct {
	Message string `json:"message"`
	AudioID string `json:"audio_id"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// HTTPUploader posts payloads to the consultation API as multipart forms.
type HTTPUploader struct {
	client *resty.Client
	token  string
}

// NewHTTPUploader creates an uploader for the consultation API.
func NewHTTPUploader(cfg HTTPConfig) (*HTTPUploader, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultUploadTimeout
	}

	base := cfg.Client
	if base == nil {
		base = &http.Client{Timeout: timeout}
	}

	httpClient := base
	if cfg.OAuth != nil {
		if cfg.OAuth.ClientID == "" || cfg.OAuth.ClientSecret == "" || cfg.OAuth.TokenURL == "" {
			return nil, errors.New("oauth client id, secret and token url are required")
		}
		conf := &clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = conf.Client(ctx)
	}

	client := resty.NewWithClient(httpClient).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	u := &HTTPUploader{client: client}
	if cfg.OAuth == nil {
		u.token = cfg.Token
	}
	return u, nil
}

// Upload implements Uploader.
func (u *HTTPUploader) Upload(ctx context.Context, consultationID string, p *Payload) (*Receipt, error) {
	uploadErr := func(status int, err error) error {
		return &UploadError{Target: "consultation api", ConsultationID: consultationID, StatusCode: status, Err: err}
	}
	if !p.HasAudio() {
		return nil, uploadErr(0, errors.New("the consultation api requires an audio file"))
	}

	var result uploadResponse
	var apiErr errorResponse
	req := u.client.R().
		SetContext(ctx).
		SetPathParam("id", consultationID).
		SetMultipartField("file", p.Filename(), p.Artifact().ContentType(), p.Artifact().Reader()).
		SetResult(&result).
		SetError(&apiErr)
	if p.HasNotes() {
		req.SetFormData(map[string]string{"notes": p.Notes()})
	}
	if u.token != "" {
		req.SetAuthToken(u.token)
	}

	resp, err := req.Post(uploadPath)
	if err != nil {
		return nil, uploadErr(0, err)
	}
	if resp.IsError() {
		detail := apiErr.Detail
		if detail == "" {
			detail = strings.TrimSpace(resp.String())
		}
		return nil, uploadErr(resp.StatusCode(), fmt.Errorf("server rejected upload: %s", detail))
	}

	slog.Info("symptoms uploaded", "consultation_id", consultationID, "audio_id", result.AudioID, "bytes", p.Artifact().Size())

	return &Receipt{
		ConsultationID: consultationID,
		Location:       resp.Request.RawRequest.URL.String(),
		Filename:       p.Filename(),
		Size:           p.Artifact().Size(),
		HasNotes:       p.HasNotes(),
		AudioID:        result.AudioID,
		UploadedAt:     time.Now(),
	}, nil
}
