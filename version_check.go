package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/mod/semver"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/types"
	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

const (
	githubRepo = "parth-siprahub/Patient-frontdesk-UI"
	githubAPI  = "https://api.github.com"

	releaseCheckEvery   = 24 * time.Hour
	releaseCheckWarmup  = 30 * time.Second
	releaseCheckTimeout = 30 * time.Second
	releaseRetries      = 2
)

var errNoReleaseTag = errors.New("release has no tag")

// VersionChecker polls GitHub for the latest release. It is safe for
// concurrent use.
type VersionChecker struct {
	client *resty.Client
	warmup time.Duration

	mu     sync.RWMutex
	latest string
	etag   string
}

// NewVersionChecker returns a VersionChecker for the release API at baseURL.
// Rate limits and server errors are retried by the client.
func NewVersionChecker(baseURL string) *VersionChecker {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(releaseCheckTimeout).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetHeader("User-Agent", "intake-agent/"+Version).
		SetRetryCount(releaseRetries).
		SetRetryWaitTime(time.Minute).
		SetRetryMaxWaitTime(2 * time.Minute).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			code := r.StatusCode()
			return code == http.StatusForbidden || code == http.StatusTooManyRequests || code >= 500
		})
	return &VersionChecker{client: client, warmup: releaseCheckWarmup}
}

// Run checks once after startup settles and then daily until ctx is done.
func (vc *VersionChecker) Run(ctx context.Context) error {
	timer := time.NewTimer(vc.warmup)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if err := vc.fetch(ctx); err != nil && ctx.Err() == nil {
			slog.Debug("release check failed", "error", err)
		}
		timer.Reset(releaseCheckEvery)
	}
}

type githubRelease struct {
	TagName    string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// fetch asks for the latest release, revalidating with the stored ETag.
// Not modified, missing releases and drafts leave the known version alone.
func (vc *VersionChecker) fetch(ctx context.Context) error {
	vc.mu.RLock()
	etag := vc.etag
	vc.mu.RUnlock()

	var release githubRelease
	req := vc.client.R().SetContext(ctx).SetResult(&release)
	if etag != "" {
		req.SetHeader("If-None-Match", etag)
	}

	resp, err := req.Get("/repos/" + githubRepo + "/releases/latest")
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusOK {
		if resp.StatusCode() == http.StatusNotModified || resp.StatusCode() == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("release check: %s", resp.Status())
	}
	if release.Draft || release.Prerelease {
		return nil
	}
	if release.TagName == "" {
		return errNoReleaseTag
	}

	vc.mu.Lock()
	vc.latest = normalizeVersion(release.TagName)
	if tag := resp.Header().Get("ETag"); tag != "" {
		vc.etag = tag
	}
	vc.mu.Unlock()
	return nil
}

// Info reports the running build and any newer release.
func (vc *VersionChecker) Info() types.VersionInfo {
	vc.mu.RLock()
	defer vc.mu.RUnlock()

	current := normalizeVersion(Version)
	info := types.VersionInfo{
		Current:   current,
		Latest:    vc.latest,
		Commit:    Commit,
		BuildTime: util.FormatHumanTime(BuildTime),
	}
	if vc.latest != "" && current != "dev" && current != "unknown" {
		info.UpdateAvail = isNewerVersion(vc.latest, current)
	}
	return info
}

func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion reports whether latest is newer than current.
func isNewerVersion(latest, current string) bool {
	canon := func(v string) string {
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		return v
	}
	return semver.Compare(canon(latest), canon(current)) > 0
}
