package intake

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type putRecord struct {
	path        string
	contentType string
}

type fakeBucket struct {
	mu     sync.Mutex
	puts   []putRecord
	status int
}

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	b.mu.Lock()
	b.puts = append(b.puts, putRecord{path: r.URL.Path, contentType: r.Header.Get("Content-Type")})
	status := b.status
	b.mu.Unlock()

	if status != 0 {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
		return
	}
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func newTestS3(t *testing.T, bucket *fakeBucket) *S3Uploader {
	t.Helper()
	srv := httptest.NewServer(bucket)
	t.Cleanup(srv.Close)

	u, err := NewS3Uploader(S3Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "intake",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Prefix:          "/symptoms/",
	})
	if err != nil {
		t.Fatalf("NewS3Uploader() error = %v", err)
	}
	return u
}

func TestS3UploaderUpload(t *testing.T) {
	bucket := &fakeBucket{}
	u := newTestS3(t, bucket)

	p, err := NewPayload(testArtifact("audio"), "headache")
	if err != nil {
		t.Fatal(err)
	}
	receipt, err := u.Upload(context.Background(), testConsultation, p)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	want := []putRecord{
		{path: "/intake/symptoms/" + testConsultation + "/symptoms.webm", contentType: "audio/webm"},
		{path: "/intake/symptoms/" + testConsultation + "/notes.txt", contentType: "text/plain; charset=utf-8"},
	}
	if len(bucket.puts) != len(want) {
		t.Fatalf("puts = %+v, want %d", bucket.puts, len(want))
	}
	for i := range want {
		if bucket.puts[i] != want[i] {
			t.Errorf("put[%d] = %+v, want %+v", i, bucket.puts[i], want[i])
		}
	}

	if receipt.Location != "s3://intake/symptoms/"+testConsultation+"/symptoms.webm" {
		t.Errorf("Location = %q", receipt.Location)
	}
	if receipt.Size != len("audio") || !receipt.HasNotes {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestS3UploaderNotesOnly(t *testing.T) {
	bucket := &fakeBucket{}
	u := newTestS3(t, bucket)

	p, _ := NewPayload(nil, "dizzy")
	receipt, err := u.Upload(context.Background(), testConsultation, p)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if len(bucket.puts) != 1 {
		t.Fatalf("puts = %+v, want 1", bucket.puts)
	}
	if receipt.Location != "s3://intake/symptoms/"+testConsultation+"/notes.txt" {
		t.Errorf("Location = %q", receipt.Location)
	}
}

func TestS3UploaderRejected(t *testing.T) {
	bucket := &fakeBucket{status: http.StatusForbidden}
	u := newTestS3(t, bucket)

	p, _ := NewPayload(testArtifact("audio"), "")
	_, err := u.Upload(context.Background(), testConsultation, p)
	var uploadErr *UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("Upload() error = %v, want *UploadError", err)
	}
	if uploadErr.Target != "s3" {
		t.Errorf("Target = %q", uploadErr.Target)
	}
}

func TestS3ConfigIsConfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  S3Config
		want bool
	}{
		{name: "complete", cfg: S3Config{Bucket: "b", AccessKeyID: "k", SecretAccessKey: "s"}, want: true},
		{name: "no bucket", cfg: S3Config{AccessKeyID: "k", SecretAccessKey: "s"}},
		{name: "no secret", cfg: S3Config{Bucket: "b", AccessKeyID: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}
