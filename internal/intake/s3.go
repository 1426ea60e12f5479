package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/parth-siprahub/Patient-frontdesk-UI/internal/util"
)

// S3Config configures an S3Uploader.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// IsConfigured reports whether all required fields are set.
func (c *S3Config) IsConfigured() bool {
	return util.IsConfigured(c.Bucket, c.AccessKeyID, c.SecretAccessKey)
}

// S3Uploader stores payloads in an S3-compatible bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Uploader creates an uploader for the configured bucket.
func NewS3Uploader(cfg S3Config) (*S3Uploader, error) {
	if !cfg.IsConfigured() {
		return nil, errors.New("s3 bucket and credentials are required")
	}
	return &S3Uploader{
		client: createS3Client(&cfg),
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// createS3Client creates an S3 client with the given configuration.
func createS3Client(cfg *S3Config) *s3.Client {
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	options := []func(*s3.Options){
		func(o *s3.Options) {
			o.Credentials = creds
			o.Region = region
		},
	}

	if cfg.Endpoint != "" {
		options = append(options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return s3.New(s3.Options{}, options...)
}

// ObjectKey returns the key for a file belonging to a consultation.
func (u *S3Uploader) ObjectKey(consultationID, name string) string {
	return path.Join(u.prefix, consultationID, name)
}

// Upload implements Uploader.
func (u *S3Uploader) Upload(ctx context.Context, consultationID string, p *Payload) (*Receipt, error) {
	receipt := &Receipt{
		ConsultationID: consultationID,
		HasNotes:       p.HasNotes(),
	}

	if p.HasAudio() {
		key := u.ObjectKey(consultationID, p.Filename())
		data := p.Artifact().Bytes()
		if err := u.put(ctx, key, p.Artifact().ContentType(), data); err != nil {
			return nil, &UploadError{Target: "s3", ConsultationID: consultationID, Err: fmt.Errorf("put %s: %w", key, err)}
		}
		receipt.Location = fmt.Sprintf("s3://%s/%s", u.bucket, key)
		receipt.Filename = p.Filename()
		receipt.Size = len(data)
	}

	if p.HasNotes() {
		key := u.ObjectKey(consultationID, "notes.txt")
		if err := u.put(ctx, key, "text/plain; charset=utf-8", []byte(p.Notes())); err != nil {
			return nil, &UploadError{Target: "s3", ConsultationID: consultationID, Err: fmt.Errorf("put %s: %w", key, err)}
		}
		if receipt.Location == "" {
			receipt.Location = fmt.Sprintf("s3://%s/%s", u.bucket, key)
		}
	}

	receipt.UploadedAt = time.Now()
	slog.Info("symptoms stored", "consultation_id", consultationID, "location", receipt.Location)
	return receipt, nil
}

func (u *S3Uploader) put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	return err
}
