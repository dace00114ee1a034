package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/rolacode/telehealth-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by the uploader.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader stores profile images in S3 and returns public URLs.
type Uploader struct {
	s3Client      S3API
	bucket        string
	publicBaseURL string
	maxAttempts   int
	retryDelay    time.Duration
	logger        *logging.Logger
}

// Config holds uploader configuration.
type Config struct {
	Bucket        string
	PublicBaseURL string
	MaxAttempts   int
}

// NewUploader creates a media uploader. Returns nil when no bucket is
// configured.
func NewUploader(client S3API, cfg Config, logger *logging.Logger) *Uploader {
	if client == nil || cfg.Bucket == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Uploader{
		s3Client:      client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		maxAttempts:   cfg.MaxAttempts,
		retryDelay:    500 * time.Millisecond,
		logger:        logger,
	}
}

// Upload stores the image and returns its public URL. Transient failures
// are retried up to maxAttempts times.
func (u *Uploader) Upload(ctx context.Context, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("media: empty upload")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := objectKey(contentType)
	input := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	var lastErr error
	for attempt := 1; attempt <= u.maxAttempts; attempt++ {
		input.Body = bytes.NewReader(data)
		if _, err := u.s3Client.PutObject(ctx, input); err != nil {
			lastErr = err
			u.logger.Warn("media: upload attempt failed", "attempt", attempt, "key", key, "error", err)
			if attempt < u.maxAttempts {
				select {
				case <-ctx.Done():
					return "", fmt.Errorf("media: upload canceled: %w", ctx.Err())
				case <-time.After(u.retryDelay):
				}
			}
			continue
		}
		u.logger.Info("media: uploaded", "key", key, "attempts", attempt)
		return u.publicURL(key), nil
	}
	return "", fmt.Errorf("media: upload failed after %d attempts: %w", u.maxAttempts, lastErr)
}

func (u *Uploader) publicURL(key string) string {
	if u.publicBaseURL != "" {
		return u.publicBaseURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", u.bucket, key)
}

func objectKey(contentType string) string {
	ext := ".bin"
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	now := time.Now().UTC()
	return fmt.Sprintf("profiles/%d/%02d/%s%s", now.Year(), now.Month(), uuid.NewString(), ext)
}
