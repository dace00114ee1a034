package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolacode/telehealth-platform/pkg/logging"
)

type fakeS3 struct {
	puts     []*s3.PutObjectInput
	failures int
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, params)
	if f.failures > 0 {
		f.failures--
		return nil, errors.New("service unavailable")
	}
	return &s3.PutObjectOutput{}, nil
}

func newTestUploader(t *testing.T, client S3API) *Uploader {
	t.Helper()
	u := NewUploader(client, Config{
		Bucket:        "clinic-media",
		PublicBaseURL: "https://cdn.clinic.example.com",
	}, logging.New("error"))
	require.NotNil(t, u)
	u.retryDelay = time.Millisecond
	return u
}

func TestUploadReturnsPublicURL(t *testing.T) {
	fake := &fakeS3{}
	u := newTestUploader(t, fake)

	url, err := u.Upload(context.Background(), []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.clinic.example.com/profiles/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "clinic-media", aws.ToString(put.Bucket))
	assert.Equal(t, "image/png", aws.ToString(put.ContentType))
	body, err := io.ReadAll(put.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), body)
}

func TestUploadRetriesTransientFailures(t *testing.T) {
	fake := &fakeS3{failures: 2}
	u := newTestUploader(t, fake)

	_, err := u.Upload(context.Background(), []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Len(t, fake.puts, 3)
}

func TestUploadGivesUpAfterMaxAttempts(t *testing.T) {
	fake := &fakeS3{failures: 5}
	u := newTestUploader(t, fake)

	_, err := u.Upload(context.Background(), []byte("png-bytes"), "image/png")
	require.Error(t, err)
	assert.Len(t, fake.puts, 3)
}

func TestUploadRejectsEmptyData(t *testing.T) {
	u := newTestUploader(t, &fakeS3{})

	_, err := u.Upload(context.Background(), nil, "image/png")
	assert.Error(t, err)
}

func TestNewUploaderRequiresBucket(t *testing.T) {
	u := NewUploader(&fakeS3{}, Config{}, nil)
	assert.Nil(t, u)
}

func TestUploadDefaultURLWithoutBaseURL(t *testing.T) {
	fake := &fakeS3{}
	u := NewUploader(fake, Config{Bucket: "clinic-media"}, logging.New("error"))
	require.NotNil(t, u)
	u.retryDelay = time.Millisecond

	url, err := u.Upload(context.Background(), []byte("data"), "image/jpeg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://clinic-media.s3.amazonaws.com/profiles/"))
}
