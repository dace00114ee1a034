package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/redis/go-redis/v9"

	"github.com/rolacode/telehealth-platform/internal/chat"
	appconfig "github.com/rolacode/telehealth-platform/internal/config"
	"github.com/rolacode/telehealth-platform/internal/media"
	"github.com/rolacode/telehealth-platform/internal/notify"
	"github.com/rolacode/telehealth-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildMessageStore selects the chat persistence backend from config.
func BuildMessageStore(cfg *appconfig.Config, pool chat.PgxPool, awsCfg aws.Config, logger *logging.Logger) (chat.MessageStore, error) {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.MessageStore)) {
	case "", "postgres":
		if pool == nil {
			return nil, fmt.Errorf("bootstrap: postgres message store requires DATABASE_URL")
		}
		logger.Info("chat messages stored in postgres")
		return chat.NewPostgresStore(pool), nil
	case "dynamo", "dynamodb":
		if cfg.DynamoMessageTable == "" {
			return nil, fmt.Errorf("bootstrap: dynamo message store requires DYNAMO_MESSAGE_TABLE")
		}
		logger.Info("chat messages stored in dynamodb", "table", cfg.DynamoMessageTable)
		return chat.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.DynamoMessageTable, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown MESSAGE_STORE %q", cfg.MessageStore)
	}
}

// BuildEmailSender selects the email provider from config. Falls back to
// the stub sender when nothing is configured.
func BuildEmailSender(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) notify.EmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.EmailProvider)) {
	case "sendgrid":
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sender != nil {
			logger.Info("email via sendgrid")
			return sender
		}
		logger.Warn("sendgrid selected but not configured, using stub email sender")
	case "ses":
		if sender := notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SESFromName,
		}, logger); sender != nil {
			logger.Info("email via SES")
			return sender
		}
	}
	return notify.NewStubEmailSender(logger)
}

// BuildMediaUploader wires the S3-backed profile image uploader, or nil
// when no bucket is configured.
func BuildMediaUploader(cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) *media.Uploader {
	if cfg == nil || cfg.MediaBucket == "" {
		return nil
	}
	return media.NewUploader(s3.NewFromConfig(awsCfg), media.Config{
		Bucket:        cfg.MediaBucket,
		PublicBaseURL: cfg.MediaPublicBaseURL,
		MaxAttempts:   cfg.MediaUploadRetries,
	}, logger)
}
