package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tokenKeyPrefix = "password_reset:"

// ErrTokenUnknown indicates the token was never issued, expired, or was
// already consumed.
var ErrTokenUnknown = errors.New("passwordreset: token unknown or already used")

// TokenStore tracks outstanding reset tokens in Redis so each token can
// be used exactly once.
type TokenStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

// NewTokenStore creates a reset token store.
func NewTokenStore(redisClient *redis.Client, ttl time.Duration) *TokenStore {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &TokenStore{
		redis:  redisClient,
		tracer: otel.Tracer("telehealth.internal.passwordreset"),
		ttl:    ttl,
	}
}

// Issue records a fresh token ID for the user and returns it.
func (s *TokenStore) Issue(ctx context.Context, userID string) (string, error) {
	if s == nil || s.redis == nil {
		return "", errors.New("passwordreset: token store not configured")
	}
	if userID == "" {
		return "", errors.New("passwordreset: userID required")
	}

	ctx, span := s.tracer.Start(ctx, "passwordreset.issue")
	defer span.End()

	tokenID := uuid.NewString()
	if err := s.redis.Set(ctx, tokenKey(tokenID), userID, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("passwordreset: failed to issue token: %w", err)
	}
	return tokenID, nil
}

// Consume removes the token and returns the user it was issued for. A
// second call with the same token fails with ErrTokenUnknown.
func (s *TokenStore) Consume(ctx context.Context, tokenID string) (string, error) {
	if s == nil || s.redis == nil {
		return "", errors.New("passwordreset: token store not configured")
	}
	if tokenID == "" {
		return "", ErrTokenUnknown
	}

	ctx, span := s.tracer.Start(ctx, "passwordreset.consume")
	defer span.End()

	userID, err := s.redis.GetDel(ctx, tokenKey(tokenID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrTokenUnknown
		}
		span.RecordError(err)
		return "", fmt.Errorf("passwordreset: failed to consume token: %w", err)
	}
	return userID, nil
}

func tokenKey(tokenID string) string {
	return tokenKeyPrefix + tokenID
}
