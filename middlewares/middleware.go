package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Git-Paul-Emile/seek-front-sub000/metrics"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	OwnerHeader       = "X-Owner-ID"
	IdempotencyHeader = "X-Idempotency-Key"
	OwnerIDKey        = "owner_id"
	IdemKey           = "idem_key"
)

// OwnerScope scopes the request to the owner named in X-Owner-ID. It is a
// partition key, not authentication.
func OwnerScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader(OwnerHeader)
		if ownerID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + OwnerHeader + " header"})
			return
		}
		c.Set(OwnerIDKey, ownerID)
		c.Next()
	}
}

// reservationTTL bounds how long a crashed request can hold its key.
const reservationTTL = 5 * time.Minute

// CachedResponse with a zero Status marks a request still in flight.
type CachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

func (r *CachedResponse) InFlight() bool {
	return r.Status == 0
}

// ResponseCache stores responses of idempotent requests. Reserve claims a key
// only if nobody holds it yet.
type ResponseCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisResponseCache struct {
	client *redis.Client
}

func NewRedisResponseCache(client *redis.Client) *RedisResponseCache {
	return &RedisResponseCache{client: client}
}

// Get returns (nil, nil) on a cache miss.
func (r *RedisResponseCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *RedisResponseCache) Set(ctx context.Context, key string, resp CachedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, ttl).Err()
}

func (r *RedisResponseCache) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(CachedResponse{})
	if err != nil {
		return false, err
	}
	return r.client.SetNX(ctx, key, raw, ttl).Result()
}

func (r *RedisResponseCache) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

type bodyWriter struct {
	gin.ResponseWriter
	body []byte
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.body = append(w.body, b...)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when X-Idempotency-Key was already
// seen for this owner. The key is reserved before the handler runs, so a
// concurrent request with the same key gets 409 instead of sending twice.
// Only successful responses are stored; failures release the key. Cache
// errors are logged and the request goes through.
func Idempotency(cache ResponseCache, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		idempotencyKey := c.GetHeader(IdempotencyHeader)
		if idempotencyKey == "" || cache == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		c.Set(IdemKey, idempotencyKey)
		cacheKey := fmt.Sprintf("idempotency:%s:%s:%s", c.GetString(OwnerIDKey), c.FullPath(), idempotencyKey)

		cached, err := cache.Get(ctx, cacheKey)
		if err != nil {
			log.Warn("Idempotency cache read failed", zap.String("key", cacheKey), zap.Error(err))
		}
		if cached != nil {
			if cached.InFlight() {
				rejectInFlight(c)
				return
			}
			metrics.HttpIdempotentReplaysTotal.Inc()
			c.Header("Idempotent-Replay", "true")
			c.Data(cached.Status, "application/json", cached.Body)
			c.Abort()
			return
		}

		reserved := false
		if err == nil {
			reserved, err = cache.Reserve(ctx, cacheKey, min(ttl, reservationTTL))
			if err != nil {
				log.Warn("Idempotency key reservation failed", zap.String("key", cacheKey), zap.Error(err))
			} else if !reserved {
				rejectInFlight(c)
				return
			}
		}

		bw := &bodyWriter{ResponseWriter: c.Writer}
		c.Writer = bw
		c.Next()

		// The request context may be done once the handler returns.
		storeCtx := context.WithoutCancel(ctx)
		status := c.Writer.Status()
		if status < 400 {
			if err := cache.Set(storeCtx, cacheKey, CachedResponse{Status: status, Body: bw.body}, ttl); err != nil {
				log.Warn("Idempotency cache write failed", zap.String("key", cacheKey), zap.Error(err))
			}
			return
		}
		if reserved {
			if err := cache.Release(storeCtx, cacheKey); err != nil {
				log.Warn("Idempotency key release failed", zap.String("key", cacheKey), zap.Error(err))
			}
		}
	}
}

func rejectInFlight(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this " + IdempotencyHeader + " is still in progress"})
}
