package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"feedbackhub/backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// fillScript caches a lookup unless the hash was revoked. Both keys share a
// hash tag so the script also runs on Redis Cluster.
var fillScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[2])
return 1
`)

type cachedKey struct {
	ApplicationID  uuid.UUID `json:"application_id"`
	IsActive       bool      `json:"is_active"`
	AllowedOrigins []string  `json:"allowed_origins,omitempty"`
}

// keyCache fronts API key lookups. A nil Redis client disables it.
type keyCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func newKeyCache(rdb *redis.Client, ttl time.Duration) *keyCache {
	return &keyCache{rdb: rdb, ttl: ttl}
}

func entryKey(hash string) string     { return "apikey:{" + hash + "}" }
func tombstoneKey(hash string) string { return "apikey:revoked:{" + hash + "}" }

func (k *keyCache) get(ctx context.Context, hash string) (*models.Application, bool) {
	if k == nil || k.rdb == nil {
		return nil, false
	}
	raw, err := k.rdb.Get(ctx, entryKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Printf("WARNING: API key cache read failed, falling back to database: %v", err)
		return nil, false
	}
	var entry cachedKey
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &models.Application{
		ID:             entry.ApplicationID,
		APIKeyHash:     hash,
		IsActive:       entry.IsActive,
		AllowedOrigins: pq.StringArray(entry.AllowedOrigins),
	}, true
}

func (k *keyCache) fill(ctx context.Context, app *models.Application) {
	if k == nil || k.rdb == nil {
		return
	}
	raw, err := json.Marshal(cachedKey{
		ApplicationID:  app.ID,
		IsActive:       app.IsActive,
		AllowedOrigins: app.AllowedOrigins,
	})
	if err != nil {
		return
	}
	keys := []string{entryKey(app.APIKeyHash), tombstoneKey(app.APIKeyHash)}
	if err := fillScript.Run(ctx, k.rdb, keys, raw, k.ttl.Milliseconds()).Err(); err != nil {
		log.Printf("WARNING: API key cache write failed: %v", err)
	}
}

// revoke drops the cached entry and blocks it from being re-cached for one TTL,
// which outlasts any lookup that read the old row before the revoke.
func (k *keyCache) revoke(ctx context.Context, hash string) error {
	if k == nil || k.rdb == nil || hash == "" {
		return nil
	}
	_, err := k.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tombstoneKey(hash), "1", k.ttl)
		pipe.Del(ctx, entryKey(hash))
		return nil
	})
	return err
}
