package consent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DecisionCache reusa veredictos recientes del servicio de consentimiento
// para que la reentrega de un job no repita la llamada HTTP.
type DecisionCache interface {
	Get(ctx context.Context, userID, consentTokenID, scope string) (Result, bool)
	Put(ctx context.Context, userID, consentTokenID, scope string, result Result)
}

type redisGetSetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type redisDecisionCache struct {
	client redisGetSetter
	ttl    time.Duration
	prefix string
}

// NewRedisDecisionCache construye el cache sobre redis. Cliente nil
// devuelve nil: la puerta simplemente no cachea.
func NewRedisDecisionCache(client *redis.Client, ttl time.Duration) DecisionCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisDecisionCache{
		client: client,
		ttl:    ttl,
		prefix: "consent:verdict:",
	}
}

func (c *redisDecisionCache) key(userID, consentTokenID, scope string) string {
	return c.prefix + strings.Join([]string{userID, consentTokenID, scope}, "|")
}

func (c *redisDecisionCache) Get(ctx context.Context, userID, consentTokenID, scope string) (Result, bool) {
	if c == nil || c.client == nil {
		return Result{}, false
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	raw, err := c.client.Get(ctx, c.key(userID, consentTokenID, scope)).Result()
	if err != nil {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Result{}, false
	}
	return result, true
}

func (c *redisDecisionCache) Put(ctx context.Context, userID, consentTokenID, scope string, result Result) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	// Un cache caido no bloquea la verificacion; el error se ignora.
	_ = c.client.Set(ctx, c.key(userID, consentTokenID, scope), raw, c.ttl).Err()
}
