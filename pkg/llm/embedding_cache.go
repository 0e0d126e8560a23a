package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kart-io/logger"
	goredis "github.com/redis/go-redis/v9"
)

// EmbeddingCacheConfig configures the Redis backed embedding cache.
type EmbeddingCacheConfig struct {
	// TTL is the cache entry lifetime. Zero keeps entries forever.
	TTL time.Duration

	// KeyPrefix namespaces the cache keys.
	KeyPrefix string
}

// DefaultEmbeddingCacheConfig returns the default cache configuration.
// Embeddings for a fixed model never change, so a long TTL is safe.
func DefaultEmbeddingCacheConfig() *EmbeddingCacheConfig {
	return &EmbeddingCacheConfig{
		TTL:       7 * 24 * time.Hour,
		KeyPrefix: "emb:",
	}
}

// CachedEmbeddingProvider wraps an EmbeddingProvider with a Redis cache.
// Cache failures degrade to direct provider calls, they never fail the
// request.
type CachedEmbeddingProvider struct {
	provider EmbeddingProvider
	redis    *goredis.Client
	config   *EmbeddingCacheConfig
}

var _ EmbeddingProvider = (*CachedEmbeddingProvider)(nil)

// NewCachedEmbeddingProvider creates a caching wrapper around provider.
func NewCachedEmbeddingProvider(
	provider EmbeddingProvider,
	redis *goredis.Client,
	config *EmbeddingCacheConfig,
) *CachedEmbeddingProvider {
	if config == nil {
		config = DefaultEmbeddingCacheConfig()
	}
	return &CachedEmbeddingProvider{
		provider: provider,
		redis:    redis,
		config:   config,
	}
}

// cacheKey hashes the text so arbitrarily long chunk contents produce
// fixed size keys.
func (c *CachedEmbeddingProvider) cacheKey(text string) string {
	hash := sha256.Sum256([]byte(text))
	return c.config.KeyPrefix + hex.EncodeToString(hash[:])
}

// EmbedSingle returns the cached embedding for text or computes and
// stores it.
func (c *CachedEmbeddingProvider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	if c.redis == nil {
		return c.provider.EmbedSingle(ctx, text)
	}

	key := c.cacheKey(text)

	data, err := c.redis.Get(ctx, key).Bytes()
	if err == nil {
		var embedding []float32
		if err := json.Unmarshal(data, &embedding); err == nil {
			logger.Debugw("embedding cache hit", "key", key)
			return embedding, nil
		}
		logger.Warnw("corrupt cached embedding, deleting", "key", key, "error", err.Error())
		_ = c.redis.Del(ctx, key).Err()
	} else if err != goredis.Nil {
		logger.Warnw("redis get failed, falling back to provider", "error", err.Error())
	}

	embedding, err := c.provider.EmbedSingle(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(embedding); err == nil {
		if err := c.redis.Set(ctx, key, data, c.config.TTL).Err(); err != nil {
			logger.Warnw("storing embedding in cache failed", "error", err.Error())
		}
	}

	return embedding, nil
}

// Embed resolves each text through the cache and batches the misses into
// one provider call.
func (c *CachedEmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.redis == nil || len(texts) == 0 {
		return c.provider.Embed(ctx, texts)
	}

	out := make([][]float32, len(texts))
	var missTexts []string
	var missIndexes []int

	for i, text := range texts {
		data, err := c.redis.Get(ctx, c.cacheKey(text)).Bytes()
		if err == nil {
			var embedding []float32
			if err := json.Unmarshal(data, &embedding); err == nil {
				out[i] = embedding
				continue
			}
		}
		missTexts = append(missTexts, text)
		missIndexes = append(missIndexes, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	logger.Debugw("embedding cache lookup",
		"total", len(texts),
		"hits", len(texts)-len(missTexts),
		"misses", len(missTexts),
	)

	computed, err := c.provider.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(computed) != len(missTexts) {
		return c.provider.Embed(ctx, texts)
	}

	for j, embedding := range computed {
		out[missIndexes[j]] = embedding
		if data, err := json.Marshal(embedding); err == nil {
			if err := c.redis.Set(ctx, c.cacheKey(missTexts[j]), data, c.config.TTL).Err(); err != nil {
				logger.Warnw("storing embedding in cache failed", "error", err.Error())
			}
		}
	}

	return out, nil
}
