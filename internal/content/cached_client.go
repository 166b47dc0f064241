package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// Store is the key/value backend of CachedClient
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// RedisStore keeps cached responses in Redis
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore wraps an open Redis client
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) DeletePrefix(ctx context.Context, prefix string) error {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// CachedClient serves repeated content-service calls from a Store. Cache
// failures are logged and fall through to the wrapped client.
type CachedClient struct {
	inner  Client
	store  Store
	ttl    time.Duration
	prefix string
	log    zerolog.Logger
}

var _ Client = (*CachedClient)(nil)
var _ Invalidator = (*CachedClient)(nil)

// NewCachedClient wraps inner with a response cache
func NewCachedClient(inner Client, store Store, ttl time.Duration, log zerolog.Logger) *CachedClient {
	return &CachedClient{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		prefix: "spacetraveling:content:",
		log:    log.With().Str("component", "content_cache").Logger(),
	}
}

func (c *CachedClient) Query(ctx context.Context, predicates []Predicate, opts QueryOptions) (*PageResponse, error) {
	key := c.key("query", encodeQuery(predicates), fmt.Sprintf("%+v", opts))

	var page PageResponse
	if c.load(ctx, key, &page) {
		return &page, nil
	}

	fresh, err := c.inner.Query(ctx, predicates, opts)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, fresh)
	return fresh, nil
}

func (c *CachedClient) GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Record, error) {
	key := c.key("uid", docType, uid, fmt.Sprintf("%+v", opts))

	var rec Record
	if c.load(ctx, key, &rec) {
		return &rec, nil
	}

	fresh, err := c.inner.GetByUID(ctx, docType, uid, opts)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, fresh)
	return fresh, nil
}

func (c *CachedClient) FetchPage(ctx context.Context, cursor string) (*PageResponse, error) {
	key := c.key("page", cursor)

	var page PageResponse
	if c.load(ctx, key, &page) {
		return &page, nil
	}

	fresh, err := c.inner.FetchPage(ctx, cursor)
	if err != nil {
		return nil, err
	}
	c.save(ctx, key, fresh)
	return fresh, nil
}

// Invalidate drops every cached response and invalidates the wrapped client
func (c *CachedClient) Invalidate(ctx context.Context) error {
	var errs []error
	if err := c.store.DeletePrefix(ctx, c.prefix); err != nil {
		errs = append(errs, fmt.Errorf("clearing content cache: %w", err))
	}
	if inv, ok := c.inner.(Invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *CachedClient) key(kind string, parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return c.prefix + kind + ":" + hex.EncodeToString(h[:16])
}

func (c *CachedClient) load(ctx context.Context, key string, out interface{}) bool {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		return false
	}
	return true
}

func (c *CachedClient) save(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache encode failed")
		return
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
