package cache

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
}

func NewRedisClient(cfg RedisConfig) *redis.Client {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}
	return redis.NewClient(opts)
}

// redisCache stores gzip-compressed JSON results under a per-record-type
// prefix, and tracks write times in a zset so stale entries can be purged in
// bulk by the cleanup job.
type redisCache[R domain.Record] struct {
	client *redis.Client
	prefix string
}

func NewRedisCache[R domain.Record](client *redis.Client, prefix string) domain.ResultCache[R] {
	return &redisCache[R]{client: client, prefix: prefix}
}

func (r *redisCache[R]) key(queryKey string) string {
	return fmt.Sprintf("%s:%s", r.prefix, queryKey)
}

func (r *redisCache[R]) indexKey() string {
	return fmt.Sprintf("%s_timestamps", r.prefix)
}

func (r *redisCache[R]) Get(ctx context.Context, queryKey string) (*domain.RankedResult[R], error) {
	val, err := r.client.Get(ctx, r.key(queryKey)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	decompressed, err := decompress(val)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	if decompressed == nil {
		return nil, nil
	}

	var res domain.RankedResult[R]
	if err := json.Unmarshal(decompressed, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *redisCache[R]) Put(ctx context.Context, queryKey string, res *domain.RankedResult[R], ttl time.Duration) error {
	val, err := json.Marshal(res)
	if err != nil {
		return err
	}

	compressed, err := compress(val)
	if err != nil {
		return fmt.Errorf("failed to compress: %w", err)
	}

	key := r.key(queryKey)
	if err := r.client.Set(ctx, key, compressed, ttl).Err(); err != nil {
		return err
	}

	return r.client.ZAdd(ctx, r.indexKey(), redis.Z{
		Score:  float64(time.Now().Unix()),
		Member: key,
	}).Err()
}

func (r *redisCache[R]) DeleteOlderThan(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).Unix()

	keys, err := r.client.ZRangeByScore(ctx, r.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return err
	}
	return r.client.ZRem(ctx, r.indexKey(), keys).Err()
}

func compress(data []byte) ([]byte, error) {
	var b bytes.Buffer
	w := gzip.NewWriter(&b)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
