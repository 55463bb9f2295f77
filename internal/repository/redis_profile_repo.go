package repository

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisProfileRepo はRedisを使用したプロファイルリポジトリ。
// 複数マシンで同じプロファイルを共有する場合に使う。
type RedisProfileRepo struct {
	client *redis.Client
	scope  string
}

// NewRedisProfileRepo はRedisProfileRepoを生成する。
func NewRedisProfileRepo(client *redis.Client, scope string) *RedisProfileRepo {
	if scope == "" {
		scope = DefaultScope
	}
	return &RedisProfileRepo{client: client, scope: scope}
}

func (r *RedisProfileRepo) redisKey(key string) string {
	return fmt.Sprintf("wishwall:profile:%s:%s", r.scope, key)
}

// Get は指定キーの値を取得する。
func (r *RedisProfileRepo) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.redisKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get profile entry: %w", err)
	}
	return value, true, nil
}

// Set は指定キーに値を保存する。有効期限は設けない。
func (r *RedisProfileRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.redisKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set profile entry: %w", err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *RedisProfileRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete profile entry: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ProfileStore = (*RedisProfileRepo)(nil)
