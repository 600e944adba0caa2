package redisStore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) MGet(ctx context.Context, keys ...string) ([]interface{}, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	return s.client.MGet(ctx, keys...).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

// this for the message store
func (s *Store) ListPush(ctx context.Context, key string, value interface{}) error {
	return s.client.RPush(ctx, key, value).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.getCount(ctx, key)
	return count > 0, err
}

func (s *Store) getCount(ctx context.Context, key string) (int64, error) {
	return s.client.Exists(ctx, key).Result()
}

// ListGetLast returns up to n trailing entries of a list, oldest first.
func (s *Store) ListGetLast(ctx context.Context, key string, n int64) ([]string, error) {
	if n <= 0 {
		return s.ListGetAll(ctx, key)
	}
	return s.listRange(ctx, key, -n)
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.listRange(ctx, key, int64(0))
}

func (s *Store) listRange(ctx context.Context, key string, start int64) ([]string, error) {
	result, err := s.client.LRange(ctx, key, start, -1).Result()
	return result, err
}

// registry indexes

// HashSetIfAbsent sets field only when it is not there yet and reports whether it did.
func (s *Store) HashSetIfAbsent(ctx context.Context, key, field string, value interface{}) (bool, error) {
	return s.client.HSetNX(ctx, key, field, value).Result()
}

func (s *Store) HashGet(ctx context.Context, key, field string) (string, error) {
	return s.client.HGet(ctx, key, field).Result()
}

func (s *Store) HashDel(ctx context.Context, key string, fields ...string) error {
	return s.client.HDel(ctx, key, fields...).Err()
}

func (s *Store) SortedAdd(ctx context.Context, key string, score float64, member string) error {
	return s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

func (s *Store) SortedRemove(ctx context.Context, key string, member string) error {
	return s.client.ZRem(ctx, key, member).Err()
}

// SortedNewestFirst returns members by descending score.
func (s *Store) SortedNewestFirst(ctx context.Context, key string) ([]string, error) {
	return s.client.ZRevRange(ctx, key, 0, -1).Result()
}
