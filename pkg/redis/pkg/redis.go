package redis

import (
	"context"
	"fmt"
	"time"

	re "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// Dedup is the small store consumers use to tolerate at-least-once delivery.
// MarkSeen returns true the first time a key is offered within the TTL window.
type Dedup interface {
	MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

type Config struct {
	Address   string
	Password  string
	DB        int32
	Namespace string
}

type dedup struct {
	redis     *re.Client
	namespace string
}

func ReadConfig() *Config {
	if !viper.GetBool("redis.enabled") {
		return nil
	}
	return &Config{
		Address:   viper.GetString("redis.address"),
		Password:  viper.GetString("redis.password"),
		DB:        viper.GetInt32("redis.db"),
		Namespace: viper.GetString("redis.namespace"),
	}
}

// New returns the redis-backed store, or the Dummy when redis is disabled.
// The Dummy admits every key, which degrades to plain at-least-once handling.
func New(cfg *Config) Dedup {
	if cfg == nil {
		return Dummy()
	}

	return &dedup{
		redis: re.NewClient(&re.Options{
			Addr:     cfg.Address,
			Password: cfg.Password,
			DB:       int(cfg.DB),
		}),
		namespace: cfg.Namespace,
	}
}

func (r *dedup) withNamespace(key string) string {
	if r.namespace == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", r.namespace, key)
}

func (r *dedup) MarkSeen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return r.redis.SetNX(ctx, r.withNamespace(key), 1, ttl).Result()
}

func (r *dedup) Delete(ctx context.Context, key string) (bool, error) {
	result, err := r.redis.Del(ctx, r.withNamespace(key)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}
