package storage

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Redis stores each collection as one string value without expiry.
type Redis struct {
	client    *redis.Client
	namespace string
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

// Load implements Collection.
func (r *Redis) Load(ctx context.Context, name string, dest any) (bool, error) {
	if err := checkName(name); err != nil {
		return false, err
	}
	key := Key(r.namespace, name)
	payload, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, wrap("redis", "load", key, err)
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return false, wrap("redis", "decode", key, err)
	}
	return true, nil
}

// Save implements Collection.
func (r *Redis) Save(ctx context.Context, name string, value any) error {
	if err := checkName(name); err != nil {
		return err
	}
	key := Key(r.namespace, name)
	raw, err := json.Marshal(value)
	if err != nil {
		return wrap("redis", "encode", key, err)
	}
	if err := r.client.Set(ctx, key, raw, 0).Err(); err != nil {
		return wrap("redis", "save", key, err)
	}
	return nil
}
