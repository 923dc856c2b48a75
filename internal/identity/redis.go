package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisDirectory reads identities from the Redis instance the auth service
// writes sessions into.
type RedisDirectory struct {
	rdb *redis.Client
}

func NewRedisDirectory(redisURL string) (*RedisDirectory, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL required for identity directory")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisDirectory{rdb: rdb}, nil
}

func (d *RedisDirectory) Close() error {
	if d == nil || d.rdb == nil {
		return nil
	}
	return d.rdb.Close()
}

func (d *RedisDirectory) Lookup(ctx context.Context, userID string) (*Identity, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrNotFound
	}
	raw, err := d.rdb.Get(ctx, userKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var id Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (d *RedisDirectory) Put(ctx context.Context, id Identity) error {
	if strings.TrimSpace(id.UserID) == "" {
		return fmt.Errorf("identity requires a user id")
	}
	raw, err := json.Marshal(&id)
	if err != nil {
		return err
	}
	return d.rdb.Set(ctx, userKey(id.UserID), raw, 0).Err()
}

func userKey(userID string) string { return "identity:user:" + strings.TrimSpace(userID) }

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		if n, err := strconv.Atoi(p); err == nil {
			db = n
		}
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Password: pass, DB: db}, nil
}
