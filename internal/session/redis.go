package session

import (
	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/domain"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	redisKeyPrefix  = "consultation:session:"
	redisLockPrefix = "consultation:lock:"
	// A turn lock outlives the oracle timeout by this much before Redis drops it.
	lockGrace = 30 * time.Second
)

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisStore struct {
	rdb     *goredis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisStore creates a Store that keeps each session as one JSON value
// with a TTL. turnTimeout bounds how long a turn lock may be held.
func NewRedisStore(rdb *goredis.Client, ttl, turnTimeout time.Duration) Store {
	return &redisStore{
		rdb:     rdb,
		ttl:     ttl,
		lockTTL: turnTimeout + lockGrace,
	}
}

func sessionKey(userID primitive.ObjectID) string { return redisKeyPrefix + userID.Hex() }
func lockKey(userID primitive.ObjectID) string    { return redisLockPrefix + userID.Hex() }

func (r *redisStore) Get(ctx context.Context, userID primitive.ObjectID) (*domain.Session, error) {
	raw, err := r.rdb.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *redisStore) Save(ctx context.Context, s *domain.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.rdb.Set(ctx, sessionKey(s.UserID), raw, r.ttl).Err()
}

func (r *redisStore) Delete(ctx context.Context, userID primitive.ObjectID) error {
	return r.rdb.Del(ctx, sessionKey(userID)).Err()
}

func (r *redisStore) Lock(ctx context.Context, userID primitive.ObjectID) (func(), error) {
	token := uuid.NewString()
	ok, err := r.rdb.SetNX(ctx, lockKey(userID), token, r.lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, r.rdb, []string{lockKey(userID)}, token).Err()
	}, nil
}
