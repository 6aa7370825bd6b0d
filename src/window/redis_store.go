package window

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis"

	"github.com/exGeni/free-proxy-telegram-bot/src/logger"
)

const maxUpdateRetries = 5

// RedisStore keeps each window in a hash "<prefix>:window:<id>" with the
// fields "proxies" (comma-joined, oldest first) and "locale".
type RedisStore struct {
	client *redis.Client
	prefix string
}

// ConnectRedis dials addr and checks the connection.
func ConnectRedis(addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping().Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrStoreUnavailable, err)
	}
	l := logger.WithComponent("Window/Redis")
	l.Info().Str("addr", addr).Int("db", db).Msg("Redis window store connected.")
	return NewRedisStore(client, prefix), nil
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (rs *RedisStore) key(requesterID int64) string {
	return fmt.Sprintf("%s:window:%d", rs.prefix, requesterID)
}

func decodeWindow(requesterID int64, fields map[string]string) Window {
	return Window{
		RequesterID: requesterID,
		Proxies:     decodeProxies(fields["proxies"]),
		Locale:      fields["locale"],
	}
}

func (rs *RedisStore) Load(ctx context.Context, requesterID int64) (Window, error) {
	fields, err := rs.client.WithContext(ctx).HGetAll(rs.key(requesterID)).Result()
	if err != nil {
		return Window{}, fmt.Errorf("%w: load: %v", ErrStoreUnavailable, err)
	}
	return decodeWindow(requesterID, fields), nil
}

// Update is an optimistic WATCH/MULTI transaction. A concurrent writer for the
// same requester makes it retry on the fresh value instead of overwriting it.
func (rs *RedisStore) Update(ctx context.Context, requesterID int64, fn func(w *Window)) (Window, error) {
	key := rs.key(requesterID)
	var updated Window

	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(key).Result()
		if err != nil {
			return err
		}
		w := decodeWindow(requesterID, fields)
		fn(&w)
		w.RequesterID = requesterID

		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.HMSet(key, map[string]interface{}{
				"proxies": encodeProxies(w.Proxies),
				"locale":  w.Locale,
			})
			return nil
		})
		if err == nil {
			updated = w
		}
		return err
	}

	client := rs.client.WithContext(ctx)
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := client.Watch(txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Window{}, ctxErr
			}
			return Window{}, fmt.Errorf("%w: update: %v", ErrStoreUnavailable, err)
		}
		return updated, nil
	}
	return Window{}, ErrConflict
}

func (rs *RedisStore) Ping(ctx context.Context) error {
	if err := rs.client.WithContext(ctx).Ping().Err(); err != nil {
		return fmt.Errorf("%w: ping: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
