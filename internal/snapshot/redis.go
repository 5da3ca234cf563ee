package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

const redisKeyPrefix = "auction:room:"

// RedisStore keeps one JSON value per room under auction:room:<id>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings before returning. ttl bounds how long an
// orphaned room snapshot survives a dead server; zero means no expiry.
func NewRedisStore(addr, password string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (rs *RedisStore) Save(ctx context.Context, snap *types.RoomSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.State.RoomID, err)
	}
	key := redisKeyPrefix + snap.State.RoomID
	if err := rs.client.Set(ctx, key, data, rs.ttl).Err(); err != nil {
		return fmt.Errorf("writing snapshot %s to redis: %w", snap.State.RoomID, err)
	}
	return nil
}

func (rs *RedisStore) Load(ctx context.Context, roomID string) (*types.RoomSnapshot, error) {
	data, err := rs.client.Get(ctx, redisKeyPrefix+roomID).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s from redis: %w", roomID, err)
	}
	var snap types.RoomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", roomID, err)
	}
	return &snap, nil
}

func (rs *RedisStore) Delete(ctx context.Context, roomID string) error {
	if err := rs.client.Del(ctx, redisKeyPrefix+roomID).Err(); err != nil {
		return fmt.Errorf("deleting snapshot %s from redis: %w", roomID, err)
	}
	return nil
}

func (rs *RedisStore) LoadAll(ctx context.Context) ([]*types.RoomSnapshot, error) {
	var snaps []*types.RoomSnapshot
	iter := rs.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		roomID := iter.Val()[len(redisKeyPrefix):]
		snap, err := rs.Load(ctx, roomID)
		if err == ErrNotFound {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning redis snapshots: %w", err)
	}
	return snaps, nil
}

func (rs *RedisStore) Close(context.Context) error {
	return rs.client.Close()
}
