package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
)

// RoomStore is the directory of valid room ids. Live membership is kept by
// the hub; the store only answers whether a room id may be joined.
type RoomStore interface {
	Create(ctx context.Context, id string) error
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// MemoryStore keeps room ids in process. Entries expire after ttl.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]time.Time
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{rooms: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.live(id) {
		return fmt.Errorf("%w: %s", ErrRoomExists, id)
	}
	s.rooms[id] = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live(id), nil
}

// live must be called with mu held.
func (s *MemoryStore) live(id string) bool {
	exp, ok := s.rooms[id]
	if !ok {
		return false
	}
	if s.ttl > 0 && !s.now().Before(exp) {
		delete(s.rooms, id)
		return false
	}
	return true
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.rooms, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// RedisStore keeps room ids as room:<id> keys with a TTL so several relay
// instances can share one directory.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

func roomKey(id string) string {
	return "room:" + id
}

func (s *RedisStore) Create(ctx context.Context, id string) error {
	ok, err := s.client.SetNX(ctx, roomKey(id), time.Now().Unix(), s.ttl).Result()
	if err != nil {
		return fmt.Errorf("create room %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoomExists, id)
	}
	return nil
}

func (s *RedisStore) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup room %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, roomKey(id)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
