package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// SnoozeState is the delivery backoff shared by every notifier node.
type SnoozeState struct {
	Until *time.Time
	Times int
}

type SnoozeStore interface {
	Load(ctx context.Context) (SnoozeState, error)
	Store(ctx context.Context, state SnoozeState) error
}

const snoozeKey = "notify:snooze"

// RedisSnooze keeps the snooze in a redis hash.
type RedisSnooze struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisSnooze(client *redis.Client, log *zap.Logger) *RedisSnooze {
	return &RedisSnooze{client: client, log: log}
}

func (s *RedisSnooze) Load(ctx context.Context) (SnoozeState, error) {
	data, err := s.client.HGetAll(ctx, snoozeKey).Result()
	if err != nil {
		return SnoozeState{}, err
	}
	return parseSnooze(data, s.log), nil
}

// parseSnooze reads the hash fields. A field that does not parse is reported
// and read as unset, so delivery resumes instead of stalling on a bad key.
func parseSnooze(data map[string]string, log *zap.Logger) SnoozeState {
	var state SnoozeState
	if raw, ok := data["times"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			log.Warn("ignoring unparsable snooze field", zap.String("key", snoozeKey), zap.String("field", "times"), zap.String("value", raw), zap.Error(err))
		} else {
			state.Times = n
		}
	}
	if raw, ok := data["until"]; ok && raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		switch {
		case err != nil:
			log.Warn("ignoring unparsable snooze field", zap.String("key", snoozeKey), zap.String("field", "until"), zap.String("value", raw), zap.Error(err))
		case unix > 0:
			t := time.Unix(unix, 0).UTC()
			state.Until = &t
		}
	}
	return state
}

func (s *RedisSnooze) Store(ctx context.Context, state SnoozeState) error {
	var until int64
	if state.Until != nil {
		until = state.Until.Unix()
	}
	return s.client.HSet(ctx, snoozeKey, "until", until, "times", state.Times).Err()
}

// LocalSnooze keeps the snooze in memory for single-node runs and tests.
type LocalSnooze struct {
	mu    sync.Mutex
	state SnoozeState
}

func NewLocalSnooze() *LocalSnooze {
	return &LocalSnooze{}
}

func (s *LocalSnooze) Load(context.Context) (SnoozeState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *LocalSnooze) Store(_ context.Context, state SnoozeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}
