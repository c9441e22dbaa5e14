package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

const defaultJournalLen int64 = 200

type RedisCheckpointStore struct {
	rdb        redis.Cmdable
	ttl        time.Duration
	journalLen int64
	prefix     string
}

// Option customizes a RedisCheckpointStore.
type Option func(*RedisCheckpointStore)

// WithJournalLen caps the number of journal records kept per thread.
func WithJournalLen(n int64) Option {
	return func(s *RedisCheckpointStore) {
		if n > 0 {
			s.journalLen = n
		}
	}
}

// WithPrefix namespaces every key written by the store.
func WithPrefix(prefix string) Option {
	return func(s *RedisCheckpointStore) {
		s.prefix = prefix
	}
}

func NewRedisCheckpointStore(rdb redis.Cmdable, ttl time.Duration, opts ...Option) *RedisCheckpointStore {
	s := &RedisCheckpointStore{rdb: rdb, ttl: ttl, journalLen: defaultJournalLen, prefix: "checkpoint"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (r *RedisCheckpointStore) stateKey(threadID string) string {
	return fmt.Sprintf("%s:%s:state", r.prefix, threadID)
}

func (r *RedisCheckpointStore) journalKey(threadID string) string {
	return fmt.Sprintf("%s:%s:journal", r.prefix, threadID)
}

func (r *RedisCheckpointStore) Save(ctx context.Context, threadID string, state *model.SessionState) error {
	b, err := json.Marshal(state)
	if err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to marshal session state")
		return fmt.Errorf("marshal session state: %w", err)
	}
	rec, err := json.Marshal(model.RecordOf(state))
	if err != nil {
		return fmt.Errorf("marshal checkpoint record: %w", err)
	}

	stateKey, journalKey := r.stateKey(threadID), r.journalKey(threadID)

	// state and journal move together
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, stateKey, b, r.ttl)
	pipe.RPush(ctx, journalKey, rec)
	pipe.LTrim(ctx, journalKey, -r.journalLen, -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, journalKey, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", stateKey).Msg("failed to save checkpoint")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisCheckpointStore) Load(ctx context.Context, threadID string) (*model.SessionState, error) {
	key := r.stateKey(threadID)

	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errx.NotFound(threadID)
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load checkpoint")
		return nil, errx.WrapRedis(err)
	}

	var state model.SessionState
	if err := json.Unmarshal(b, &state); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to unmarshal session state")
		return nil, fmt.Errorf("unmarshal session state: %w", err)
	}
	return &state, nil
}

func (r *RedisCheckpointStore) Delete(ctx context.Context, threadID string) error {
	if err := r.rdb.Del(ctx, r.stateKey(threadID), r.journalKey(threadID)).Err(); err != nil {
		logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to delete checkpoint")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisCheckpointStore) History(ctx context.Context, threadID string) ([]model.CheckpointRecord, error) {
	key := r.journalKey(threadID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		logx.Error().Err(err).Str("key", key).Msg("failed to load checkpoint journal")
		return nil, errx.WrapRedis(err)
	}

	records := make([]model.CheckpointRecord, 0, len(rows))
	for i, row := range rows {
		var rec model.CheckpointRecord
		if err := json.Unmarshal([]byte(row), &rec); err != nil {
			logx.Warn().Err(err).Str("key", key).Int("index", i).Msg("skipping malformed checkpoint record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ model.CheckpointStore = (*RedisCheckpointStore)(nil)
