package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/repo/repotest"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisCheckpointStore_Contract(t *testing.T) {
	_, client := newRedis(t)
	repotest.RunCheckpointStoreContract(t, NewRedisCheckpointStore(client, time.Hour))
}

func TestRedisCheckpointStore_TTL(t *testing.T) {
	mr, client := newRedis(t)
	store := NewRedisCheckpointStore(client, 10*time.Minute, WithPrefix("test"))

	s := model.NewSessionState("t1", 2)
	s.BeginTurn("turn", "q", &model.Catalog{})
	require.NoError(t, store.Save(context.Background(), "t1", s))

	assert.True(t, mr.Exists("test:t1:state"))
	assert.Equal(t, 10*time.Minute, mr.TTL("test:t1:state"))
	assert.Equal(t, 10*time.Minute, mr.TTL("test:t1:journal"))

	mr.FastForward(11 * time.Minute)
	_, err := store.Load(context.Background(), "t1")
	assert.Error(t, err)
}

func TestRedisCheckpointStore_JournalCapped(t *testing.T) {
	_, client := newRedis(t)
	store := NewRedisCheckpointStore(client, time.Hour, WithJournalLen(3))
	ctx := context.Background()

	s := model.NewSessionState("t1", 2)
	s.BeginTurn("turn", "q", &model.Catalog{})
	for i := 1; i <= 5; i++ {
		s.IterationCount = i % 3
		s.Stage = model.StagePlanning
		require.NoError(t, store.Save(ctx, "t1", s))
	}

	records, err := store.History(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 0, records[0].Iteration) // i=3
	assert.Equal(t, 1, records[1].Iteration) // i=4
	assert.Equal(t, 2, records[2].Iteration) // i=5
}

func TestRedisCheckpointStore_CorruptState(t *testing.T) {
	mr, client := newRedis(t)
	store := NewRedisCheckpointStore(client, time.Hour)
	require.NoError(t, mr.Set("checkpoint:t1:state", "{not json"))

	_, err := store.Load(context.Background(), "t1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal session state")
}

func TestRedisCheckpointStore_StageStoredAsText(t *testing.T) {
	mr, client := newRedis(t)
	store := NewRedisCheckpointStore(client, time.Hour)

	s := model.NewSessionState("t1", 2)
	s.BeginTurn("turn", "q", &model.Catalog{})
	require.NoError(t, store.Save(context.Background(), "t1", s))

	raw, err := mr.Get("checkpoint:t1:state")
	require.NoError(t, err)
	assert.Contains(t, raw, `"stage":"planning"`)
}
