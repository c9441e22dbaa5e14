package repo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/agent/model"
	errx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/internal/core/error"
	logx "github.com/Vincent-20-100/Agentic-NL2SQL-RAG-Engine-Lamy-Waerniers/pkg/logger"
)

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// LocalLocker serializes runs per thread inside one process.
// Entries are reference counted and dropped once no run holds or waits on them.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*lockEntry)}
}

func (l *LocalLocker) Lock(ctx context.Context, threadID string) (func(), error) {
	l.mu.Lock()
	entry, ok := l.locks[threadID]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		l.locks[threadID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(threadID, entry)
		return nil, fmt.Errorf("lock thread %s: %w", threadID, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.sem
			l.release(threadID, entry)
		})
	}, nil
}

func (l *LocalLocker) release(threadID string, entry *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, threadID)
	}
}

// held reports how many runs hold or wait on threadID, used by tests.
func (l *LocalLocker) held(threadID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.locks[threadID]; ok {
		return e.refs
	}
	return 0
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisThreadLocker serializes runs per thread across processes with a
// SET NX lease. The holder renews the lease every ttl/3 until it unlocks,
// so it only expires after ttl if the holder dies.
type RedisThreadLocker struct {
	rdb   redis.Cmdable
	ttl   time.Duration
	retry time.Duration
}

func NewRedisThreadLocker(rdb redis.Cmdable, ttl time.Duration) *RedisThreadLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisThreadLocker{rdb: rdb, ttl: ttl, retry: 50 * time.Millisecond}
}

func (r *RedisThreadLocker) key(threadID string) string {
	return fmt.Sprintf("lock:thread:%s", threadID)
}

func (r *RedisThreadLocker) Lock(ctx context.Context, threadID string) (func(), error) {
	key := r.key(threadID)
	token := uuid.NewString()

	ticker := time.NewTicker(r.retry)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil && ctx.Err() != nil {
			return nil, errx.New(fmt.Errorf("%w: %s", errx.ErrThreadBusy, threadID), http.StatusConflict, errx.ErrThreadBusy.Error())
		}
		if err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to acquire thread lock")
			return nil, errx.WrapRedis(err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errx.New(fmt.Errorf("%w: %s", errx.ErrThreadBusy, threadID), http.StatusConflict, errx.ErrThreadBusy.Error())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	renewed := make(chan struct{})
	go r.renew(key, token, stop, renewed)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-renewed
			// the run context may already be cancelled; release on a fresh one
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				logx.Warn().Err(err).Str("key", key).Msg("failed to release thread lock")
			}
		})
	}, nil
}

// renew extends the lease while it is still ours. It gives up once another
// holder owns the key.
func (r *RedisThreadLocker) renew(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	every := r.ttl / 3
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		ctx, cancel := context.WithTimeout(context.Background(), every)
		n, err := renewScript.Run(ctx, r.rdb, []string{key}, token, r.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			logx.Warn().Err(err).Str("key", key).Msg("failed to renew thread lock")
			continue
		}
		if n == 0 {
			logx.Warn().Str("key", key).Msg("thread lock lease lost")
			return
		}
	}
}

// ChainLocker acquires every locker in order and releases in reverse.
type ChainLocker []model.ThreadLocker

func (c ChainLocker) Lock(ctx context.Context, threadID string) (func(), error) {
	unlocks := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
	for _, l := range c {
		unlock, err := l.Lock(ctx, threadID)
		if err != nil {
			releaseAll()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return releaseAll, nil
}

var (
	_ model.ThreadLocker = (*LocalLocker)(nil)
	_ model.ThreadLocker = (*RedisThreadLocker)(nil)
	_ model.ThreadLocker = ChainLocker(nil)
)
