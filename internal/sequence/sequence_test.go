package sequence

import (
	"context"
	"sync"
	"testing"

	"dineflow/internal/cache"
	"dineflow/internal/logger"
	"dineflow/internal/store"
	"dineflow/internal/store/storetest"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func next(t *testing.T, s Sequencer, db *store.DB, tenant, scope, day string) int64 {
	t.Helper()
	var n int64
	err := db.RunInTx(context.Background(), func(ctx context.Context, tx *store.DB) error {
		var err error
		n, err = s.Next(ctx, tx, tenant, scope, day)
		return err
	})
	require.NoError(t, err)
	return n
}

func TestDBSequencePerTenantScopeAndDay(t *testing.T) {
	db := storetest.New(t)
	s := DB{}

	assert.Equal(t, int64(1), next(t, s, db, "t1", ScopeOrder, "20250601"))
	assert.Equal(t, int64(2), next(t, s, db, "t1", ScopeOrder, "20250601"))
	assert.Equal(t, int64(1), next(t, s, db, "t1", ScopeInvoice, "20250601"))
	assert.Equal(t, int64(1), next(t, s, db, "t2", ScopeOrder, "20250601"))
	assert.Equal(t, int64(1), next(t, s, db, "t1", ScopeOrder, "20250602"))
}

func TestDBSequenceRollsBackWithTransaction(t *testing.T) {
	db := storetest.New(t)
	s := DB{}

	_ = db.RunInTx(context.Background(), func(ctx context.Context, tx *store.DB) error {
		_, err := s.Next(ctx, tx, "t1", ScopeInvoice, "20250601")
		require.NoError(t, err)
		return assert.AnError
	})
	assert.Equal(t, int64(1), next(t, s, db, "t1", ScopeInvoice, "20250601"))
}

func TestRedisSequenceConcurrentCallersGetDistinctValues(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	s := Redis{Counter: cache.NewRedis(client, logger.Discard())}

	const callers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[int64]bool{}
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Next(context.Background(), nil, "t1", ScopeInvoice, "20250601")
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, callers)
	assert.True(t, seen[1])
	assert.True(t, seen[callers])
	assert.True(t, mr.Exists(Key("t1", ScopeInvoice, "20250601")))
}
