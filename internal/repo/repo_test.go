package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestSanitizeKey(t *testing.T) {
	k, err := SanitizeKey("Run 42/EV Market_raw")
	require.NoError(t, err)
	assert.Equal(t, "run_42_ev_market_raw", k)

	for _, bad := range []string{"", "  ", "..", "."} {
		_, err := SanitizeKey(bad)
		assert.True(t, errx.IsKind(err, errx.KindValidation), bad)
	}
}

func cacheStores(t *testing.T) map[string]model.CacheStore {
	fc, err := NewFileCache(t.TempDir())
	require.NoError(t, err)
	_, rdb := newRedis(t)
	return map[string]model.CacheStore{
		"memory": NewMemoryCache(),
		"file":   fc,
		"redis":  NewRedisCache(rdb, "mr", time.Hour),
	}
}

func TestCacheStores(t *testing.T) {
	ctx := context.Background()
	for name, c := range cacheStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(ctx, "missing")
			assert.ErrorIs(t, err, errx.ErrCacheMiss)
			assert.True(t, errx.IsKind(err, errx.KindCacheMiss))

			require.NoError(t, c.Put(ctx, "Run 1_raw", "first"))
			require.NoError(t, c.Put(ctx, "run_1_raw", "second"))
			got, err := c.Get(ctx, "RUN 1_raw")
			require.NoError(t, err)
			assert.Equal(t, "second", got)

			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					assert.NoError(t, c.Put(ctx, fmt.Sprintf("k%d", i), fmt.Sprint(i)))
				}(i)
			}
			wg.Wait()
			for i := 0; i < 16; i++ {
				got, err := c.Get(ctx, fmt.Sprintf("k%d", i))
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprint(i), got)
			}
		})
	}
}

func TestRedisCacheTTL(t *testing.T) {
	mr, rdb := newRedis(t)
	c := NewRedisCache(rdb, "mr", time.Minute)
	require.NoError(t, c.Put(context.Background(), "a", "b"))
	assert.Equal(t, time.Minute, mr.TTL("mr:cache:a"))

	mr.FastForward(2 * time.Minute)
	_, err := c.Get(context.Background(), "a")
	assert.ErrorIs(t, err, errx.ErrCacheMiss)
}

func sampleResult(id string, at time.Time) model.ResearchResult {
	return model.ResearchResult{
		Query:       "ev market " + id,
		Parameters:  model.ParametersFromQuery("ev market", model.ParameterDefaults{}),
		FinalReport: "# Report\n## Overview\nfine",
		Metadata:    model.ResultMetadata{ResearchID: id, Timestamp: at, ElapsedTime: 1.5},
	}
}

func resultStores(t *testing.T) map[string]model.ResultStore {
	fs, err := NewFileResultStore(t.TempDir())
	require.NoError(t, err)
	ss, err := NewSQLiteResultStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })
	return map[string]model.ResultStore{"file": fs, "sqlite": ss}
}

func TestResultStores(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, s := range resultStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "nope")
			assert.ErrorIs(t, err, errx.ErrNotFound)

			r1 := sampleResult("r1", base)
			require.NoError(t, s.Save(ctx, "r1", r1))

			err = s.Save(ctx, "r1", r1)
			assert.ErrorIs(t, err, errx.ErrAlreadyExists)

			failed := model.ResearchResult{
				Query:    "broken",
				Error:    "stage research failed",
				Metadata: model.ResultMetadata{ResearchID: "r2", Timestamp: base.Add(time.Hour), Status: model.StatusError},
			}
			require.NoError(t, s.Save(ctx, "r2", failed))

			got, err := s.Load(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, r1.FinalReport, got.FinalReport)
			assert.Equal(t, r1.Parameters, got.Parameters)
			assert.True(t, r1.Metadata.Timestamp.Equal(got.Metadata.Timestamp))

			list, err := s.List(ctx, 0)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "r2", list[0].ResearchID)
			assert.Equal(t, model.StatusError, list[0].Status)
			assert.Equal(t, "r1", list[1].ResearchID)
			assert.Equal(t, "success", list[1].Status)

			list, err = s.List(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, list, 1)
		})
	}
}

func TestFileResultStoreRejectsTraversal(t *testing.T) {
	s, err := NewFileResultStore(t.TempDir())
	require.NoError(t, err)
	err = s.Save(context.Background(), "../escape", model.ResearchResult{})
	assert.True(t, errx.IsKind(err, errx.KindValidation))
}

func TestSessionRepositories(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	repos := map[string]model.SessionRepository{
		"memory": NewMemorySessionRepository(),
		"redis":  NewRedisSessionRepository(rdb, "mr", time.Hour),
	}

	for name, r := range repos {
		t.Run(name, func(t *testing.T) {
			_, err := r.Load(ctx, "s1")
			assert.ErrorIs(t, err, errx.ErrNotFound)

			d := model.NewDialogContext("s1")
			d.CurrentTopic = "solar"
			d.AddMessage(model.RoleUser, "Research solar", nil)
			in := model.NewIntent(model.IntentResearch, map[string]any{model.ParamTopic: "solar"}, 1)
			d.LastIntent = &in
			require.NoError(t, r.Save(ctx, d))

			got, err := r.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "solar", got.CurrentTopic)
			require.Len(t, got.History, 1)
			assert.Equal(t, "Research solar", got.History[0].Content)
			require.NotNil(t, got.LastIntent)
			assert.Equal(t, "solar", got.LastIntent.Param(model.ParamTopic))

			// loaded copies are independent
			got.CurrentTopic = "wind"
			again, err := r.Load(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, "solar", again.CurrentTopic)

			require.NoError(t, r.Delete(ctx, "s1"))
			_, err = r.Load(ctx, "s1")
			assert.ErrorIs(t, err, errx.ErrNotFound)
		})
	}

	require.NoError(t, repos["redis"].Save(ctx, model.NewDialogContext("ttl")))
	assert.Equal(t, time.Hour, mr.TTL("mr:session:ttl"))
}
