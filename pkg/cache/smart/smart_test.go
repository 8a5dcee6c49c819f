/*
 * Copyright 2024 The wmsclient Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package smart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/piecework/wmsclient/pkg/cache"
	"github.com/piecework/wmsclient/pkg/clock"
	"github.com/piecework/wmsclient/pkg/store/memory"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*Cache, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testEpoch)
	base := cache.New(memory.New(t.Name(), nil), cache.Config{Name: "smart", Clock: clk})
	return New(base), clk
}

func TestStrategyExpire(t *testing.T) {
	tests := []struct {
		strategy Strategy
		want     time.Duration
	}{
		{Static, 24 * time.Hour},
		{Dynamic, 5 * time.Minute},
		{Realtime, 30 * time.Second},
		{Adaptive, 10 * time.Minute},
		{Strategy("bogus"), 10 * time.Minute},
	}
	c, _ := newTestCache(t)
	for _, test := range tests {
		t.Run(string(test.strategy), func(t *testing.T) {
			require.Equal(t, test.want, test.strategy.Expire())
			require.Equal(t, test.want, c.CalculateExpireTime("k", test.strategy, Options{}))
		})
	}
}

func TestCalculateExpireTime_Custom(t *testing.T) {
	c, _ := newTestCache(t)
	require.Equal(t, 42*time.Second,
		c.CalculateExpireTime("k", Static, Options{CustomExpire: 42 * time.Second}))
}

func TestStaticStrategyLifetime(t *testing.T) {
	c, clk := newTestCache(t)
	c.SetWithStrategy("config", map[string]int{"version": 3}, Static, Options{})

	clk.Advance(23 * time.Hour)
	data, ok := c.GetWithStats("config")
	require.True(t, ok)
	require.JSONEq(t, `{"version":3}`, string(data))

	clk.Advance(2 * time.Hour)
	_, ok = c.GetWithStats("config")
	require.False(t, ok)
}

func TestRecordAccess(t *testing.T) {
	c, clk := newTestCache(t)
	_, ok := c.CacheStats("k")
	require.False(t, ok)

	c.SetWithStrategy("k", 1, Dynamic, Options{})
	// a set alone is not a read
	_, ok = c.CacheStats("k")
	require.False(t, ok)

	clk.Advance(time.Second)
	c.GetWithStats("k")
	clk.Advance(time.Second)
	c.GetWithStats("missing")
	c.GetWithStats("k")

	ks, ok := c.CacheStats("k")
	require.True(t, ok)
	require.Equal(t, 2, ks.AccessCount)
	require.Equal(t, 2, ks.HitCount)
	require.Equal(t, 0, ks.MissCount)
	require.Equal(t, 1, ks.SetCount)
	require.Equal(t, 1.0, ks.HitRate)
	require.Equal(t, time.Second, ks.AvgAccessInterval)
	require.Equal(t, clock.UnixMilli(clk), ks.LastAccess)

	ms, ok := c.CacheStats("missing")
	require.True(t, ok)
	require.Equal(t, 1, ms.MissCount)
	require.Equal(t, 0.0, ms.HitRate)
}

func TestAccessTimesBounded(t *testing.T) {
	c, clk := newTestCache(t)
	for i := 0; i < 60; i++ {
		clk.Advance(time.Second)
		c.GetWithStats("k")
	}
	ks, ok := c.CacheStats("k")
	require.True(t, ok)
	require.Equal(t, 60, ks.AccessCount)
	require.Len(t, ks.AccessTimes, maxAccessTimes)
	require.Equal(t, clock.UnixMilli(clk), ks.AccessTimes[maxAccessTimes-1])
}

func TestAdaptiveExpire(t *testing.T) {
	tests := []struct {
		name     string
		hitRate  float64
		interval time.Duration
		want     time.Duration
	}{
		{"neutral", 0.5, 5 * time.Minute, 10 * time.Minute},
		{"hot and frequent", 0.9, 10 * time.Second, 30 * time.Minute},
		{"hot and sparse", 0.9, 20 * time.Minute, 14 * time.Minute},
		{"cold and frequent", 0.2, 10 * time.Second, 7*time.Minute + 30*time.Second},
		{"cold and sparse", 0.2, 20 * time.Minute, 3*time.Minute + 30*time.Second},
		{"boundary hit rate", 0.8, 5 * time.Minute, 10 * time.Minute},
		{"boundary interval", 0.5, time.Minute, 10 * time.Minute},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ks := &KeyStats{HitRate: test.hitRate, AvgAccessInterval: test.interval}
			require.Equal(t, test.want, adaptiveExpire(ks))
		})
	}
}

func TestAdaptiveExpire_Clamped(t *testing.T) {
	d := adaptiveExpire(&KeyStats{HitRate: 0.2, AvgAccessInterval: time.Hour})
	require.GreaterOrEqual(t, d, MinAdaptiveExpire)
	require.LessOrEqual(t, d, MaxAdaptiveExpire)
}

func TestCalculateAdaptiveExpireTime_FewAccesses(t *testing.T) {
	c, clk := newTestCache(t)
	for i := 0; i < minAdaptiveAccesses-1; i++ {
		clk.Advance(time.Second)
		c.GetWithStats("k")
	}
	require.Equal(t, AdaptiveExpire, c.CalculateAdaptiveExpireTime("k"))
}

func TestAdaptiveMonotonicity(t *testing.T) {
	c, clk := newTestCache(t)
	// 10 reads each at the same times: hot hits 9 of 10, cold hits 2 of 10
	for i := 0; i < 10; i++ {
		clk.Advance(30 * time.Second)
		if i == 0 {
			c.Remove("hot")
		} else {
			c.Set("hot", 1, time.Hour)
		}
		c.GetWithStats("hot")
		if i < 2 {
			c.Set("cold", 1, time.Hour)
		} else {
			c.Remove("cold")
		}
		c.GetWithStats("cold")
	}
	hot, ok := c.CacheStats("hot")
	require.True(t, ok)
	cold, ok := c.CacheStats("cold")
	require.True(t, ok)
	require.Equal(t, hot.AccessCount, cold.AccessCount)
	require.Equal(t, 0.2, cold.HitRate)
	require.GreaterOrEqual(t, c.CalculateAdaptiveExpireTime("hot"), c.CalculateAdaptiveExpireTime("cold"))
}

func TestAdaptiveMissesThenHits(t *testing.T) {
	c, clk := newTestCache(t)
	const key = "list_/notifications_{}"
	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		_, ok := c.GetWithStats(key)
		require.False(t, ok)
	}
	c.SetWithStrategy(key, []int{1, 2, 3}, Adaptive, Options{})
	for i := 0; i < 5; i++ {
		clk.Advance(time.Second)
		_, ok := c.GetWithStats(key)
		require.True(t, ok)
	}
	require.Greater(t, c.CalculateAdaptiveExpireTime(key), AdaptiveExpire)
}

func TestCacheReport(t *testing.T) {
	c, clk := newTestCache(t)
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("key%02d", i)
		c.Set(key, i, time.Hour)
		for j := 0; j <= i; j++ {
			clk.Advance(time.Second)
			c.GetWithStats(key)
		}
	}
	c.GetWithStats("absent")
	c.SetWithStrategy("unread", 1, Dynamic, Options{})

	r := c.CacheReport()
	require.Equal(t, 14, r.TotalKeys)
	require.Equal(t, 79, r.TotalAccess)
	require.Equal(t, 78, r.TotalHits)
	require.Equal(t, 1, r.TotalMisses)
	require.InDelta(t, 78.0/79.0, r.OverallHitRate, 1e-9)
	require.Len(t, r.TopKeys, 10)
	require.Equal(t, "key11", r.TopKeys[0].Key)
	require.Equal(t, 12, r.TopKeys[0].AccessCount)
	require.Equal(t, "key02", r.TopKeys[9].Key)
}

func TestCleanupStats(t *testing.T) {
	c, clk := newTestCache(t)
	c.SetWithStrategy("old", 1, Static, Options{})
	c.GetWithStats("old")
	clk.Advance(6 * 24 * time.Hour)
	c.GetWithStats("recent")

	clk.Advance(24 * time.Hour)
	require.Equal(t, 1, c.CleanupStats(0))
	_, ok := c.CacheStats("old")
	require.False(t, ok)
	_, ok = c.CacheStats("recent")
	require.True(t, ok)

	require.Equal(t, 1, c.CleanupStats(time.Hour))
	require.Equal(t, 0, c.CacheReport().TotalKeys)
}

func TestCleanupStats_KeepsEntries(t *testing.T) {
	c, clk := newTestCache(t)
	c.SetWithStrategy("k", 1, Static, Options{CustomExpire: 30 * 24 * time.Hour})
	clk.Advance(8 * 24 * time.Hour)
	c.CleanupStats(0)
	_, ok := c.Get("k")
	require.True(t, ok)
}

func TestPreload(t *testing.T) {
	c, _ := newTestCache(t)
	c.SetWithStrategy("existing", "cached", Dynamic, Options{})

	var calls int
	loader := func(v any, err error) func(context.Context) (any, error) {
		return func(context.Context) (any, error) {
			calls++
			return v, err
		}
	}
	n := c.Preload(context.Background(), []PreloadItem{
		{Key: "existing", Loader: loader("fresh", nil)},
		{Key: "user", Loader: loader(map[string]string{"name": "li"}, nil), Strategy: Static},
		{Key: "broken", Loader: loader(nil, errors.New("boom"))},
		{Key: "noloader"},
	})
	require.Equal(t, 1, n)
	require.Equal(t, 2, calls)

	data, ok := c.Get("existing")
	require.True(t, ok)
	require.Equal(t, `"cached"`, string(data))
	_, ok = c.Get("user")
	require.True(t, ok)
	_, ok = c.Get("broken")
	require.False(t, ok)
}

func TestPreload_Canceled(t *testing.T) {
	c, _ := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n := c.Preload(ctx, []PreloadItem{{Key: "k", Loader: func(context.Context) (any, error) {
		return 1, nil
	}}})
	require.Equal(t, 0, n)
}

func TestRemoveMatching(t *testing.T) {
	c, _ := newTestCache(t)
	keys := []string{
		"paginated_/piecework_0_20_{}",
		"paginated_/piecework_1_20_{}",
		"list_/inventory/items_{}",
		"single_/user/profile",
	}
	for _, k := range keys {
		c.SetWithStrategy(k, 1, Dynamic, Options{})
	}
	// written directly, not tracked by the smart cache
	c.Set("api_/inventory/items", 1, time.Hour)

	n, err := c.RemoveMatching("paginated_/piecework_*")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, ok := c.Get(keys[0])
	require.False(t, ok)
	_, ok = c.Get(keys[2])
	require.True(t, ok)

	n, err = c.RemoveMatching("")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, ok = c.Get("api_/inventory/items")
	require.True(t, ok)
}

func TestRemoveMatching_CountsStoredEntriesOnly(t *testing.T) {
	c, _ := newTestCache(t)
	for i := 0; i < 3; i++ {
		_, ok := c.GetWithStats("single_/never/stored")
		require.False(t, ok)
	}
	c.SetWithStrategy("single_/removed", 1, Static, Options{})
	c.Remove("single_/removed")

	n, err := c.RemoveMatching("single_*")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	c.SetWithStrategy("single_/stored", 1, Static, Options{})
	n, err = c.RemoveMatching("single_*")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestGlobToRegexp(t *testing.T) {
	tests := []struct {
		pattern, key string
		want         bool
	}{
		{"*", "anything/at all", true},
		{"list_*", "list_/a/b", true},
		{"list_*", "single_/a", false},
		{"single_/user/?", "single_/user/1", true},
		{"single_/user/?", "single_/user/12", false},
		{"a.b", "axb", false},
		{"a.b", "a.b", true},
	}
	for _, test := range tests {
		re, err := globToRegexp(test.pattern)
		require.NoError(t, err)
		require.Equal(t, test.want, re.MatchString(test.key), "%s ~ %s", test.pattern, test.key)
	}
}
