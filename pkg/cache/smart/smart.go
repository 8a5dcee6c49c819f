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

// Package smart extends the base cache with named expiry strategies and
// per-key access statistics that drive an adaptive expiry
package smart

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/piecework/wmsclient/pkg/cache"
	"github.com/piecework/wmsclient/pkg/clock"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
	"github.com/piecework/wmsclient/pkg/store"
)

// Strategy names an expiry policy
type Strategy string

const (
	// Static is for rarely-changing reference data
	Static Strategy = "static"
	// Dynamic is for frequently-changing business records
	Dynamic Strategy = "dynamic"
	// Realtime is for near-live status and notification data
	Realtime Strategy = "realtime"
	// Adaptive derives the expiry from the key's access statistics
	Adaptive Strategy = "adaptive"
)

// Base expiry durations for each strategy
const (
	StaticExpire   = 24 * time.Hour
	DynamicExpire  = 5 * time.Minute
	RealtimeExpire = 30 * time.Second
	AdaptiveExpire = 10 * time.Minute

	MinAdaptiveExpire = 30 * time.Second
	MaxAdaptiveExpire = 60 * time.Minute
)

const (
	// StatsKey is the store key holding the access statistics of every key
	StatsKey = "cache_access_stats"
	// DefaultStatsMaxAge is the retention used by CleanupStats
	DefaultStatsMaxAge = 7 * 24 * time.Hour

	maxAccessTimes      = 50
	minAdaptiveAccesses = 5
	reportTopKeys       = 10
)

// Expire returns the base duration for the strategy. Unknown strategies
// get the adaptive base.
func (s Strategy) Expire() time.Duration {
	switch s {
	case Static:
		return StaticExpire
	case Dynamic:
		return DynamicExpire
	case Realtime:
		return RealtimeExpire
	}
	return AdaptiveExpire
}

// Options adjusts a strategy-based write
type Options struct {
	// CustomExpire, when positive, replaces the strategy's expiry
	CustomExpire time.Duration
}

type accessKind int

const (
	accessSet accessKind = iota
	accessHit
	accessMiss
)

// AccessStats is the persisted access record of a key. Times are epoch ms.
type AccessStats struct {
	AccessCount int     `json:"accessCount"`
	HitCount    int     `json:"hitCount"`
	MissCount   int     `json:"missCount"`
	SetCount    int     `json:"setCount"`
	LastAccess  int64   `json:"lastAccess"`
	AccessTimes []int64 `json:"accessTimes"`
}

// KeyStats is AccessStats plus the values derived from it
type KeyStats struct {
	AccessStats
	HitRate           float64       `json:"hitRate"`
	AvgAccessInterval time.Duration `json:"avgAccessInterval"`
}

// KeySummary is one ranked entry of a Report
type KeySummary struct {
	Key               string        `json:"key"`
	AccessCount       int           `json:"accessCount"`
	HitRate           float64       `json:"hitRate"`
	AvgAccessInterval time.Duration `json:"avgAccessInterval"`
}

// Report aggregates the access statistics of every key
type Report struct {
	TotalKeys      int          `json:"totalKeys"`
	TotalAccess    int          `json:"totalAccess"`
	TotalHits      int          `json:"totalHits"`
	TotalMisses    int          `json:"totalMisses"`
	OverallHitRate float64      `json:"overallHitRate"`
	TopKeys        []KeySummary `json:"topKeys"`
}

// PreloadItem describes a key to warm and how to load its value
type PreloadItem struct {
	Key      string
	Loader   func(context.Context) (any, error)
	Strategy Strategy
}

// Cache is a strategy-aware cache that records access statistics
type Cache struct {
	*cache.Cache
	mtx sync.Mutex
}

// New returns a smart Cache over base
func New(base *cache.Cache) *Cache {
	return &Cache{Cache: base}
}

// SetWithStrategy stores data under key with the expiry resolved from the
// strategy and records a set event
func (c *Cache) SetWithStrategy(key string, data any, strategy Strategy, opts Options) {
	expire := c.CalculateExpireTime(key, strategy, opts)
	c.recordAccess(key, accessSet)
	c.Set(key, data, expire)
	c.Logger().Debug("smart cache set",
		logging.Pairs{"key": key, "strategy": string(strategy), "expireTime": expire.String()})
}

// GetWithStats reads key through the base cache and records a hit or a miss
func (c *Cache) GetWithStats(key string) (json.RawMessage, bool) {
	data, ok := c.Get(key)
	if ok {
		c.recordAccess(key, accessHit)
		c.Logger().Debug("smart cache hit", logging.Pairs{"key": key})
	} else {
		c.recordAccess(key, accessMiss)
		c.Logger().Debug("smart cache miss", logging.Pairs{"key": key})
	}
	return data, ok
}

// CalculateExpireTime resolves the expiry for a write of key
func (c *Cache) CalculateExpireTime(key string, strategy Strategy, opts Options) time.Duration {
	if opts.CustomExpire > 0 {
		return opts.CustomExpire
	}
	switch strategy {
	case Static, Dynamic, Realtime:
		return strategy.Expire()
	case Adaptive:
		return c.CalculateAdaptiveExpireTime(key)
	}
	return AdaptiveExpire
}

// CalculateAdaptiveExpireTime scales the adaptive base by the key's hit
// rate and access interval, clamped to [MinAdaptiveExpire, MaxAdaptiveExpire]
func (c *Cache) CalculateAdaptiveExpireTime(key string) time.Duration {
	ks, ok := c.CacheStats(key)
	if !ok || ks.AccessCount < minAdaptiveAccesses {
		return AdaptiveExpire
	}
	d := adaptiveExpire(ks)
	metrics.CacheAdaptiveExpiry.Observe(d.Seconds())
	return d
}

func adaptiveExpire(ks *KeyStats) time.Duration {
	multiplier := 1.0
	if ks.HitRate > 0.8 {
		multiplier *= 2
	} else if ks.HitRate < 0.3 {
		multiplier *= 0.5
	}
	if ks.AvgAccessInterval < time.Minute {
		multiplier *= 1.5
	} else if ks.AvgAccessInterval > 10*time.Minute {
		multiplier *= 0.7
	}
	d := time.Duration(float64(AdaptiveExpire) * multiplier).Round(time.Millisecond)
	if d < MinAdaptiveExpire {
		return MinAdaptiveExpire
	}
	if d > MaxAdaptiveExpire {
		return MaxAdaptiveExpire
	}
	return d
}

func (c *Cache) loadStats() map[string]*AccessStats {
	all := make(map[string]*AccessStats)
	err := c.GetRecord(StatsKey, &all)
	if err != nil && !errors.Is(err, store.ErrKNF) {
		c.Logger().Error("failed to load cache stats", logging.Pairs{"detail": err})
	}
	return all
}

func (c *Cache) saveStats(all map[string]*AccessStats) {
	if err := c.PutRecord(StatsKey, all); err != nil {
		c.Logger().Error("failed to save cache stats", logging.Pairs{"detail": err})
	}
}

func (c *Cache) recordAccess(key string, kind accessKind) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	all := c.loadStats()
	s, ok := all[key]
	if !ok || s == nil {
		s = &AccessStats{}
		all[key] = s
	}
	now := clock.UnixMilli(c.Clock())
	s.LastAccess = now
	s.AccessTimes = append(s.AccessTimes, now)
	if n := len(s.AccessTimes); n > maxAccessTimes {
		s.AccessTimes = append([]int64(nil), s.AccessTimes[n-maxAccessTimes:]...)
	}
	switch kind {
	case accessSet:
		s.SetCount++
	case accessHit:
		s.AccessCount++
		s.HitCount++
	case accessMiss:
		s.AccessCount++
		s.MissCount++
	}
	c.saveStats(all)
}

func deriveStats(s *AccessStats) (*KeyStats, bool) {
	if s == nil || s.AccessCount == 0 {
		return nil, false
	}
	ks := &KeyStats{
		AccessStats: *s,
		HitRate:     float64(s.HitCount) / float64(s.AccessCount),
	}
	if n := len(s.AccessTimes); n > 1 {
		span := s.AccessTimes[n-1] - s.AccessTimes[0]
		ks.AvgAccessInterval = time.Duration(float64(span) / float64(n-1) * float64(time.Millisecond))
	}
	return ks, true
}

// CacheStats returns the statistics of key. It reports false when the key
// has never been read.
func (c *Cache) CacheStats(key string) (*KeyStats, bool) {
	c.mtx.Lock()
	all := c.loadStats()
	c.mtx.Unlock()
	return deriveStats(all[key])
}

// CacheReport aggregates the statistics of every key, ranking the most
// read keys first
func (c *Cache) CacheReport() Report {
	c.mtx.Lock()
	all := c.loadStats()
	c.mtx.Unlock()

	r := Report{TotalKeys: len(all)}
	summaries := make([]KeySummary, 0, len(all))
	for key, s := range all {
		ks, ok := deriveStats(s)
		if !ok {
			continue
		}
		r.TotalAccess += ks.AccessCount
		r.TotalHits += ks.HitCount
		r.TotalMisses += ks.MissCount
		summaries = append(summaries, KeySummary{
			Key:               key,
			AccessCount:       ks.AccessCount,
			HitRate:           ks.HitRate,
			AvgAccessInterval: ks.AvgAccessInterval,
		})
	}
	if r.TotalAccess > 0 {
		r.OverallHitRate = float64(r.TotalHits) / float64(r.TotalAccess)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].AccessCount != summaries[j].AccessCount {
			return summaries[i].AccessCount > summaries[j].AccessCount
		}
		return summaries[i].Key < summaries[j].Key
	})
	if len(summaries) > reportTopKeys {
		summaries = summaries[:reportTopKeys]
	}
	r.TopKeys = summaries
	return r
}

// CleanupStats drops the statistics of keys not accessed within maxAge and
// returns how many were removed. A maxAge <= 0 uses DefaultStatsMaxAge.
// Cache entries are left untouched.
func (c *Cache) CleanupStats(maxAge time.Duration) int {
	if maxAge <= 0 {
		maxAge = DefaultStatsMaxAge
	}
	c.mtx.Lock()
	defer c.mtx.Unlock()
	all := c.loadStats()
	now := clock.UnixMilli(c.Clock())
	kept := make(map[string]*AccessStats, len(all))
	for key, s := range all {
		if s != nil && s.LastAccess != 0 && now-s.LastAccess < maxAge.Milliseconds() {
			kept[key] = s
		}
	}
	c.saveStats(kept)
	removed := len(all) - len(kept)
	c.Logger().Info("cache stats cleanup completed", logging.Pairs{"removedCount": removed})
	return removed
}

// Preload loads and caches every item that does not already hold a live
// entry, returning the number of keys loaded. Loader failures are logged
// and skipped.
func (c *Cache) Preload(ctx context.Context, items []PreloadItem) int {
	c.Logger().Info("starting cache preload", logging.Pairs{"keyCount": len(items)})
	var loaded int
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		if _, ok := c.GetWithStats(item.Key); ok {
			c.Logger().Debug("cache preload skipped (exists)", logging.Pairs{"key": item.Key})
			continue
		}
		if item.Loader == nil {
			continue
		}
		data, err := item.Loader(ctx)
		if err != nil {
			c.Logger().Error("cache preload failed", logging.Pairs{"key": item.Key, "detail": err})
			continue
		}
		strategy := item.Strategy
		if strategy == "" {
			strategy = Adaptive
		}
		c.SetWithStrategy(item.Key, data, strategy, Options{})
		loaded++
	}
	c.Logger().Info("cache preload completed", logging.Pairs{"loaded": loaded})
	return loaded
}

// globToRegexp compiles a pattern in which '*' matches any run of characters
// and '?' matches any single character
func globToRegexp(pattern string) (*regexp.Regexp, error) {
	var sb strings.Builder
	sb.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteByte('$')
	return regexp.Compile(sb.String())
}

// RemoveMatching removes the entries of every key written through this cache
// whose name matches pattern, returning the number of stored entries
// removed. An empty pattern
// matches every key. Access statistics are kept.
func (c *Cache) RemoveMatching(pattern string) (int, error) {
	if pattern == "" {
		pattern = "*"
	}
	re, err := globToRegexp(pattern)
	if err != nil {
		return 0, err
	}
	c.mtx.Lock()
	all := c.loadStats()
	c.mtx.Unlock()
	var removed int
	for key := range all {
		if !re.MatchString(key) {
			continue
		}
		if _, err := c.Store().Get(key); err != nil {
			// only read or already removed
			continue
		}
		c.Remove(key)
		removed++
	}
	c.Logger().Info("cache entries removed", logging.Pairs{"pattern": pattern, "removedCount": removed})
	return removed, nil
}
