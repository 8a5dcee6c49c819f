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

// Package cache provides the expiring key-value cache used by the client
// over a local store. Cache failures are logged and never reach the caller.
package cache

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/piecework/wmsclient/pkg/cache/status"
	"github.com/piecework/wmsclient/pkg/clock"
	"github.com/piecework/wmsclient/pkg/codec"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
	"github.com/piecework/wmsclient/pkg/store"
)

// DefaultExpire is the expiry applied when the caller does not give one
const DefaultExpire = 5 * time.Minute

// Entry is the record persisted for each cache key. Timestamp is the epoch
// millisecond time of the write and ExpireTime the lifetime in milliseconds.
type Entry struct {
	Data       json.RawMessage `json:"data"`
	Timestamp  int64           `json:"timestamp"`
	ExpireTime int64           `json:"expireTime"`
}

// Valid reports whether the entry is still live at now (epoch ms). An entry
// whose age equals its expiry is expired.
func (e *Entry) Valid(now int64) bool {
	return now-e.Timestamp < e.ExpireTime
}

// Config holds the settings for a Cache. Zero values select the defaults.
type Config struct {
	// Name labels the cache in logs and metrics
	Name string
	// DefaultExpire replaces DefaultExpire when positive
	DefaultExpire time.Duration
	// CompressThresholdBytes is passed to the record codec
	CompressThresholdBytes int
	Clock                  clock.Clock
	Logger                 logging.Logger
}

// Cache is an expiring cache over a store.Store
type Cache struct {
	name          string
	store         store.Store
	codec         *codec.Codec
	clock         clock.Clock
	logger        logging.Logger
	defaultExpire time.Duration
}

// New returns a Cache backed by s
func New(s store.Store, cfg Config) *Cache {
	c := &Cache{
		name:          cfg.Name,
		store:         s,
		codec:         codec.New(cfg.CompressThresholdBytes),
		clock:         cfg.Clock,
		logger:        cfg.Logger,
		defaultExpire: cfg.DefaultExpire,
	}
	if c.name == "" {
		c.name = "default"
	}
	if c.clock == nil {
		c.clock = clock.System()
	}
	if c.logger == nil {
		c.logger = logging.NoopLogger()
	}
	if c.defaultExpire <= 0 {
		c.defaultExpire = DefaultExpire
	}
	return c
}

// Name returns the name of the cache
func (c *Cache) Name() string {
	return c.name
}

// Clock returns the cache's time source
func (c *Cache) Clock() clock.Clock {
	return c.clock
}

// Logger returns the cache's logger
func (c *Cache) Logger() logging.Logger {
	return c.logger
}

// Store returns the underlying store
func (c *Cache) Store() store.Store {
	return c.store
}

// Set writes data under key, replacing any existing entry. An expire <= 0
// applies the default expiry.
func (c *Cache) Set(key string, data any, expire time.Duration) {
	if expire <= 0 {
		expire = c.defaultExpire
	}
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.Error("cache set failed", logging.Pairs{"key": key, "detail": err})
		metrics.ObserveCacheOperation(c.name, "set", "error")
		return
	}
	e := &Entry{
		Data:       raw,
		Timestamp:  clock.UnixMilli(c.clock),
		ExpireTime: expire.Milliseconds(),
	}
	b, err := c.codec.Marshal(e)
	if err == nil {
		err = c.store.Set(key, b)
	}
	if err != nil {
		c.logger.Error("cache set failed", logging.Pairs{"key": key, "detail": err})
		metrics.ObserveCacheOperation(c.name, "set", "error")
		return
	}
	c.logger.Debug("cache set", logging.Pairs{"key": key, "expireTime": expire.String()})
	metrics.ObserveCacheOperation(c.name, "set", "success")
}

// Get returns the data stored under key if the entry is still valid.
// Expired entries are removed.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	data, s := c.Retrieve(key)
	return data, s == status.LookupStatusHit
}

// Retrieve is Get with the lookup status of the read
func (c *Cache) Retrieve(key string) (json.RawMessage, status.LookupStatus) {
	data, s := c.retrieve(key)
	metrics.ObserveCacheOperation(c.name, "get", s.String())
	return data, s
}

func (c *Cache) retrieve(key string) (json.RawMessage, status.LookupStatus) {
	b, err := c.store.Get(key)
	if errors.Is(err, store.ErrKNF) {
		return nil, status.LookupStatusKeyMiss
	}
	if err != nil {
		c.logger.Error("cache get failed", logging.Pairs{"key": key, "detail": err})
		return nil, status.LookupStatusError
	}
	e := &Entry{}
	if err := c.codec.Unmarshal(b, e); err != nil {
		c.logger.Error("cache get failed", logging.Pairs{"key": key, "detail": err})
		return nil, status.LookupStatusError
	}
	if !e.Valid(clock.UnixMilli(c.clock)) {
		c.logger.Debug("cache expired", logging.Pairs{"key": key})
		c.Remove(key)
		return nil, status.LookupStatusExpired
	}
	c.logger.Debug("cache hit", logging.Pairs{"key": key})
	return e.Data, status.LookupStatusHit
}

// GetInto decodes the data under key into v, reporting whether a valid
// entry was found and decoded
func (c *Cache) GetInto(key string, v any) bool {
	data, ok := c.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Error("cache decode failed", logging.Pairs{"key": key, "detail": err})
		return false
	}
	return true
}

// Remove deletes the entry for key
func (c *Cache) Remove(key string) {
	if err := c.store.Remove(key); err != nil {
		c.logger.Error("cache remove failed", logging.Pairs{"key": key, "detail": err})
		return
	}
	c.logger.Debug("cache removed", logging.Pairs{"key": key})
}

// Clear deletes every entry in the underlying store
func (c *Cache) Clear() {
	if err := c.store.Clear(); err != nil {
		c.logger.Error("cache clear failed", logging.Pairs{"detail": err})
		return
	}
	c.logger.Info("cache cleared", logging.Pairs{"cacheName": c.name})
}

// Info returns the store's usage; false when the store could not report it
func (c *Cache) Info() (store.Info, bool) {
	info, err := c.store.Info()
	if err != nil {
		c.logger.Error("cache info failed", logging.Pairs{"detail": err})
		return store.Info{}, false
	}
	return info, true
}

// PutRecord persists v under key with no expiry. Unlike Set, failures are
// returned so callers that own durable state can react to them.
func (c *Cache) PutRecord(key string, v any) error {
	b, err := c.codec.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Set(key, b)
}

// GetRecord decodes the record stored under key into v. A missing key
// returns store.ErrKNF.
func (c *Cache) GetRecord(key string, v any) error {
	b, err := c.store.Get(key)
	if err != nil {
		return err
	}
	return c.codec.Unmarshal(b, v)
}
