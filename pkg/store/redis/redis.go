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

// Package redis is the redis implementation of the local Store. All keys are
// namespaced by the configured key prefix.
package redis

import (
	"strings"

	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/options"

	"github.com/go-redis/redis"
)

// Store implements the store.Store interface
var _ store.Store = &Store{}

// Redis is the string "redis"
const Redis = "redis"

const scanCount = 100

// Store represents a redis-backed local store
type Store struct {
	Name   string
	Config *options.Options
	client *redis.Client
}

// New returns a new redis store
func New(name string, cfg *options.Options) *Store {
	if cfg == nil {
		cfg = options.New()
	}
	return &Store{
		Name:   name,
		Config: cfg,
	}
}

func (s *Store) clientOpts() *redis.Options {
	ro := s.Config.Redis
	return &redis.Options{
		Network:      ro.Protocol,
		Addr:         ro.Endpoint,
		Password:     ro.Password,
		DB:           ro.DB,
		MaxRetries:   ro.MaxRetries,
		DialTimeout:  ro.DialTimeout,
		ReadTimeout:  ro.ReadTimeout,
		WriteTimeout: ro.WriteTimeout,
	}
}

// Connect connects to the configured Redis endpoint
func (s *Store) Connect() error {
	s.client = redis.NewClient(s.clientOpts())
	return s.client.Ping().Err()
}

// Close closes the redis client
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *Store) key(k string) string {
	return s.Config.Redis.KeyPrefix + k
}

// Set writes data under key with no expiration; expiry is managed by the cache layer
func (s *Store) Set(key string, data []byte) error {
	return s.client.Set(s.key(key), data, 0).Err()
}

// Get returns the value for key, or store.ErrKNF
func (s *Store) Get(key string) ([]byte, error) {
	b, err := s.client.Get(s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, store.ErrKNF
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Remove deletes key
func (s *Store) Remove(key string) error {
	return s.client.Del(s.key(key)).Err()
}

// scan visits every key under the configured prefix
func (s *Store) scan(fn func(fullKey string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(cursor, s.Config.Redis.KeyPrefix+"*", scanCount).Result()
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := fn(k); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Clear deletes every key under the prefix
func (s *Store) Clear() error {
	var keys []string
	if err := s.scan(func(k string) error {
		keys = append(keys, k)
		return nil
	}); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(keys...).Err()
}

// Info reports the keys under the prefix and the length of their values
func (s *Store) Info() (store.Info, error) {
	info := store.Info{LimitSize: s.Config.LimitSizeBytes}
	err := s.scan(func(k string) error {
		n, err := s.client.StrLen(k).Result()
		if err != nil {
			return err
		}
		short := strings.TrimPrefix(k, s.Config.Redis.KeyPrefix)
		info.Keys = append(info.Keys, short)
		info.CurrentSize += int64(len(short)) + n
		return nil
	})
	return info, err
}
