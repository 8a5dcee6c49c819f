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

// Package memory is the in-memory implementation of the local Store
package memory

import (
	"sort"
	"sync"

	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/options"
)

// Store implements the store.Store interface
var _ store.Store = &Store{}

// Store defines a Memory Store that enforces the configured size limit
type Store struct {
	Name   string
	Config *options.Options

	mtx  sync.RWMutex
	data map[string][]byte
	size int64
}

// New returns a new memory store
func New(name string, cfg *options.Options) *Store {
	if cfg == nil {
		cfg = options.New()
	}
	return &Store{
		Name:   name,
		Config: cfg,
		data:   make(map[string][]byte),
	}
}

// Connect initializes the Store
func (s *Store) Connect() error {
	return nil
}

func entrySize(key string, data []byte) int64 {
	return int64(len(key) + len(data))
}

// Set places a copy of data in the store under key
func (s *Store) Set(key string, data []byte) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	size := s.size + entrySize(key, data)
	if old, ok := s.data[key]; ok {
		size -= entrySize(key, old)
	}
	if s.Config.LimitSizeBytes > 0 && size > s.Config.LimitSizeBytes {
		return store.ErrQuotaExceeded
	}
	b := make([]byte, len(data))
	copy(b, data)
	s.data[key] = b
	s.size = size
	return nil
}

// Get returns a copy of the value for key, or store.ErrKNF
func (s *Store) Get(key string) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, store.ErrKNF
	}
	b := make([]byte, len(v))
	copy(b, v)
	return b, nil
}

// Remove deletes key from the store
func (s *Store) Remove(key string) error {
	s.mtx.Lock()
	if old, ok := s.data[key]; ok {
		s.size -= entrySize(key, old)
		delete(s.data, key)
	}
	s.mtx.Unlock()
	return nil
}

// Clear deletes every key from the store
func (s *Store) Clear() error {
	s.mtx.Lock()
	s.data = make(map[string][]byte)
	s.size = 0
	s.mtx.Unlock()
	return nil
}

// Info reports the keys and space used by the store
func (s *Store) Info() (store.Info, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return store.Info{Keys: keys, CurrentSize: s.size, LimitSize: s.Config.LimitSizeBytes}, nil
}

// Close drops all data held by the store
func (s *Store) Close() error {
	return s.Clear()
}
