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

// Package appstate is the shared application state: a key/value map with
// per-key change subscriptions
package appstate

import "sync"

// Keys written by the token and offline managers
const (
	KeyIsLoggedIn  = "isLoggedIn"
	KeyToken       = "token"
	KeyUserInfo    = "userInfo"
	KeyOfflineMode = "offlineMode"
)

// Listener receives the new and previous values of a key. A removed key is
// reported with a nil newValue.
type Listener func(newValue, oldValue any)

// State is a key/subscribe store
type State interface {
	Set(key string, value any)
	Get(key string) (any, bool)
	Subscribe(key string, fn Listener) func()
}

type subscription struct {
	id int
	fn Listener
}

// Store is the in-process State implementation
type Store struct {
	mtx       sync.RWMutex
	values    map[string]any
	listeners map[string][]subscription
	nextID    int
}

var _ State = &Store{}

// New returns an empty Store
func New() *Store {
	return &Store{
		values:    make(map[string]any),
		listeners: make(map[string][]subscription),
	}
}

// Set stores value under key and notifies the key's listeners
func (s *Store) Set(key string, value any) {
	s.mtx.Lock()
	old := s.values[key]
	s.values[key] = value
	subs := append([]subscription(nil), s.listeners[key]...)
	s.mtx.Unlock()
	for _, sub := range subs {
		sub.fn(value, old)
	}
}

// Get returns the value stored under key
func (s *Store) Get(key string) (any, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Bool returns the value under key as a bool; false when absent or not a bool
func (s *Store) Bool(key string) bool {
	v, _ := s.Get(key)
	b, _ := v.(bool)
	return b
}

// Remove deletes key and notifies its listeners
func (s *Store) Remove(key string) {
	s.mtx.Lock()
	old, ok := s.values[key]
	delete(s.values, key)
	subs := append([]subscription(nil), s.listeners[key]...)
	s.mtx.Unlock()
	if !ok {
		return
	}
	for _, sub := range subs {
		sub.fn(nil, old)
	}
}

// Snapshot returns a copy of every stored value
func (s *Store) Snapshot() map[string]any {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Subscribe registers fn for changes to key and returns a function that
// removes it
func (s *Store) Subscribe(key string, fn Listener) func() {
	s.mtx.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[key] = append(s.listeners[key], subscription{id: id, fn: fn})
	s.mtx.Unlock()
	return func() {
		s.mtx.Lock()
		defer s.mtx.Unlock()
		subs := s.listeners[key]
		for i, sub := range subs {
			if sub.id == id {
				s.listeners[key] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}
