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

// Package storetest provides a behavioral test suite that every store
// provider must pass
package storetest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/piecework/wmsclient/pkg/store"
)

// Run exercises the store.Store contract against a connected store
func Run(t *testing.T, s store.Store) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) {
		_, err := s.Get("missing")
		if !errors.Is(err, store.ErrKNF) {
			t.Errorf("expected %v got %v", store.ErrKNF, err)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := s.Set("key1", []byte("value1")); err != nil {
			t.Fatal(err)
		}
		b, err := s.Get("key1")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b, []byte("value1")) {
			t.Errorf("expected %s got %s", "value1", string(b))
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		if err := s.Set("key1", []byte("value2")); err != nil {
			t.Fatal(err)
		}
		b, err := s.Get("key1")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(b, []byte("value2")) {
			t.Errorf("expected %s got %s", "value2", string(b))
		}
	})

	t.Run("keys with separators", func(t *testing.T) {
		const key = "api_/inventory/items?page=0&size=20"
		if err := s.Set(key, []byte("x")); err != nil {
			t.Fatal(err)
		}
		info, err := s.Info()
		if err != nil {
			t.Fatal(err)
		}
		if !contains(info.Keys, key) {
			t.Errorf("expected %s in %v", key, info.Keys)
		}
	})

	t.Run("info", func(t *testing.T) {
		info, err := s.Info()
		if err != nil {
			t.Fatal(err)
		}
		if !contains(info.Keys, "key1") {
			t.Errorf("expected key1 in %v", info.Keys)
		}
		if info.CurrentSize <= 0 {
			t.Errorf("expected positive size got %d", info.CurrentSize)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := s.Remove("key1"); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Get("key1"); !errors.Is(err, store.ErrKNF) {
			t.Errorf("expected %v got %v", store.ErrKNF, err)
		}
		if err := s.Remove("key1"); err != nil {
			t.Errorf("expected nil error removing a missing key, got %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		for _, k := range []string{"a", "b", "c"} {
			if err := s.Set(k, []byte(k)); err != nil {
				t.Fatal(err)
			}
		}
		if err := s.Clear(); err != nil {
			t.Fatal(err)
		}
		info, err := s.Info()
		if err != nil {
			t.Fatal(err)
		}
		if len(info.Keys) != 0 {
			t.Errorf("expected no keys got %v", info.Keys)
		}
		if _, err := s.Get("a"); !errors.Is(err, store.ErrKNF) {
			t.Errorf("expected %v got %v", store.ErrKNF, err)
		}
	})
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
