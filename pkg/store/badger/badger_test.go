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

package badger

import (
	"testing"

	"github.com/piecework/wmsclient/pkg/store/options"
	"github.com/piecework/wmsclient/pkg/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	dir := t.TempDir()
	cfg := options.New()
	cfg.Badger.Directory = dir
	cfg.Badger.ValueDirectory = dir
	s := New(t.Name(), cfg)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBadgerStore(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	storetest.Run(t, s)
}

func TestBadgerStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	cfg := options.New()
	cfg.Badger.Directory = dir
	cfg.Badger.ValueDirectory = dir

	s := New(t.Name(), cfg)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("token", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2 := New(t.Name(), cfg)
	if err := s2.Connect(); err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	b, err := s2.Get("token")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "abc" {
		t.Errorf("expected %s got %s", "abc", string(b))
	}
}
