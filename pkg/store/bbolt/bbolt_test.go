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

package bbolt

import (
	"errors"
	"strings"
	"testing"

	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/options"
	"github.com/piecework/wmsclient/pkg/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	testDbPath := t.TempDir() + "/test.db"
	s := New(t.Name(), testDbPath, "wmsclient_test", options.New())
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBboltStore(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	storetest.Run(t, s)
}

func TestBboltStore_ConnectFailed(t *testing.T) {
	const expected = `open `
	s := New(t.Name(), t.TempDir()+"/missing/dir/test.db", "", nil)
	err := s.Connect()
	if err == nil {
		s.Close()
		t.Fatal("expected error")
	}
	if !strings.HasPrefix(err.Error(), expected) {
		t.Errorf("expected error '%s' got '%s'", expected, err.Error())
	}
}

func TestBboltStore_ConnectBadBucketName(t *testing.T) {
	const expected = `create bucket: bucket name required`
	opts := options.New()
	opts.BBolt.Bucket = ""
	s := New(t.Name(), t.TempDir()+"/test.db", "", opts)
	err := s.Connect()
	if err == nil {
		s.Close()
		t.Fatalf("expected error for %s", expected)
	}
	if err.Error() != expected {
		t.Errorf("expected error '%s' got '%s'", expected, err.Error())
	}
}

func TestBboltStore_NotConnected(t *testing.T) {
	s := New(t.Name(), t.TempDir()+"/test.db", "", nil)
	if _, err := s.Get("k"); err != errNotConnected {
		t.Errorf("expected %v got %v", errNotConnected, err)
	}
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}

func TestBboltStore_Quota(t *testing.T) {
	opts := options.New()
	opts.LimitSizeBytes = 16
	s := New(t.Name(), t.TempDir()+"/test.db", "", opts)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.Set("key", []byte("0123456789")); err != nil {
		t.Fatal(err)
	}
	if err := s.Set("key2", []byte("0123456789")); !errors.Is(err, store.ErrQuotaExceeded) {
		t.Errorf("expected %v got %v", store.ErrQuotaExceeded, err)
	}
}

func TestBboltStore_Reopen(t *testing.T) {
	path := t.TempDir() + "/test.db"
	s := New(t.Name(), path, "", nil)
	if err := s.Connect(); err != nil {
		t.Fatal(err)
	}
	s.Set("offline_queue", []byte("[]"))
	s.Close()

	s2 := New(t.Name(), path, "", nil)
	if err := s2.Connect(); err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	b, err := s2.Get("offline_queue")
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "[]" {
		t.Errorf("expected %s got %s", "[]", string(b))
	}
}
