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

package cache

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/piecework/wmsclient/pkg/cache/status"
	"github.com/piecework/wmsclient/pkg/clock"
	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/memory"
	"github.com/piecework/wmsclient/pkg/store/options"
)

var testEpoch = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*Cache, *clock.Fake, *memory.Store) {
	t.Helper()
	clk := clock.NewFake(testEpoch)
	s := memory.New(t.Name(), nil)
	return New(s, Config{Name: "test", Clock: clk}), clk, s
}

func TestCache_SetGet(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.Set("user", map[string]string{"name": "li"}, time.Minute)
	data, ok := c.Get("user")
	if !ok {
		t.Fatal("expected hit")
	}
	if string(data) != `{"name":"li"}` {
		t.Errorf("expected %s got %s", `{"name":"li"}`, string(data))
	}
}

func TestCache_ExpiryBoundary(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		want    status.LookupStatus
	}{
		{"fresh", 0, status.LookupStatusHit},
		{"just before", time.Minute - time.Millisecond, status.LookupStatusHit},
		{"at boundary", time.Minute, status.LookupStatusExpired},
		{"after", time.Minute + time.Millisecond, status.LookupStatusExpired},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, clk, s := newTestCache(t)
			c.Set("k", 1, time.Minute)
			clk.Advance(test.advance)
			_, st := c.Retrieve("k")
			if st != test.want {
				t.Errorf("expected %s got %s", test.want, st)
			}
			_, err := s.Get("k")
			if test.want == status.LookupStatusExpired && !errors.Is(err, store.ErrKNF) {
				t.Error("expected expired entry to be evicted")
			}
			if test.want == status.LookupStatusHit && err != nil {
				t.Errorf("expected entry to remain, got %v", err)
			}
		})
	}
}

func TestCache_DefaultExpire(t *testing.T) {
	c, clk, _ := newTestCache(t)
	c.Set("k", "v", 0)
	clk.Advance(DefaultExpire - time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Error("expected hit before the default expiry")
	}
	clk.Advance(time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss at the default expiry")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c, clk, _ := newTestCache(t)
	c.Set("k", "old", time.Minute)
	clk.Advance(50 * time.Second)
	c.Set("k", "new", time.Minute)
	clk.Advance(50 * time.Second)
	var v string
	if !c.GetInto("k", &v) {
		t.Fatal("expected hit")
	}
	if v != "new" {
		t.Errorf("expected %s got %s", "new", v)
	}
}

func TestCache_Miss(t *testing.T) {
	c, _, _ := newTestCache(t)
	data, st := c.Retrieve("missing")
	if data != nil || st != status.LookupStatusKeyMiss {
		t.Errorf("expected kmiss got %s", st)
	}
}

func TestCache_CorruptEntry(t *testing.T) {
	c, _, s := newTestCache(t)
	if err := s.Set("k", []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if _, st := c.Retrieve("k"); st != status.LookupStatusError {
		t.Errorf("expected %s got %s", status.LookupStatusError, st)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected corrupt entry to read as a miss")
	}
}

func TestCache_SetFailures(t *testing.T) {
	clk := clock.NewFake(testEpoch)
	cfg := options.New()
	cfg.LimitSizeBytes = 64
	s := memory.New(t.Name(), cfg)
	c := New(s, Config{Clock: clk})

	// over quota: logged, not returned
	c.Set("big", strings.Repeat("x", 128), time.Minute)
	if _, ok := c.Get("big"); ok {
		t.Error("expected write over quota to be dropped")
	}

	// unencodable data
	c.Set("ch", make(chan int), time.Minute)
	if _, ok := c.Get("ch"); ok {
		t.Error("expected unencodable write to be dropped")
	}
}

func TestCache_Compressed(t *testing.T) {
	clk := clock.NewFake(testEpoch)
	s := memory.New(t.Name(), nil)
	c := New(s, Config{Clock: clk, CompressThresholdBytes: 16})
	in := strings.Repeat("inventory", 100)
	c.Set("k", in, time.Minute)
	b, err := s.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if len(b) >= len(in) {
		t.Errorf("expected compressed record, got %d bytes", len(b))
	}
	var out string
	if !c.GetInto("k", &out) || out != in {
		t.Error("expected compressed entry to round trip")
	}
}

func TestCache_RemoveClearInfo(t *testing.T) {
	c, _, _ := newTestCache(t)
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Remove("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be removed")
	}
	info, ok := c.Info()
	if !ok {
		t.Fatal("expected info")
	}
	if len(info.Keys) != 1 || info.Keys[0] != "b" {
		t.Errorf("expected [b] got %v", info.Keys)
	}
	c.Clear()
	info, _ = c.Info()
	if len(info.Keys) != 0 {
		t.Errorf("expected no keys got %v", info.Keys)
	}
}

func TestEntry_JSON(t *testing.T) {
	e := Entry{Data: json.RawMessage(`[1,2]`), Timestamp: 1000, ExpireTime: 300000}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	const want = `{"data":[1,2],"timestamp":1000,"expireTime":300000}`
	if string(b) != want {
		t.Errorf("expected %s got %s", want, string(b))
	}
}

func TestCache_Records(t *testing.T) {
	c, clk, _ := newTestCache(t)
	type queue struct {
		IDs []string `json:"ids"`
	}
	if err := c.PutRecord("q", queue{IDs: []string{"a", "b"}}); err != nil {
		t.Fatal(err)
	}
	// records never expire
	clk.Advance(365 * 24 * time.Hour)
	var q queue
	if err := c.GetRecord("q", &q); err != nil {
		t.Fatal(err)
	}
	if len(q.IDs) != 2 || q.IDs[1] != "b" {
		t.Errorf("unexpected record %v", q)
	}
	if err := c.GetRecord("missing", &q); !errors.Is(err, store.ErrKNF) {
		t.Errorf("expected %v got %v", store.ErrKNF, err)
	}
	if err := c.PutRecord("bad", make(chan int)); err == nil {
		t.Error("expected error for unencodable record")
	}
}
