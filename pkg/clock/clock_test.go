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

package clock

import (
	"testing"
	"time"
)

func TestFake(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f := NewFake(t0)
	if !f.Now().Equal(t0) {
		t.Errorf("expected %v got %v", t0, f.Now())
	}
	f.Advance(90 * time.Second)
	if got := f.Now().Sub(t0); got != 90*time.Second {
		t.Errorf("expected %v got %v", 90*time.Second, got)
	}
	if UnixMilli(f) != t0.Add(90*time.Second).UnixMilli() {
		t.Error("unexpected UnixMilli value")
	}
	f.Set(t0)
	if !f.Now().Equal(t0) {
		t.Errorf("expected %v got %v", t0, f.Now())
	}
}

func TestSystem(t *testing.T) {
	before := time.Now()
	n := System().Now()
	if n.Before(before) {
		t.Error("system clock went backwards")
	}
}
