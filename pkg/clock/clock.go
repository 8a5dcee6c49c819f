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

// Package clock provides the time source shared by the cache, offline and
// token components, so expiry logic can be driven by a fake clock in tests
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a Clock backed by time.Now
func System() Clock {
	return systemClock{}
}

// Fake is a manually-advanced Clock
type Fake struct {
	mtx sync.Mutex
	now time.Time
}

// NewFake returns a Fake clock set to t
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

// Now returns the fake's current time
func (f *Fake) Now() time.Time {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d
func (f *Fake) Advance(d time.Duration) {
	f.mtx.Lock()
	f.now = f.now.Add(d)
	f.mtx.Unlock()
}

// Set moves the fake clock to t
func (f *Fake) Set(t time.Time) {
	f.mtx.Lock()
	f.now = t
	f.mtx.Unlock()
}

// UnixMilli returns the epoch-millisecond timestamp for c's current time
func UnixMilli(c Clock) int64 {
	return c.Now().UnixMilli()
}
