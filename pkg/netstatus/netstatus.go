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

// Package netstatus reports network connectivity: a one-shot probe plus
// change notifications
package netstatus

import (
	"context"
	"sort"
	"sync"
)

// Network types reported by the sources in this package
const (
	TypeNone    = "none"
	TypeUnknown = "unknown"
	TypeWifi    = "wifi"
	TypeHTTP    = "http"
)

// Status is a connectivity change event
type Status struct {
	IsConnected bool   `json:"isConnected"`
	NetworkType string `json:"networkType"`
}

// Source is a network status event source
type Source interface {
	// NetworkType probes the current network type once
	NetworkType(ctx context.Context) (string, error)
	// Subscribe registers fn for status changes and returns a function
	// that removes it
	Subscribe(fn func(Status)) func()
}

// Connected reports whether a probed network type means the device is online
func Connected(networkType string) bool {
	return networkType != "" && networkType != TypeNone
}

type subscribers struct {
	mtx  sync.Mutex
	next int
	fns  map[int]func(Status)
}

func (s *subscribers) add(fn func(Status)) func() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Status))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mtx.Lock()
			delete(s.fns, id)
			s.mtx.Unlock()
		})
	}
}

// notify calls every subscriber in registration order, outside the lock
func (s *subscribers) notify(st Status) {
	s.mtx.Lock()
	ids := make([]int, 0, len(s.fns))
	for id := range s.fns {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Status), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.fns[id])
	}
	s.mtx.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}

// Manual is a Source whose status is set by its owner
type Manual struct {
	mtx         sync.Mutex
	networkType string
	err         error
	subs        subscribers
}

var _ Source = &Manual{}

// NewManual returns a Manual source reporting networkType
func NewManual(networkType string) *Manual {
	return &Manual{networkType: networkType}
}

// NetworkType returns the current network type, or the probe error set by SetError
func (m *Manual) NetworkType(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.networkType, nil
}

// Subscribe registers fn for status changes
func (m *Manual) Subscribe(fn func(Status)) func() {
	return m.subs.add(fn)
}

// Set changes the network type and notifies subscribers when the
// connectivity or type changed
func (m *Manual) Set(networkType string) {
	m.mtx.Lock()
	changed := m.networkType != networkType || m.err != nil
	m.networkType = networkType
	m.err = nil
	m.mtx.Unlock()
	if changed {
		m.subs.notify(Status{IsConnected: Connected(networkType), NetworkType: networkType})
	}
}

// SetOnline is shorthand for Set(TypeWifi) or Set(TypeNone)
func (m *Manual) SetOnline(online bool) {
	if online {
		m.Set(TypeWifi)
		return
	}
	m.Set(TypeNone)
}

// SetError makes subsequent probes fail with err
func (m *Manual) SetError(err error) {
	m.mtx.Lock()
	m.err = err
	m.mtx.Unlock()
}
