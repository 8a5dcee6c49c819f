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

package appstate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	s := New()
	_, ok := s.Get(KeyIsLoggedIn)
	require.False(t, ok)
	require.False(t, s.Bool(KeyIsLoggedIn))

	type change struct{ newValue, oldValue any }
	var changes []change
	unsubscribe := s.Subscribe(KeyIsLoggedIn, func(n, o any) {
		changes = append(changes, change{n, o})
	})
	other := 0
	s.Subscribe(KeyToken, func(any, any) { other++ })

	s.Set(KeyIsLoggedIn, true)
	require.True(t, s.Bool(KeyIsLoggedIn))
	s.Set(KeyIsLoggedIn, false)
	require.Equal(t, []change{{true, nil}, {false, true}}, changes)
	require.Equal(t, 0, other)

	s.Remove(KeyIsLoggedIn)
	require.Len(t, changes, 3)
	require.Nil(t, changes[2].newValue)
	s.Remove(KeyIsLoggedIn) // absent, no event
	require.Len(t, changes, 3)

	unsubscribe()
	unsubscribe()
	s.Set(KeyIsLoggedIn, true)
	require.Len(t, changes, 3)
}

func TestStore_SubscribeInListener(t *testing.T) {
	s := New()
	var calls int
	s.Subscribe("k", func(any, any) {
		calls++
		s.Subscribe("k", func(any, any) { calls++ })
	})
	s.Set("k", 1)
	require.Equal(t, 1, calls)
	s.Set("k", 2)
	require.Equal(t, 3, calls)
}

func TestStore_Snapshot(t *testing.T) {
	s := New()
	s.Set(KeyToken, "abc")
	snap := s.Snapshot()
	snap[KeyToken] = "changed"
	v, _ := s.Get(KeyToken)
	require.Equal(t, "abc", v)
}
