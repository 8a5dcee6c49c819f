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

package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	o := &Options{MaxQueueSize: -1, MaxRetries: 5, SyncInterval: time.Minute}
	o.Normalize()
	require.Equal(t, DefaultMaxQueueSize, o.MaxQueueSize)
	require.Equal(t, 5, o.MaxRetries)
	require.Equal(t, DefaultSnapshotMaxAge, o.SnapshotMaxAge)
	require.Equal(t, time.Minute, o.SyncInterval)
	require.Equal(t, 15*time.Second, o.ProbeInterval)

	d := &Options{}
	d.Normalize()
	require.Equal(t, New(), d)
}
