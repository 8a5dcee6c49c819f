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

// Package options holds the offline manager configuration
package options

import "time"

const (
	// DefaultMaxQueueSize is the operation queue capacity
	DefaultMaxQueueSize = 100
	// DefaultMaxRetries is the number of failed replays after which an
	// operation is dropped
	DefaultMaxRetries = 3
	// DefaultSnapshotMaxAge is the age after which a snapshot is treated as absent
	DefaultSnapshotMaxAge = 24 * time.Hour
)

// Options is a collection of offline manager options
type Options struct {
	// MaxQueueSize is the number of queued operations kept; the oldest is evicted on overflow
	MaxQueueSize int `yaml:"max_queue_size,omitempty"`
	// MaxRetries is the number of failed sync attempts allowed per operation
	MaxRetries int `yaml:"max_retries,omitempty"`
	// SnapshotMaxAge is the default maximum age of offline snapshots
	SnapshotMaxAge time.Duration `yaml:"snapshot_max_age,omitempty"`
	// SyncInterval, when positive, runs a sync pass on a fixed interval in
	// addition to the reconnect trigger
	SyncInterval time.Duration `yaml:"sync_interval,omitempty"`
	// ProbeURL, when set, is polled to detect connectivity instead of
	// assuming the network is always available
	ProbeURL string `yaml:"probe_url,omitempty"`
	// ProbeInterval is the polling interval of ProbeURL
	ProbeInterval time.Duration `yaml:"probe_interval,omitempty"`
}

// New returns an Options with the default settings
func New() *Options {
	return &Options{
		MaxQueueSize:   DefaultMaxQueueSize,
		MaxRetries:     DefaultMaxRetries,
		SnapshotMaxAge: DefaultSnapshotMaxAge,
		ProbeInterval:  15 * time.Second,
	}
}

// Normalize replaces unset or invalid values with the defaults
func (o *Options) Normalize() {
	d := New()
	if o.MaxQueueSize <= 0 {
		o.MaxQueueSize = d.MaxQueueSize
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = d.MaxRetries
	}
	if o.SnapshotMaxAge <= 0 {
		o.SnapshotMaxAge = d.SnapshotMaxAge
	}
	if o.ProbeInterval <= 0 {
		o.ProbeInterval = d.ProbeInterval
	}
}
