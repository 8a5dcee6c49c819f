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

// Package options holds the token manager configuration
package options

import "time"

const (
	// DefaultRefreshBuffer is how long before expiry a token is refreshed
	DefaultRefreshBuffer = 5 * time.Minute
	// DefaultMonitorInterval is the token monitor's check interval
	DefaultMonitorInterval = 60 * time.Second
	// DefaultRefreshTimeout bounds a single refresh call
	DefaultRefreshTimeout = 30 * time.Second
	// DefaultRefreshPath is the API path of the refresh endpoint
	DefaultRefreshPath = "/auth/refresh"
)

// Options is a collection of token manager options
type Options struct {
	// RefreshBuffer is the remaining lifetime below which a token is refreshed
	RefreshBuffer time.Duration `yaml:"refresh_buffer,omitempty"`
	// MonitorInterval is the period of the background token check
	MonitorInterval time.Duration `yaml:"monitor_interval,omitempty"`
	// RefreshTimeout bounds the refresh request shared by concurrent callers
	RefreshTimeout time.Duration `yaml:"refresh_timeout,omitempty"`
	// RefreshPath is the API path the refresh token is posted to
	RefreshPath string `yaml:"refresh_path,omitempty"`
}

// New returns an Options with the default settings
func New() *Options {
	return &Options{
		RefreshBuffer:   DefaultRefreshBuffer,
		MonitorInterval: DefaultMonitorInterval,
		RefreshTimeout:  DefaultRefreshTimeout,
		RefreshPath:     DefaultRefreshPath,
	}
}

// Normalize replaces unset or invalid values with the defaults
func (o *Options) Normalize() {
	if o.RefreshBuffer <= 0 {
		o.RefreshBuffer = DefaultRefreshBuffer
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = DefaultMonitorInterval
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = DefaultRefreshTimeout
	}
	if o.RefreshPath == "" {
		o.RefreshPath = DefaultRefreshPath
	}
}
