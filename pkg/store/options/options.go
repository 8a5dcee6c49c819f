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

// Package options holds the local store configuration
package options

import (
	"fmt"
	"strings"

	badger "github.com/piecework/wmsclient/pkg/store/badger/options"
	bbolt "github.com/piecework/wmsclient/pkg/store/bbolt/options"
	filesystem "github.com/piecework/wmsclient/pkg/store/filesystem/options"
	"github.com/piecework/wmsclient/pkg/store/providers"
	redis "github.com/piecework/wmsclient/pkg/store/redis/options"
	"github.com/piecework/wmsclient/pkg/util/yamlx"
)

const (
	// DefaultProvider is the provider used when none is configured
	DefaultProvider = providers.Memory
	// DefaultLimitSizeBytes matches the local storage quota of the mini-app platform
	DefaultLimitSizeBytes = 10 * 1024 * 1024
	// DefaultCompressThresholdBytes is the record size above which values are snappy-compressed
	DefaultCompressThresholdBytes = 4096
)

// Options is a collection of options defining the local store
type Options struct {
	// Name is the Name of the store
	Name string `yaml:"-"`
	// Provider is the storage provider: "memory", "bbolt", "badger", "redis" or "filesystem"
	Provider string `yaml:"provider,omitempty"`
	// LimitSizeBytes is the store quota; 0 is unlimited
	LimitSizeBytes int64 `yaml:"limit_size_bytes,omitempty"`
	// CompressThresholdBytes is the encoded record size above which values are compressed; -1 disables
	CompressThresholdBytes int `yaml:"compress_threshold_bytes,omitempty"`
	// Filesystem provides options for Filesystem storage
	Filesystem *filesystem.Options `yaml:"filesystem,omitempty"`
	// BBolt provides options for BBolt storage
	BBolt *bbolt.Options `yaml:"bbolt,omitempty"`
	// Badger provides options for BadgerDB storage
	Badger *badger.Options `yaml:"badger,omitempty"`
	// Redis provides options for Redis storage
	Redis *redis.Options `yaml:"redis,omitempty"`

	// ProviderID represents the internal constant for the provided Provider string
	// and is automatically populated at startup
	ProviderID providers.Provider `yaml:"-"`
}

// New will return a pointer to an Options with the default configuration settings
func New() *Options {
	return &Options{
		Name:                   "default",
		Provider:               DefaultProvider,
		ProviderID:             providers.Names[DefaultProvider],
		LimitSizeBytes:         DefaultLimitSizeBytes,
		CompressThresholdBytes: DefaultCompressThresholdBytes,
		Filesystem:             filesystem.New(),
		BBolt:                  bbolt.New(),
		Badger:                 badger.New(),
		Redis:                  redis.New(),
	}
}

// Initialize resolves the provider id and fills any sub-options that were
// not present in the YAML document. md holds the keys that were present,
// rooted at "store".
func (o *Options) Initialize(md yamlx.KeyLookup) error {
	d := New()
	if o.Provider == "" {
		o.Provider = d.Provider
	}
	o.Provider = strings.ToLower(strings.TrimSpace(o.Provider))
	id, ok := providers.Names[o.Provider]
	if !ok {
		return fmt.Errorf("invalid store provider: %s", o.Provider)
	}
	o.ProviderID = id
	if !md.IsDefined("store", "limit_size_bytes") {
		o.LimitSizeBytes = d.LimitSizeBytes
	}
	if !md.IsDefined("store", "compress_threshold_bytes") {
		o.CompressThresholdBytes = d.CompressThresholdBytes
	}
	if o.Filesystem == nil {
		o.Filesystem = d.Filesystem
	}
	if o.BBolt == nil {
		o.BBolt = d.BBolt
	}
	if o.Badger == nil {
		o.Badger = d.Badger
	}
	if o.Redis == nil {
		o.Redis = d.Redis
	}
	if o.BBolt.Bucket == "" {
		o.BBolt.Bucket = d.BBolt.Bucket
	}
	if o.Redis.KeyPrefix == "" && !md.IsDefined("store", "redis", "key_prefix") {
		o.Redis.KeyPrefix = d.Redis.KeyPrefix
	}
	return nil
}
