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

import "time"

const (
	// DefaultRedisEndpoint is the default Redis endpoint
	DefaultRedisEndpoint = "redis:6379"
	// DefaultKeyPrefix namespaces every key written by the redis store
	DefaultKeyPrefix = "wms:"
)

// Options is a collection of Configurations for Connecting to Redis
type Options struct {
	// Protocol represents the connection method (e.g., "tcp", "unix", etc.)
	Protocol string `yaml:"protocol,omitempty"`
	// Endpoint represents FQDN:port or IP:Port of the Redis Endpoint
	Endpoint string `yaml:"endpoint,omitempty"`
	// Password can be set when using a password protected redis instance
	Password string `yaml:"password,omitempty"`
	// DB is the Database to be selected after connecting to the server
	DB int `yaml:"db,omitempty"`
	// KeyPrefix is prepended to every key so several clients can share one DB
	KeyPrefix string `yaml:"key_prefix,omitempty"`
	// MaxRetries is the maximum number of retries before giving up on the command
	MaxRetries int `yaml:"max_retries,omitempty"`
	// DialTimeout is the timeout for establishing new connections
	DialTimeout time.Duration `yaml:"dial_timeout,omitempty"`
	// ReadTimeout is the timeout for socket reads
	ReadTimeout time.Duration `yaml:"read_timeout,omitempty"`
	// WriteTimeout is the timeout for socket writes
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// New returns a reference to a new Redis Options
func New() *Options {
	return &Options{
		Protocol:  "tcp",
		Endpoint:  DefaultRedisEndpoint,
		KeyPrefix: DefaultKeyPrefix,
	}
}
