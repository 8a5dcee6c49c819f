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

package config

import "time"

const (
	// DefaultConfigPath is the default location of the wmsclient config file
	DefaultConfigPath = "/etc/wmsclient/wmsclient.yaml"
	// DefaultAPITimeout is the default base timeout of an API request
	DefaultAPITimeout = 10 * time.Second
	// DefaultCacheExpire is the default expiry of cached data
	DefaultCacheExpire = 2 * time.Hour
	// DefaultStatsMaxAge is the default idle time after which access statistics are dropped
	DefaultStatsMaxAge = 7 * 24 * time.Hour
	// DefaultStatsCleanupInterval is the default interval between access statistics cleanups
	DefaultStatsCleanupInterval = time.Hour
)
