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

// DefaultStorePath is the default directory for the filesystem store
const DefaultStorePath = "/tmp/wmsclient/store"

// Options is a collection of Configurations for storing data on the Filesystem
type Options struct {
	// StorePath represents the path on disk where data is stored, one file per key
	StorePath string `yaml:"store_path,omitempty"`
}

// New returns a reference to a new Filesystem Options
func New() *Options {
	return &Options{StorePath: DefaultStorePath}
}
