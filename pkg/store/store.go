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

// Package store defines the local key-value store interface consumed by the
// cache, offline and token components, and the errors its providers return
package store

import "errors"

// ErrKNF represents the error "key not found in store"
var ErrKNF = errors.New("key not found in store")

// ErrQuotaExceeded is returned by Set when the write would exceed the
// store's configured size limit
var ErrQuotaExceeded = errors.New("store quota exceeded")

// Store is the interface for the supported local storage providers.
// Get must return ErrKNF on a miss. Removing a missing key is not an error.
type Store interface {
	Connect() error
	Get(key string) ([]byte, error)
	Set(key string, data []byte) error
	Remove(key string) error
	Clear() error
	Info() (Info, error)
	Close() error
}

// Info describes the space used by a Store. Sizes are in bytes; a LimitSize
// of 0 means unlimited.
type Info struct {
	Keys        []string `json:"keys"`
	CurrentSize int64    `json:"currentSize"`
	LimitSize   int64    `json:"limitSize"`
}
