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

// Package bbolt is the bbolt implementation of the local Store
package bbolt

import (
	"errors"
	"fmt"
	"time"

	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/options"

	"go.etcd.io/bbolt"
)

// Store implements the store.Store interface
var _ store.Store = &Store{}

// Store describes a BBolt-backed local store
type Store struct {
	Name   string
	Config *options.Options
	dbh    *bbolt.DB
}

var errNotConnected = errors.New("bbolt store is not connected")

// New returns a new bbolt store. Non-empty fileName and bucketName override the
// values in opts
func New(name, fileName, bucketName string, opts *options.Options) *Store {
	if opts == nil {
		opts = options.New()
	}
	if bucketName != "" {
		opts.BBolt.Bucket = bucketName
	}
	if fileName != "" {
		opts.BBolt.Filename = fileName
	}
	return &Store{
		Name:   name,
		Config: opts,
	}
}

// Connect opens the database file and ensures the bucket exists
func (s *Store) Connect() error {
	var err error
	s.dbh, err = bbolt.Open(s.Config.BBolt.Filename, 0o644, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}
	err = s.dbh.Update(func(tx *bbolt.Tx) error {
		_, err2 := tx.CreateBucketIfNotExists([]byte(s.Config.BBolt.Bucket))
		if err2 != nil {
			return fmt.Errorf("create bucket: %w", err2)
		}
		return nil
	})
	if err != nil {
		s.dbh.Close()
		s.dbh = nil
		return err
	}
	return nil
}

// Close closes the database file
func (s *Store) Close() error {
	if s.dbh == nil {
		return nil
	}
	err := s.dbh.Close()
	s.dbh = nil
	return err
}

func (s *Store) bucket() []byte {
	return []byte(s.Config.BBolt.Bucket)
}

// Set writes data under key, honoring the configured size limit
func (s *Store) Set(key string, data []byte) error {
	if s.dbh == nil {
		return errNotConnected
	}
	return s.dbh.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(s.bucket())
		if limit := s.Config.LimitSizeBytes; limit > 0 {
			size := bucketSize(b) + int64(len(key)+len(data))
			if old := b.Get([]byte(key)); old != nil {
				size -= int64(len(key) + len(old))
			}
			if size > limit {
				return store.ErrQuotaExceeded
			}
		}
		return b.Put([]byte(key), data)
	})
}

// Get returns a copy of the value for key, or store.ErrKNF
func (s *Store) Get(key string) ([]byte, error) {
	if s.dbh == nil {
		return nil, errNotConnected
	}
	var data []byte
	err := s.dbh.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(s.bucket()).Get([]byte(key))
		if v == nil {
			return store.ErrKNF
		}
		// bbolt values are only valid for the life of the transaction
		data = make([]byte, len(v))
		copy(data, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Remove deletes key from the bucket
func (s *Store) Remove(key string) error {
	if s.dbh == nil {
		return errNotConnected
	}
	return s.dbh.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket()).Delete([]byte(key))
	})
}

// Clear drops and recreates the bucket
func (s *Store) Clear() error {
	if s.dbh == nil {
		return errNotConnected
	}
	return s.dbh.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(s.bucket()); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(s.bucket())
		return err
	})
}

// Info reports the keys and space used in the bucket
func (s *Store) Info() (store.Info, error) {
	info := store.Info{LimitSize: s.Config.LimitSizeBytes}
	if s.dbh == nil {
		return info, errNotConnected
	}
	err := s.dbh.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket()).ForEach(func(k, v []byte) error {
			info.Keys = append(info.Keys, string(k))
			info.CurrentSize += int64(len(k) + len(v))
			return nil
		})
	})
	return info, err
}

func bucketSize(b *bbolt.Bucket) int64 {
	var n int64
	b.ForEach(func(k, v []byte) error {
		n += int64(len(k) + len(v))
		return nil
	})
	return n
}
