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

// Package badger is the BadgerDB implementation of the local Store
package badger

import (
	"errors"

	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/options"

	"github.com/dgraph-io/badger/v4"
)

// Store implements the store.Store interface
var _ store.Store = &Store{}

// Store describes a Badger-backed local store
type Store struct {
	Name   string
	Config *options.Options
	dbh    *badger.DB
}

// New returns a new badger store
func New(name string, cfg *options.Options) *Store {
	if cfg == nil {
		cfg = options.New()
	}
	return &Store{
		Name:   name,
		Config: cfg,
	}
}

// Connect opens the configured Badger key-value store
func (s *Store) Connect() error {
	opts := badger.DefaultOptions(s.Config.Badger.Directory).
		WithValueDir(s.Config.Badger.ValueDirectory).
		WithLogger(nil)
	var err error
	s.dbh, err = badger.Open(opts)
	return err
}

// Close closes the Badger database
func (s *Store) Close() error {
	if s.dbh == nil {
		return nil
	}
	err := s.dbh.Close()
	s.dbh = nil
	return err
}

// Set writes data under key
func (s *Store) Set(key string, data []byte) error {
	return s.dbh.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Get returns the value for key, or store.ErrKNF
func (s *Store) Get(key string) ([]byte, error) {
	var data []byte
	err := s.dbh.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrKNF
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Remove deletes key from the database
func (s *Store) Remove(key string) error {
	return s.dbh.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Clear drops every key in the database
func (s *Store) Clear() error {
	return s.dbh.DropAll()
}

// Info reports the keys and the approximate space used by their values
func (s *Store) Info() (store.Info, error) {
	info := store.Info{LimitSize: s.Config.LimitSizeBytes}
	err := s.dbh.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			info.Keys = append(info.Keys, string(k))
			info.CurrentSize += int64(len(k)) + item.ValueSize()
		}
		return nil
	})
	return info, err
}
