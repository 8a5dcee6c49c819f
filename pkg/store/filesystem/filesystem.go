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

// Package filesystem is the filesystem implementation of the local Store.
// Each key is held in its own file under the configured store path.
package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/options"
)

// Store implements the store.Store interface
var _ store.Store = &Store{}

const dataSuffix = ".data"

var (
	keyEncoder = strings.NewReplacer("~", "~0", "/", "~1", "\\", "~2", "..", "~3", ".", "~4")
	keyDecoder = strings.NewReplacer("~1", "/", "~2", "\\", "~3", "..", "~4", ".", "~0", "~")
)

// Store describes a Filesystem store
type Store struct {
	Name   string
	Config *options.Options
	mtx    sync.Mutex
}

// New returns a new filesystem store
func New(name string, cfg *options.Options) *Store {
	if cfg == nil {
		cfg = options.New()
	}
	return &Store{
		Name:   name,
		Config: cfg,
	}
}

// Connect ensures the store path exists and is writable
func (s *Store) Connect() error {
	return makeDirectory(s.Config.Filesystem.StorePath)
}

// Close is a no-op for the filesystem store
func (s *Store) Close() error {
	return nil
}

func (s *Store) fileName(key string) string {
	return filepath.Join(s.Config.Filesystem.StorePath, keyEncoder.Replace(key)) + dataSuffix
}

// Set writes data to the key's file, replacing it atomically
func (s *Store) Set(key string, data []byte) error {
	if key == "" {
		return errors.New("key required")
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if limit := s.Config.LimitSizeBytes; limit > 0 {
		info, err := s.info()
		if err != nil {
			return err
		}
		size := info.CurrentSize + int64(len(key)+len(data))
		if fi, err := os.Stat(s.fileName(key)); err == nil {
			size -= int64(len(key)) + fi.Size()
		}
		if size > limit {
			return store.ErrQuotaExceeded
		}
	}
	fn := s.fileName(key)
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, fn)
}

// Get returns the contents of the key's file, or store.ErrKNF
func (s *Store) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(s.fileName(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, store.ErrKNF
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Remove deletes the key's file
func (s *Store) Remove(key string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	err := os.Remove(s.fileName(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Clear deletes every data file in the store path
func (s *Store) Clear() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	entries, err := os.ReadDir(s.Config.Filesystem.StorePath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), dataSuffix) {
			continue
		}
		err := os.Remove(filepath.Join(s.Config.Filesystem.StorePath, e.Name()))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Info lists the stored keys and their total size
func (s *Store) Info() (store.Info, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.info()
}

func (s *Store) info() (store.Info, error) {
	info := store.Info{LimitSize: s.Config.LimitSizeBytes}
	entries, err := os.ReadDir(s.Config.Filesystem.StorePath)
	if err != nil {
		return info, err
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, dataSuffix) {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return info, err
		}
		key := keyDecoder.Replace(strings.TrimSuffix(name, dataSuffix))
		info.Keys = append(info.Keys, key)
		info.CurrentSize += int64(len(key)) + fi.Size()
	}
	return info, nil
}

// makeDirectory creates a directory on the filesystem and returns the error in the event of a failure.
func makeDirectory(path string) error {
	err := os.MkdirAll(path, 0o755)
	if err == nil {
		// verify writability by attempting to touch a test file in the store path
		tf := filepath.Join(path, ".test."+strconv.FormatInt(time.Now().Unix(), 10))
		err = os.WriteFile(tf, []byte(""), 0o600)
		if err == nil {
			os.Remove(tf)
		}
	}
	if err != nil {
		return fmt.Errorf("[%s] directory is not writeable: %w", path, err)
	}
	return nil
}
