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

// Package registration builds and connects the configured local store provider
package registration

import (
	"fmt"

	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/badger"
	"github.com/piecework/wmsclient/pkg/store/bbolt"
	"github.com/piecework/wmsclient/pkg/store/filesystem"
	"github.com/piecework/wmsclient/pkg/store/memory"
	"github.com/piecework/wmsclient/pkg/store/options"
	"github.com/piecework/wmsclient/pkg/store/providers"
	"github.com/piecework/wmsclient/pkg/store/redis"
)

// NewStore returns an unconnected Store for the provider named in cfg
func NewStore(cfg *options.Options) (store.Store, error) {
	if cfg == nil {
		cfg = options.New()
	}
	id, ok := providers.Names[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("invalid store provider: %s", cfg.Provider)
	}
	cfg.ProviderID = id
	switch id {
	case providers.FilesystemID:
		return filesystem.New(cfg.Name, cfg), nil
	case providers.RedisID:
		return redis.New(cfg.Name, cfg), nil
	case providers.BBoltID:
		return bbolt.New(cfg.Name, "", "", cfg), nil
	case providers.BadgerDBID:
		return badger.New(cfg.Name, cfg), nil
	}
	return memory.New(cfg.Name, cfg), nil
}

// LoadStore builds and connects the configured Store
func LoadStore(cfg *options.Options, logger logging.Logger) (store.Store, error) {
	s, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.Connect(); err != nil {
		logger.Error("store connection failed",
			logging.Pairs{"provider": cfg.Provider, "detail": err})
		return nil, err
	}
	logger.Debug("store connected", logging.Pairs{"provider": cfg.Provider})
	return s, nil
}
