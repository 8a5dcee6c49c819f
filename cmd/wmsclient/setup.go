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

package main

import (
	"errors"
	"fmt"

	"github.com/piecework/wmsclient/cmd/wmsclient/config"
	"github.com/piecework/wmsclient/pkg/appstate"
	"github.com/piecework/wmsclient/pkg/cache"
	"github.com/piecework/wmsclient/pkg/cache/smart"
	"github.com/piecework/wmsclient/pkg/loader"
	"github.com/piecework/wmsclient/pkg/netstatus"
	"github.com/piecework/wmsclient/pkg/network"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/offline"
	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/store/registration"
	"github.com/piecework/wmsclient/pkg/token"
)

// client is the wired set of components behind every command
type client struct {
	store   store.Store
	cache   *cache.Cache
	smart   *smart.Cache
	state   *appstate.Store
	prober  *netstatus.Prober
	tokens  *token.Manager
	offline *offline.Manager
	loader  *loader.Loader
	logger  logging.Logger
}

// newClient connects the configured store and builds the caches, the token
// and offline managers and the loader on top of it
func newClient(conf *config.Config, logger logging.Logger) (*client, error) {
	s, err := registration.LoadStore(conf.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}
	base := cache.New(s, cache.Config{
		Name:                   conf.Store.Name,
		DefaultExpire:          conf.Cache.DefaultExpire,
		CompressThresholdBytes: conf.Store.CompressThresholdBytes,
		Logger:                 logger,
	})
	c := &client{
		store:  s,
		cache:  base,
		smart:  smart.New(base),
		state:  appstate.New(),
		logger: logger,
	}

	// the token manager refreshes over the bare client so a refresh call
	// never waits on itself for a bearer token
	api := network.NewHTTPClient(conf.API.URL, conf.API.Timeout, nil, logger)
	c.tokens = token.New(api, base, conf.Token,
		token.WithLogger(logger),
		token.WithState(c.state),
		token.WithSessionExpiredHandler(func() {
			logger.Warn("session expired, login required", nil)
		}),
	)

	probeURL := conf.Offline.ProbeURL
	if probeURL == "" {
		probeURL = conf.API.URL
	}
	c.prober = netstatus.NewProber(probeURL, conf.Offline.ProbeInterval, nil, logger)
	c.offline = offline.New(network.WithBearerToken(api, c.tokens), c.prober, base, conf.Offline,
		offline.WithLogger(logger),
		offline.WithState(c.state),
		offline.WithNotifier(offline.NotifierFunc(func(succeeded int) {
			logger.Info("offline operations synced", logging.Pairs{"succeeded": succeeded})
		})),
	)
	c.loader = loader.New(c.smart, c.offline, logger)
	return c, nil
}

// Close stops the offline manager and closes the store
func (c *client) Close() error {
	return errors.Join(c.offline.Close(), c.store.Close())
}
