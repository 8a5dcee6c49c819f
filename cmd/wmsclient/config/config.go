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

// Package config provides the wmsclient configuration: a defaulted Config
// overridden by a YAML file, then environment variables, then command line
// flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	lo "github.com/piecework/wmsclient/pkg/observability/logging/options"
	mo "github.com/piecework/wmsclient/pkg/observability/metrics/options"
	oo "github.com/piecework/wmsclient/pkg/offline/options"
	so "github.com/piecework/wmsclient/pkg/store/options"
	"github.com/piecework/wmsclient/pkg/store/providers"
	to "github.com/piecework/wmsclient/pkg/token/options"
	"github.com/piecework/wmsclient/pkg/util/yamlx"

	"gopkg.in/yaml.v2"
)

// Config is the main configuration object
type Config struct {
	// Main is the primary MainConfig section
	Main *MainConfig `yaml:"main,omitempty"`
	// API configures the REST API client
	API *APIConfig `yaml:"api,omitempty"`
	// Store configures the local store provider
	Store *so.Options `yaml:"store,omitempty"`
	// Cache configures the base and smart caches
	Cache *CacheConfig `yaml:"cache,omitempty"`
	// Offline configures the offline manager
	Offline *oo.Options `yaml:"offline,omitempty"`
	// Token configures the token manager
	Token *to.Options `yaml:"token,omitempty"`
	// Logging provides configurations that affect logging behavior
	Logging *lo.Options `yaml:"logging,omitempty"`
	// Metrics provides configurations for collecting Metrics about the application
	Metrics *mo.Options `yaml:"metrics,omitempty"`

	// Flags holds the command line flags the Config was loaded with
	Flags *Flags `yaml:"-"`
	// LoaderWarnings holds non-fatal issues found while loading
	LoaderWarnings []string `yaml:"-"`

	configFilePath string
	metadata       yamlx.KeyLookup
}

// MainConfig is a collection of general configuration values
type MainConfig struct {
	// InstanceID distinguishes the log files of processes sharing one config
	InstanceID int `yaml:"instance_id,omitempty"`
}

// APIConfig is a collection of REST API client configurations
type APIConfig struct {
	// URL is the base URL the request paths are joined to
	URL string `yaml:"url,omitempty"`
	// Timeout is the base request timeout, scaled up for file transfer paths
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// CacheConfig is a collection of cache configurations
type CacheConfig struct {
	// DefaultExpire is the expiry of writes that do not name one
	DefaultExpire time.Duration `yaml:"default_expire,omitempty"`
	// StatsMaxAge is the idle time after which a key's access statistics are dropped
	StatsMaxAge time.Duration `yaml:"stats_max_age,omitempty"`
	// StatsCleanupInterval is how often the daemon drops idle access statistics
	StatsCleanupInterval time.Duration `yaml:"stats_cleanup_interval,omitempty"`
}

// NewConfig returns a Config initialized with default values
func NewConfig() *Config {
	return &Config{
		Main: &MainConfig{},
		API: &APIConfig{
			Timeout: DefaultAPITimeout,
		},
		Store: so.New(),
		Cache: &CacheConfig{
			DefaultExpire:        DefaultCacheExpire,
			StatsMaxAge:          DefaultStatsMaxAge,
			StatsCleanupInterval: DefaultStatsCleanupInterval,
		},
		Offline:        oo.New(),
		Token:          to.New(),
		Logging:        lo.New(),
		Metrics:        mo.New(),
		LoaderWarnings: make([]string, 0),
	}
}

// loadFile loads application configuration from a YAML-formatted file
func (c *Config) loadFile(flags *Flags) error {
	b, err := os.ReadFile(flags.ConfigPath)
	if err != nil {
		c.setDefaults(yamlx.KeyLookup{})
		return err
	}
	return c.loadYAMLConfig(string(b), flags)
}

// loadYAMLConfig loads application configuration from a YAML-formatted string
func (c *Config) loadYAMLConfig(yml string, flags *Flags) error {
	err := yaml.Unmarshal([]byte(yml), c)
	if err != nil {
		return err
	}
	md, err := yamlx.GetKeyList(yml)
	if err != nil {
		c.setDefaults(yamlx.KeyLookup{})
		return err
	}
	if err = c.setDefaults(md); err == nil && flags != nil {
		c.configFilePath = flags.ConfigPath
	}
	return err
}

// setDefaults fills the sections and values the YAML document left out
func (c *Config) setDefaults(md yamlx.KeyLookup) error {
	d := NewConfig()
	if c.Main == nil {
		c.Main = d.Main
	}
	if c.API == nil {
		c.API = d.API
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = d.API.Timeout
	}
	if c.Store == nil {
		c.Store = d.Store
	}
	if err := c.Store.Initialize(md); err != nil {
		return err
	}
	if c.Cache == nil {
		c.Cache = d.Cache
	}
	if c.Cache.DefaultExpire <= 0 {
		c.Cache.DefaultExpire = d.Cache.DefaultExpire
	}
	if c.Cache.StatsMaxAge <= 0 {
		c.Cache.StatsMaxAge = d.Cache.StatsMaxAge
	}
	if c.Cache.StatsCleanupInterval <= 0 {
		c.Cache.StatsCleanupInterval = d.Cache.StatsCleanupInterval
	}
	if c.Offline == nil {
		c.Offline = d.Offline
	}
	c.Offline.Normalize()
	if c.Token == nil {
		c.Token = d.Token
	}
	c.Token.Normalize()
	if c.Logging == nil {
		c.Logging = d.Logging
	}
	if c.Logging.LogLevel == "" {
		c.Logging.LogLevel = d.Logging.LogLevel
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	if md.IsDefined("store", "redis") && c.Store.ProviderID != providers.RedisID {
		c.LoaderWarnings = append(c.LoaderWarnings,
			"store.redis is configured but the store provider is "+c.Store.Provider)
	}
	c.metadata = md
	return nil
}

// ErrMissingAPIURL is returned when no API URL is configured
var ErrMissingAPIURL = errors.New("no api url configured")

// Validate checks the Config for values that would prevent the client from running
func (c *Config) Validate() error {
	if c.API == nil || c.API.URL == "" {
		return ErrMissingAPIURL
	}
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api url: %s", c.API.URL)
	}
	if c.Metrics != nil && (c.Metrics.ListenPort < 0 || c.Metrics.ListenPort > 65535) {
		return fmt.Errorf("invalid metrics listen port: %d", c.Metrics.ListenPort)
	}
	return nil
}

// ConfigFilePath returns the file path from which this configuration is based
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

func (c *Config) String() string {
	cp := *c
	if c.Store != nil && c.Store.Redis != nil && c.Store.Redis.Password != "" {
		st := *c.Store
		r := *c.Store.Redis
		r.Password = "*****"
		st.Redis = &r
		cp.Store = &st
	}
	b, err := yaml.Marshal(&cp)
	if err != nil {
		return ""
	}
	return string(b)
}
