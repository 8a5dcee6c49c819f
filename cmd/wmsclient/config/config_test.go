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

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/piecework/wmsclient/pkg/store/providers"

	"github.com/stretchr/testify/require"
)

const testConfig = `
main:
  instance_id: 2
api:
  url: https://wms.example.com/api
  timeout: 5s
store:
  provider: bbolt
  bbolt:
    filename: /tmp/wms.db
  redis:
    password: secret
cache:
  default_expire: 30m
offline:
  max_queue_size: 10
  sync_interval: 1m
token:
  refresh_buffer: 2m
logging:
  log_level: debug
`

func TestNewConfig(t *testing.T) {
	c := NewConfig()
	require.Equal(t, DefaultAPITimeout, c.API.Timeout)
	require.Equal(t, DefaultStatsMaxAge, c.Cache.StatsMaxAge)
	require.Equal(t, providers.MemoryID, c.Store.ProviderID)
	require.Equal(t, 100, c.Offline.MaxQueueSize)
	require.Equal(t, 5*time.Minute, c.Token.RefreshBuffer)
}

func TestLoadYAMLConfig(t *testing.T) {
	c := NewConfig()
	err := c.loadYAMLConfig(testConfig, &Flags{ConfigPath: "test.yaml"})
	require.NoError(t, err)
	require.Equal(t, "test.yaml", c.ConfigFilePath())
	require.Equal(t, 2, c.Main.InstanceID)
	require.Equal(t, "https://wms.example.com/api", c.API.URL)
	require.Equal(t, 5*time.Second, c.API.Timeout)
	require.Equal(t, providers.BBoltID, c.Store.ProviderID)
	require.Equal(t, "/tmp/wms.db", c.Store.BBolt.Filename)
	require.NotEmpty(t, c.Store.BBolt.Bucket)
	require.Equal(t, 30*time.Minute, c.Cache.DefaultExpire)
	require.Equal(t, DefaultStatsMaxAge, c.Cache.StatsMaxAge)
	require.Equal(t, 10, c.Offline.MaxQueueSize)
	require.Equal(t, 3, c.Offline.MaxRetries)
	require.Equal(t, time.Minute, c.Offline.SyncInterval)
	require.Equal(t, 2*time.Minute, c.Token.RefreshBuffer)
	require.Equal(t, "/auth/refresh", c.Token.RefreshPath)
	require.Equal(t, "debug", c.Logging.LogLevel)
	require.Len(t, c.LoaderWarnings, 1)
}

func TestLoadYAMLConfig_Invalid(t *testing.T) {
	c := NewConfig()
	require.Error(t, c.loadYAMLConfig("api: [", nil))

	c = NewConfig()
	require.Error(t, c.loadYAMLConfig("store:\n  provider: floppy\n", nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://wms.example.com/api", false},
		{"http://localhost:8080", false},
		{"", true},
		{"ftp://wms.example.com", true},
		{"/api", true},
	}
	for _, test := range tests {
		t.Run(test.url, func(t *testing.T) {
			c := NewConfig()
			c.API.URL = test.url
			if test.wantErr {
				require.Error(t, c.Validate())
			} else {
				require.NoError(t, c.Validate())
			}
		})
	}

	c := NewConfig()
	c.API.URL = "http://localhost"
	c.Metrics.ListenPort = 70000
	require.Error(t, c.Validate())
}

func TestString(t *testing.T) {
	c := NewConfig()
	require.NoError(t, c.loadYAMLConfig(testConfig, nil))
	s := c.String()
	require.Contains(t, s, "wms.example.com")
	require.NotContains(t, s, "secret")
	require.Contains(t, s, "*****")
	require.Equal(t, "secret", c.Store.Redis.Password)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wmsclient.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	c, flags, err := Load("wmsclient-test", []string{"-config", path, "-log-level", "warn", "status"})
	require.NoError(t, err)
	require.Equal(t, "status", flags.Command)
	require.Equal(t, "warn", c.Logging.LogLevel)
	require.Equal(t, path, c.ConfigFilePath())
	require.Same(t, flags, c.Flags)
}

func TestLoad_MissingCustomPath(t *testing.T) {
	_, _, err := Load("wmsclient-test", []string{"-config", filepath.Join(t.TempDir(), "none.yaml")})
	require.Error(t, err)
}

func TestLoad_DefaultPathMissing(t *testing.T) {
	c, _, err := Load("wmsclient-test", []string{"-api-url", "http://localhost:8080"})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", c.API.URL)
	require.Equal(t, providers.MemoryID, c.Store.ProviderID)
}

func TestLoad_NoAPIURL(t *testing.T) {
	_, _, err := Load("wmsclient-test", nil)
	require.ErrorIs(t, err, ErrMissingAPIURL)
}

func TestLoad_Version(t *testing.T) {
	c, flags, err := Load("wmsclient-test", []string{"-version"})
	require.NoError(t, err)
	require.Nil(t, c)
	require.True(t, flags.PrintVersion)
}

func TestLoad_BadFlag(t *testing.T) {
	_, _, err := Load("wmsclient-test", []string{"-no-such-flag"})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "no-such-flag"))
}

func TestLoad_ExampleConfig(t *testing.T) {
	c, _, err := Load("wmsclient-test", []string{"-config", "../conf/example.full.yaml"})
	require.NoError(t, err)
	require.Equal(t, "https://wms.example.com/api", c.API.URL)
	require.Equal(t, providers.MemoryID, c.Store.ProviderID)
	require.Equal(t, 5*time.Minute, c.Offline.SyncInterval)
	require.Equal(t, "/auth/refresh", c.Token.RefreshPath)
	require.Equal(t, 8481, c.Metrics.ListenPort)
	// the example documents every provider section
	require.NotEmpty(t, c.LoaderWarnings)
}
