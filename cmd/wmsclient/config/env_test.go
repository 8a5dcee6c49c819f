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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadEnvVars(t *testing.T) {
	t.Setenv(evAPIURL, "http://wms.example.com")
	t.Setenv(evMetricsPort, "4001")
	t.Setenv(evLogLevel, "error")
	t.Setenv(evStoreProvider, "redis")

	c := NewConfig()
	c.loadEnvVars()

	require.Equal(t, "http://wms.example.com", c.API.URL)
	require.Equal(t, 4001, c.Metrics.ListenPort)
	require.Equal(t, "error", c.Logging.LogLevel)
	require.Equal(t, "redis", c.Store.Provider)
}

func TestLoadEnvVars_BadPort(t *testing.T) {
	t.Setenv(evMetricsPort, "port")
	c := NewConfig()
	c.loadEnvVars()
	require.Equal(t, 0, c.Metrics.ListenPort)
}
