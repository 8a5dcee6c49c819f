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
	"flag"
	"io"
)

const (
	// Command-line flags
	cfConfig        = "config"
	cfVersion       = "version"
	cfValidate      = "validate-config"
	cfLogLevel      = "log-level"
	cfInstanceID    = "instance-id"
	cfAPIURL        = "api-url"
	cfStoreProvider = "store-provider"
	cfMetricsPort   = "metrics-port"
)

// Flags holds the values for whitelisted flags
type Flags struct {
	PrintVersion      bool
	ValidateConfig    bool
	customPath        bool
	MetricsListenPort int
	InstanceID        int
	ConfigPath        string
	APIURL            string
	StoreProvider     string
	LogLevel          string
	// Command is the first positional argument; Args holds the rest
	Command string
	Args    []string
}

func parseFlags(applicationName string, arguments []string) (*Flags, error) {

	flags := &Flags{}
	flagSet := flag.NewFlagSet(applicationName, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	flagSet.BoolVar(&flags.PrintVersion, cfVersion, false,
		"Prints the wmsclient version")
	flagSet.BoolVar(&flags.ValidateConfig, cfValidate, false,
		"Validates a wmsclient config and exits")
	flagSet.StringVar(&flags.ConfigPath, cfConfig, "",
		"Path to wmsclient Config File")
	flagSet.StringVar(&flags.LogLevel, cfLogLevel, "",
		"Level of Logging to use (debug, info, warn, error)")
	flagSet.IntVar(&flags.InstanceID, cfInstanceID, 0,
		"Instance ID is for running multiple wmsclient processes"+
			" from the same config while logging to their own files")
	flagSet.StringVar(&flags.APIURL, cfAPIURL, "",
		"Base URL of the REST API, e.g., https://wms.example.com/api")
	flagSet.StringVar(&flags.StoreProvider, cfStoreProvider, "",
		"Name of the local store provider (memory, bbolt, badger, redis, filesystem)")
	flagSet.IntVar(&flags.MetricsListenPort, cfMetricsPort, 0,
		"Port that the /metrics endpoint will listen on")

	err := flagSet.Parse(arguments)
	if err != nil {
		return nil, err
	}
	if flags.ConfigPath != "" {
		flags.customPath = true
	} else {
		flags.ConfigPath = DefaultConfigPath
	}
	if args := flagSet.Args(); len(args) > 0 {
		flags.Command = args[0]
		flags.Args = args[1:]
	}
	return flags, nil
}

// loadFlags loads configuration from command line flags.
func (c *Config) loadFlags(flags *Flags) {
	if len(flags.APIURL) > 0 {
		c.API.URL = flags.APIURL
	}
	if len(flags.StoreProvider) > 0 {
		c.Store.Provider = flags.StoreProvider
	}
	if flags.MetricsListenPort > 0 {
		c.Metrics.ListenPort = flags.MetricsListenPort
	}
	if flags.LogLevel != "" {
		c.Logging.LogLevel = flags.LogLevel
	}
	if flags.InstanceID > 0 {
		c.Main.InstanceID = flags.InstanceID
	}
}
