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

// Package main is the main package for the wmsclient application
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/piecework/wmsclient/cmd/wmsclient/config"
	"github.com/piecework/wmsclient/pkg/appinfo"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
)

var (
	applicationGitCommitID string
	applicationBuildTime   string
)

const (
	applicationName    = "wmsclient"
	applicationVersion = "1.0.0"
)

func main() {
	appinfo.Set(applicationName, applicationVersion, applicationBuildTime, applicationGitCommitID)
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

// run loads the configuration, builds the client and executes the requested
// command, returning the process exit code
func run(ctx context.Context, args []string, w io.Writer) int {
	conf, flags, err := config.Load(applicationName, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(w)
			return 0
		}
		fmt.Fprintln(w, "could not load configuration:", err)
		printUsage(w)
		return 1
	}
	if flags.PrintVersion {
		printVersion(w)
		return 0
	}

	logger := logging.New(conf.Main.InstanceID, conf.Logging)
	defer logger.Close()
	for _, warning := range conf.LoaderWarnings {
		logger.Warn(warning, nil)
	}
	if flags.ValidateConfig {
		fmt.Fprintln(w, "configuration is valid")
		return 0
	}

	metrics.BuildInfo.WithLabelValues(appinfo.GoVersion, appinfo.Version).Set(1)
	logger.Info("application loaded from configuration", logging.Pairs{
		"name":       appinfo.Name,
		"version":    appinfo.Version,
		"goVersion":  appinfo.GoVersion,
		"commitID":   appinfo.GitCommitID,
		"buildTime":  appinfo.BuildTime,
		"configFile": conf.ConfigFilePath(),
		"command":    flags.Command,
	})

	c, err := newClient(conf, logger)
	if err != nil {
		fmt.Fprintln(w, "could not start client:", err)
		return 1
	}
	defer c.Close()

	if err := c.execute(ctx, conf, flags, w); err != nil {
		fmt.Fprintln(w, err)
		if errors.Is(err, errUnknownCommand) {
			printUsage(w)
		}
		return 1
	}
	return 0
}
