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
	"fmt"
	"io"

	"github.com/piecework/wmsclient/pkg/appinfo"
)

const usageText = `
wmsclient Usage:

 You must provide -api-url, or a -config file that sets api.url.

 Print Version Info:
  wmsclient -version

 Validating a configuration file:
  wmsclient -validate-config -config /path/to/file.yaml

 Running the background client:
  wmsclient -config /path/to/file.yaml [-log-level DEBUG|INFO|WARN|ERROR] [-metrics-port 8481] [daemon]

 Running a one-shot command:
  wmsclient -config /path/to/file.yaml <command> [arguments]

------

 Commands:
   daemon                   keeps tokens fresh and syncs queued operations (default)
   status                   prints the connection, queue and token status
   sync                     replays queued offline operations now
   get <path>               loads a resource through the cache
   request <method> <path> [json]
                            sends a request, queueing mutations while offline
   login <token> [refresh]  stores an access token and optional refresh token
   logout                   removes the stored tokens
   cache-report             prints the cache access statistics
   clear-cache [pattern]    removes cached loads matching the glob pattern
   clear-offline            discards queued operations and offline snapshots

------

Default log level is INFO. Set in a config file, or override with -log-level.

The /metrics endpoint is disabled by default. Enable it with -metrics-port.
`

func printVersion(w io.Writer) {
	fmt.Fprintln(w, appinfo.String())
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w)
	printVersion(w)
	fmt.Fprint(w, usageText)
}
