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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/piecework/wmsclient/cmd/wmsclient/config"
	"github.com/piecework/wmsclient/pkg/loader"
	"github.com/piecework/wmsclient/pkg/network"
	"github.com/piecework/wmsclient/pkg/offline"
	"github.com/piecework/wmsclient/pkg/token"
)

var (
	errUnknownCommand  = errors.New("unknown command")
	errMissingArgument = errors.New("missing argument")
)

// status is the output of the status command
type status struct {
	Online bool                `json:"online"`
	Queue  offline.QueueStatus `json:"queue"`
	Token  token.Info          `json:"token"`
}

func (c *client) status(ctx context.Context) status {
	return status{
		Online: c.offline.CheckNetworkStatus(ctx),
		Queue:  c.offline.QueueStatus(),
		Token:  c.tokenInfo(),
	}
}

// tokenInfo describes the stored tokens without their raw claims
func (c *client) tokenInfo() token.Info {
	info := c.tokens.TokenInfo()
	info.Claims = nil
	return info
}

// execute runs the command named in flags
func (c *client) execute(ctx context.Context, conf *config.Config, flags *config.Flags,
	w io.Writer) error {
	args := flags.Args
	switch flags.Command {
	case "", "daemon":
		return c.runDaemon(ctx, conf)
	case "status":
		return writeJSON(w, c.status(ctx))
	case "sync":
		return writeJSON(w, c.offline.SyncOfflineData(ctx))
	case "get":
		if len(args) < 1 {
			return fmt.Errorf("%w: get <path>", errMissingArgument)
		}
		data, err := c.loader.LoadSingle(ctx, args[0], loader.SingleOptions{})
		if err != nil {
			return err
		}
		return writeJSON(w, data)
	case "request":
		return c.request(ctx, args, w)
	case "login":
		if len(args) < 1 {
			return fmt.Errorf("%w: login <token> [refresh]", errMissingArgument)
		}
		var refresh string
		if len(args) > 1 {
			refresh = args[1]
		}
		c.tokens.SaveTokens(args[0], refresh)
		return writeJSON(w, c.tokenInfo())
	case "logout":
		c.tokens.ClearTokens()
		fmt.Fprintln(w, "tokens cleared")
		return nil
	case "cache-report":
		return writeJSON(w, c.smart.CacheReport())
	case "clear-cache":
		var pattern string
		if len(args) > 0 {
			pattern = args[0]
		}
		n, err := c.loader.ClearCache(pattern)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "removed %d cached entries\n", n)
		return nil
	case "clear-offline":
		c.offline.ClearOfflineQueue()
		c.offline.ClearOfflineData()
		fmt.Fprintln(w, "offline queue and data cleared")
		return nil
	}
	return fmt.Errorf("%w: %s", errUnknownCommand, flags.Command)
}

// request sends one request with offline fallback: a mutation made while
// offline is queued for the next sync
func (c *client) request(ctx context.Context, args []string, w io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: request <method> <path> [json]", errMissingArgument)
	}
	req := network.Request{Method: strings.ToUpper(args[0]), URL: args[1]}
	if len(args) > 2 {
		if !json.Valid([]byte(args[2])) {
			return fmt.Errorf("invalid request body: %s", args[2])
		}
		req.Data = json.RawMessage(args[2])
	}
	resp, err := c.offline.CreateOfflineRequest(ctx, req, true)
	if err != nil {
		return err
	}
	return writeJSON(w, resp)
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

