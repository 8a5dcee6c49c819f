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

package network

import (
	"context"
	"strings"
)

// TokenSource supplies a currently valid access token
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, bool)
}

const bearerPrefix = "Bearer "

type bearerClient struct {
	next   Client
	tokens TokenSource
}

// WithBearerToken returns a Client that sets the Authorization header of
// every request to the token from ts before passing it to next. Requests
// are sent without the header when no valid token is available.
func WithBearerToken(next Client, ts TokenSource) Client {
	return &bearerClient{next: next, tokens: ts}
}

func (c *bearerClient) Do(ctx context.Context, req Request) (*Response, error) {
	if token, ok := c.tokens.GetValidToken(ctx); ok && token != "" {
		h := make(map[string]string, len(req.Header)+1)
		for k, v := range req.Header {
			h[k] = v
		}
		if !strings.HasPrefix(token, bearerPrefix) {
			token = bearerPrefix + token
		}
		h["Authorization"] = token
		req.Header = h
	}
	return c.next.Do(ctx, req)
}
