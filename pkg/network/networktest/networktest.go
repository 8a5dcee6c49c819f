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

// Package networktest provides a scripted network.Client for tests
package networktest

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/piecework/wmsclient/pkg/network"
)

// Handler answers one request
type Handler func(ctx context.Context, req network.Request) (*network.Response, error)

// Fake is a network.Client that answers from registered routes and records
// every call it receives
type Fake struct {
	mtx    sync.Mutex
	routes map[string]Handler
	calls  []network.Request
}

var _ network.Client = &Fake{}

// New returns an empty Fake; unrouted requests fail with a 404 StatusError
func New() *Fake {
	return &Fake{routes: make(map[string]Handler)}
}

func routeKey(method, url string) string {
	return strings.ToUpper(method) + " " + url
}

// Handle routes method and url to h. A url without a query string also
// matches requests for the same path with any query.
func (f *Fake) Handle(method, url string, h Handler) {
	f.mtx.Lock()
	f.routes[routeKey(method, url)] = h
	f.mtx.Unlock()
}

// Do records req and dispatches it to its route
func (f *Fake) Do(ctx context.Context, req network.Request) (*network.Response, error) {
	method := req.HTTPMethod()
	f.mtx.Lock()
	f.calls = append(f.calls, req)
	h, ok := f.routes[routeKey(method, req.URL)]
	if !ok {
		path, _, _ := strings.Cut(req.URL, "?")
		h, ok = f.routes[routeKey(method, path)]
	}
	f.mtx.Unlock()
	if !ok {
		return nil, &network.StatusError{StatusCode: http.StatusNotFound}
	}
	return h(ctx, req)
}

// Calls returns a copy of the recorded requests
func (f *Fake) Calls() []network.Request {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	out := make([]network.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many recorded requests match method and the path
// portion of url
func (f *Fake) CallCount(method, url string) int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	var n int
	for _, c := range f.calls {
		path, _, _ := strings.Cut(c.URL, "?")
		if c.HTTPMethod() == strings.ToUpper(method) && (c.URL == url || path == url) {
			n++
		}
	}
	return n
}

// Reset clears the recorded calls
func (f *Fake) Reset() {
	f.mtx.Lock()
	f.calls = nil
	f.mtx.Unlock()
}

// OK returns a Handler that answers {code: 200, data: data}
func OK(data any) Handler {
	b, err := json.Marshal(data)
	if err != nil {
		panic(err)
	}
	return func(context.Context, network.Request) (*network.Response, error) {
		return &network.Response{Code: http.StatusOK, Message: "success", Data: b}, nil
	}
}

// Fail returns a Handler that fails with err
func Fail(err error) Handler {
	return func(context.Context, network.Request) (*network.Response, error) {
		return nil, err
	}
}

// Status returns a Handler that fails with a StatusError for code
func Status(code int) Handler {
	return Fail(&network.StatusError{StatusCode: code})
}
