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

// Package network defines the boundary between the client and the REST API:
// the request and response envelope, the Client interface and its errors
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Request describes one call to the REST API. URL is relative to the
// client's base URL; an empty Method means GET. Data is the JSON body, or
// for a GET the query parameters, which must then be a JSON object.
type Request struct {
	URL     string            `json:"url"`
	Method  string            `json:"method,omitempty"`
	Data    any               `json:"data,omitempty"`
	Header  map[string]string `json:"header,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty"`
}

// HTTPMethod returns the upper-cased method, defaulting to GET
func (r Request) HTTPMethod() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// IsRead reports whether the request is a GET
func (r Request) IsRead() bool {
	return r.HTTPMethod() == http.MethodGet
}

// Response is the {code, message, data} envelope returned by the API.
// Offline is set on responses synthesized while the API was unreachable.
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Offline bool            `json:"offline,omitempty"`
}

// Decode unmarshals the response data into v
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return ErrEmptyData
	}
	return json.Unmarshal(r.Data, v)
}

// Client performs requests against the REST API
type Client interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Do calls f(ctx, req)
func (f ClientFunc) Do(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// ErrEmptyData indicates a response carried no data
var ErrEmptyData = errors.New("response has no data")

// StatusError is returned when the API answers with a non-success HTTP
// status, or with an envelope whose code is not a success
type StatusError struct {
	// StatusCode is the HTTP status of the response
	StatusCode int
	// Code is the envelope code, when the body carried one
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != 0 && e.Code != e.StatusCode {
		return fmt.Sprintf("api error: status %d code %d: %s", e.StatusCode, e.Code, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is, or wraps, a 401 StatusError
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusUnauthorized
}
