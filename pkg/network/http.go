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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
)

// DefaultTimeout is the base request timeout
const DefaultTimeout = 10 * time.Second

// maxBodyBytes bounds the response body read from the API
const maxBodyBytes = 32 << 20

// HTTPClient is a Client that calls the REST API over HTTP
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  logging.Logger
}

// NewHTTPClient returns an HTTPClient for the API rooted at baseURL. A
// timeout <= 0 uses DefaultTimeout; a nil hc uses a new http.Client.
func NewHTTPClient(baseURL string, timeout time.Duration, hc *http.Client,
	logger logging.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if hc == nil {
		hc = &http.Client{}
	}
	if logger == nil {
		logger = logging.NoopLogger()
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		timeout: timeout,
		client:  hc,
		logger:  logger,
	}
}

// TimeoutFor scales base by the kind of operation the path implies:
// uploads and imports get 3x, downloads and files 6x, exports 4.5x
func TimeoutFor(path string, base time.Duration) time.Duration {
	switch {
	case strings.Contains(path, "/upload"), strings.Contains(path, "/import"):
		return base * 3
	case strings.Contains(path, "/download"), strings.Contains(path, "/file"):
		return base * 6
	case strings.Contains(path, "/export"):
		return base * 9 / 2
	}
	return base
}

// Do sends req and decodes the API envelope
func (c *HTTPClient) Do(ctx context.Context, req Request) (*Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = TimeoutFor(req.URL, c.timeout)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.HTTPMethod()
	var body io.Reader
	if req.Data != nil && method != http.MethodGet {
		b, err := json.Marshal(req.Data)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}
	target := c.baseURL + req.URL
	if req.Data != nil && method == http.MethodGet {
		q, err := queryFor(req.Data)
		if err != nil {
			return nil, err
		}
		if len(q) > 0 {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + q.Encode()
		}
	}
	hr, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	hr.Header.Set("Content-Type", "application/json")
	for k, v := range req.Header {
		hr.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(hr)
	if err != nil {
		metrics.NetworkRequestDuration.WithLabelValues(method, "error").
			Observe(time.Since(start).Seconds())
		c.logger.Error("api request network error",
			logging.Pairs{"url": req.URL, "method": method, "detail": err})
		return nil, err
	}
	defer resp.Body.Close()
	metrics.NetworkRequestDuration.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).
		Observe(time.Since(start).Seconds())

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	c.logger.Debug("api response received",
		logging.Pairs{"url": req.URL, "method": method, "statusCode": resp.StatusCode})

	if resp.StatusCode != http.StatusOK {
		se := &StatusError{StatusCode: resp.StatusCode}
		var env Response
		if json.Unmarshal(b, &env) == nil {
			se.Code, se.Message = env.Code, env.Message
		}
		c.logger.Error("api request failed with status",
			logging.Pairs{"url": req.URL, "statusCode": resp.StatusCode})
		return nil, se
	}
	return decodeEnvelope(b)
}

// queryFor encodes the fields of a JSON object as query parameters. Nested
// objects and arrays are sent as their JSON text.
func queryFor(data any) (url.Values, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode request query: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("encode request query: data is not an object: %w", err)
	}
	q := make(url.Values, len(fields))
	for k, v := range fields {
		switch x := v.(type) {
		case nil:
			continue
		case string:
			q.Set(k, x)
		case json.Number:
			q.Set(k, x.String())
		case bool:
			q.Set(k, strconv.FormatBool(x))
		default:
			nested, _ := json.Marshal(x)
			q.Set(k, string(nested))
		}
	}
	return q, nil
}

// decodeEnvelope accepts the API's {code, message, data} envelope, a raw
// array, or a bare object such as a page of results
func decodeEnvelope(b []byte) (*Response, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return &Response{Code: http.StatusOK}, nil
	}
	if b[0] != '{' {
		if !json.Valid(b) {
			return nil, fmt.Errorf("decode response: invalid json")
		}
		return &Response{Code: http.StatusOK, Data: json.RawMessage(b)}, nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if _, ok := probe["code"]; !ok {
		return &Response{Code: http.StatusOK, Data: json.RawMessage(b)}, nil
	}
	var env Response
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if env.Code != http.StatusOK {
		return nil, &StatusError{StatusCode: http.StatusOK, Code: env.Code, Message: env.Message}
	}
	return &env, nil
}
