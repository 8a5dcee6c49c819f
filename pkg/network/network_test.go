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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/piecework/wmsclient/pkg/observability/logging"
)

func TestRequestMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
		read   bool
	}{
		{"", http.MethodGet, true},
		{"get", http.MethodGet, true},
		{"post", http.MethodPost, false},
		{http.MethodPut, http.MethodPut, false},
	}
	for _, test := range tests {
		r := Request{Method: test.method}
		if r.HTTPMethod() != test.want {
			t.Errorf("expected %s got %s", test.want, r.HTTPMethod())
		}
		if r.IsRead() != test.read {
			t.Errorf("expected %t got %t", test.read, r.IsRead())
		}
	}
}

func TestTimeoutFor(t *testing.T) {
	base := 10 * time.Second
	tests := []struct {
		path string
		want time.Duration
	}{
		{"/piecework", base},
		{"/inventory/import", 30 * time.Second},
		{"/upload/photo", 30 * time.Second},
		{"/file/123", time.Minute},
		{"/reports/export", 45 * time.Second},
	}
	for _, test := range tests {
		if got := TimeoutFor(test.path, base); got != test.want {
			t.Errorf("%s: expected %s got %s", test.path, test.want, got)
		}
	}
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantData string
		wantErr  bool
	}{
		{"envelope", `{"code":200,"message":"success","data":{"id":1}}`, `{"id":1}`, false},
		{"raw array", `[{"id":1},{"id":2}]`, `[{"id":1},{"id":2}]`, false},
		{"bare page", `{"content":[],"totalElements":0}`, `{"content":[],"totalElements":0}`, false},
		{"empty", ``, ``, false},
		{"business error", `{"code":400,"message":"bad itemId"}`, ``, true},
		{"invalid", `not json`, ``, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r, err := decodeEnvelope([]byte(test.body))
			if test.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if r.Code != http.StatusOK {
				t.Errorf("expected code 200 got %d", r.Code)
			}
			if string(r.Data) != test.wantData {
				t.Errorf("expected %s got %s", test.wantData, string(r.Data))
			}
		})
	}
}

func TestDecodeEnvelope_BusinessError(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"code":500,"message":"boom"}`))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError got %v", err)
	}
	if se.Code != 500 || se.Message != "boom" {
		t.Errorf("unexpected error %+v", se)
	}
}

func TestHTTPClient(t *testing.T) {
	var gotBody map[string]any
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header
		switch r.URL.Path {
		case "/api/piecework":
			b, _ := io.ReadAll(r.Body)
			json.Unmarshal(b, &gotBody)
			fmt.Fprint(w, `{"code":200,"message":"success","data":{"id":7}}`)
		case "/api/finished-products":
			fmt.Fprint(w, `[1,2,3]`)
		case "/api/auth/refresh":
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"code":401,"message":"refresh token expired"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/api/", time.Second, srv.Client(), logging.NoopLogger())
	ctx := context.Background()

	r, err := c.Do(ctx, Request{
		URL:    "/piecework",
		Method: "post",
		Data:   map[string]any{"quantity": 3},
		Header: map[string]string{"X-Trace": "abc"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if string(r.Data) != `{"id":7}` {
		t.Errorf("unexpected data %s", string(r.Data))
	}
	if gotBody["quantity"] != float64(3) {
		t.Errorf("unexpected body %v", gotBody)
	}
	if gotHeader.Get("X-Trace") != "abc" || gotHeader.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected headers %v", gotHeader)
	}

	r, err = c.Do(ctx, Request{URL: "/finished-products"})
	if err != nil {
		t.Fatal(err)
	}
	var items []int
	if err := r.Decode(&items); err != nil || len(items) != 3 {
		t.Errorf("unexpected items %v %v", items, err)
	}

	_, err = c.Do(ctx, Request{URL: "/auth/refresh", Method: http.MethodPost})
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized got %v", err)
	}
	var se *StatusError
	if errors.As(err, &se) && se.Message != "refresh token expired" {
		t.Errorf("unexpected message %s", se.Message)
	}

	_, err = c.Do(ctx, Request{URL: "/missing"})
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500 got %v", err)
	}
	if IsUnauthorized(err) {
		t.Error("expected 500 to not be unauthorized")
	}
}

func TestHTTPClient_GetDataAsQuery(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second, srv.Client(), logging.NoopLogger())
	_, err := c.Do(context.Background(), Request{
		URL: "/piecework?page=0",
		Data: map[string]any{
			"workerId": 7,
			"name":     "lin",
			"active":   true,
			"tags":     []string{"a", "b"},
			"skip":     nil,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"page":     "0",
		"workerId": "7",
		"name":     "lin",
		"active":   "true",
		"tags":     `["a","b"]`,
	}
	for k, v := range want {
		if gotQuery.Get(k) != v {
			t.Errorf("expected %s=%s got %q", k, v, gotQuery.Get(k))
		}
	}
	if _, ok := gotQuery["skip"]; ok {
		t.Error("expected nil field to be omitted")
	}

	_, err = c.Do(context.Background(), Request{URL: "/piecework", Data: []int{1}})
	if err == nil {
		t.Error("expected error for non-object query data")
	}
}

func TestHTTPClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()
	c := NewHTTPClient(srv.URL, 0, nil, nil)
	_, err := c.Do(context.Background(), Request{URL: "/slow", Timeout: 50 * time.Millisecond})
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestResponseDecode(t *testing.T) {
	var v any
	if err := (&Response{}).Decode(&v); !errors.Is(err, ErrEmptyData) {
		t.Errorf("expected %v got %v", ErrEmptyData, err)
	}
}

type staticTokens struct {
	token string
	ok    bool
}

func (s staticTokens) GetValidToken(context.Context) (string, bool) {
	return s.token, s.ok
}

func TestWithBearerToken(t *testing.T) {
	var got map[string]string
	next := ClientFunc(func(_ context.Context, req Request) (*Response, error) {
		got = req.Header
		return &Response{Code: http.StatusOK}, nil
	})
	tests := []struct {
		name   string
		tokens staticTokens
		want   string
	}{
		{"raw", staticTokens{"abc", true}, "Bearer abc"},
		{"prefixed", staticTokens{"Bearer abc", true}, "Bearer abc"},
		{"none", staticTokens{"", false}, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			hdr := map[string]string{"X-Trace": "1"}
			c := WithBearerToken(next, test.tokens)
			if _, err := c.Do(context.Background(), Request{URL: "/x", Header: hdr}); err != nil {
				t.Fatal(err)
			}
			if got["Authorization"] != test.want {
				t.Errorf("expected %q got %q", test.want, got["Authorization"])
			}
			if got["X-Trace"] != "1" {
				t.Error("expected existing headers to be kept")
			}
			if _, ok := hdr["Authorization"]; ok {
				t.Error("expected the caller's header map to be left unchanged")
			}
		})
	}
}
