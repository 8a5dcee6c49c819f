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

// Package loader loads API resources through the smart cache with offline
// fallback. Paginated, single and list resources are normalized, cached
// under deterministic keys and can be loaded in batches.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	"github.com/piecework/wmsclient/pkg/cache/smart"
	"github.com/piecework/wmsclient/pkg/network"
	"github.com/piecework/wmsclient/pkg/observability/logging"
)

// DefaultPageSize is the page size used when PageOptions.Size is unset
const DefaultPageSize = 20

// Requester performs a request with offline fallback
type Requester interface {
	CreateOfflineRequest(ctx context.Context, req network.Request,
		enableOffline bool) (*network.Response, error)
}

// Transform rewrites loaded data before it is normalized and cached
type Transform func(json.RawMessage) (json.RawMessage, error)

// CacheOptions controls caching and offline fallback of a load
type CacheOptions struct {
	// NoCache bypasses the cache for both the read and the write
	NoCache bool
	// Strategy overrides the loader's default strategy
	Strategy smart.Strategy
	// CacheTime, when positive, replaces the strategy's expiry
	CacheTime time.Duration
	// DisableOffline turns off the snapshot fallback
	DisableOffline bool
}

func (o CacheOptions) strategy(def smart.Strategy) smart.Strategy {
	if o.Strategy != "" {
		return o.Strategy
	}
	return def
}

// PageOptions configures LoadPaginated
type PageOptions struct {
	CacheOptions
	Page   int
	Size   int
	Params map[string]string
	// Transform is applied to the response data before normalization
	Transform Transform
}

// SingleOptions configures LoadSingle
type SingleOptions struct {
	CacheOptions
	Transform Transform
	// Default, when set, is returned instead of a load error
	Default json.RawMessage
}

// ListOptions configures LoadList
type ListOptions struct {
	CacheOptions
	Params map[string]string
	// MaxItems, when positive, truncates the list
	MaxItems int
	// Transform is applied to each item
	Transform Transform
}

// Page is a normalized page of results
type Page struct {
	Content       []json.RawMessage `json:"content"`
	TotalElements int64             `json:"totalElements"`
	TotalPages    int               `json:"totalPages"`
	CurrentPage   int               `json:"currentPage"`
	PageSize      int               `json:"pageSize"`
	HasNext       bool              `json:"hasNext"`
	HasPrevious   bool              `json:"hasPrevious"`
}

// pageBody accepts the page shapes returned by the API
type pageBody struct {
	Content       json.RawMessage `json:"content"`
	TotalElements int64           `json:"totalElements"`
	Total         int64           `json:"total"`
	TotalPages    int             `json:"totalPages"`
	HasNext       bool            `json:"hasNext"`
}

// listBody accepts the list wrappers returned by the API
type listBody struct {
	Content json.RawMessage `json:"content"`
	Items   json.RawMessage `json:"items"`
	List    json.RawMessage `json:"list"`
}

// Loader is the data loader
type Loader struct {
	cache  *smart.Cache
	api    Requester
	logger logging.Logger
}

// New returns a Loader that caches in c and fetches through api
func New(c *smart.Cache, api Requester, logger logging.Logger) *Loader {
	if logger == nil {
		logger = logging.NoopLogger()
	}
	return &Loader{cache: c, api: api, logger: logger}
}

func paramsJSON(params map[string]string) string {
	if len(params) == 0 {
		return "{}"
	}
	b, _ := json.Marshal(params)
	return string(b)
}

// PaginatedKey is the cache key of a page load
func PaginatedKey(u string, page, size int, params map[string]string) string {
	return fmt.Sprintf("paginated_%s_%d_%d_%s", u, page, size, paramsJSON(params))
}

// SingleKey is the cache key of a single resource load
func SingleKey(u string) string {
	return "single_" + u
}

// ListKey is the cache key of a list load
func ListKey(u string, params map[string]string) string {
	return "list_" + u + "_" + paramsJSON(params)
}

func withQuery(u string, q url.Values) string {
	if len(q) == 0 {
		return u
	}
	return u + "?" + q.Encode()
}

func (l *Loader) cached(key string, o CacheOptions, v any) bool {
	if o.NoCache {
		return false
	}
	data, ok := l.cache.GetWithStats(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		l.logger.Warn("discarding undecodable cached data", logging.Pairs{"key": key, "detail": err})
		return false
	}
	return true
}

func (l *Loader) store(key string, o CacheOptions, def smart.Strategy, v any) {
	if o.NoCache {
		return
	}
	l.cache.SetWithStrategy(key, v, o.strategy(def), smart.Options{CustomExpire: o.CacheTime})
}

func (l *Loader) fetch(ctx context.Context, u string, o CacheOptions) (json.RawMessage, error) {
	resp, err := l.api.CreateOfflineRequest(ctx, network.Request{URL: u}, !o.DisableOffline)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func isNull(data json.RawMessage) bool {
	return len(data) == 0 || string(data) == "null"
}

func asArray(data json.RawMessage) ([]json.RawMessage, bool) {
	if isNull(data) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

func normalizePage(data json.RawMessage, page, size int) (*Page, error) {
	p := &Page{
		Content:     []json.RawMessage{},
		CurrentPage: page,
		PageSize:    size,
		HasPrevious: page > 0,
	}
	if items, ok := asArray(data); ok {
		p.Content = items
		return p, nil
	}
	var body pageBody
	if !isNull(data) {
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
	}
	if items, ok := asArray(body.Content); ok {
		p.Content = items
	}
	p.TotalElements = body.TotalElements
	if p.TotalElements == 0 {
		p.TotalElements = body.Total
	}
	p.TotalPages = body.TotalPages
	if p.TotalPages == 0 {
		p.TotalPages = int(math.Ceil(float64(body.Total) / float64(size)))
	}
	p.HasNext = body.HasNext || int64((page+1)*size) < body.Total
	return p, nil
}

// LoadPaginated loads one page of u. The page and size are sent as query
// parameters alongside o.Params, which take precedence.
func (l *Loader) LoadPaginated(ctx context.Context, u string, o PageOptions) (*Page, error) {
	if o.Size <= 0 {
		o.Size = DefaultPageSize
	}
	if o.Page < 0 {
		o.Page = 0
	}
	key := PaginatedKey(u, o.Page, o.Size, o.Params)
	var p Page
	if l.cached(key, o.CacheOptions, &p) {
		l.logger.Debug("data loaded from cache", logging.Pairs{"url": u, "page": o.Page, "size": o.Size})
		return &p, nil
	}

	q := url.Values{}
	q.Set("page", strconv.Itoa(o.Page))
	q.Set("size", strconv.Itoa(o.Size))
	for k, v := range o.Params {
		q.Set(k, v)
	}
	data, err := l.fetch(ctx, withQuery(u, q), o.CacheOptions)
	if err == nil && o.Transform != nil {
		data, err = o.Transform(data)
	}
	var result *Page
	if err == nil {
		result, err = normalizePage(data, o.Page, o.Size)
	}
	if err != nil {
		l.logger.Error("failed to load paginated data",
			logging.Pairs{"url": u, "page": o.Page, "size": o.Size, "detail": err})
		return nil, err
	}
	l.store(key, o.CacheOptions, smart.Dynamic, result)
	l.logger.Debug("paginated data loaded", logging.Pairs{
		"url":           u,
		"page":          o.Page,
		"size":          o.Size,
		"totalElements": result.TotalElements,
		"contentLength": len(result.Content),
	})
	return result, nil
}

// LoadSingle loads the resource at u. On failure o.Default is returned
// when set.
func (l *Loader) LoadSingle(ctx context.Context, u string, o SingleOptions) (json.RawMessage, error) {
	key := SingleKey(u)
	var cached json.RawMessage
	if l.cached(key, o.CacheOptions, &cached) {
		l.logger.Debug("single data loaded from cache", logging.Pairs{"url": u})
		return cached, nil
	}
	data, err := l.fetch(ctx, u, o.CacheOptions)
	if err == nil && o.Transform != nil {
		data, err = o.Transform(data)
	}
	if err != nil {
		l.logger.Error("failed to load single data", logging.Pairs{"url": u, "detail": err})
		if o.Default != nil {
			l.logger.Info("returning default value due to load failure", logging.Pairs{"url": u})
			return o.Default, nil
		}
		return nil, err
	}
	if isNull(data) {
		data = json.RawMessage("null")
	}
	l.store(key, o.CacheOptions, smart.Adaptive, data)
	l.logger.Debug("single data loaded", logging.Pairs{"url": u, "dataSize": len(data)})
	return data, nil
}

func listItems(data json.RawMessage) ([]json.RawMessage, error) {
	if items, ok := asArray(data); ok {
		return items, nil
	}
	if isNull(data) {
		return []json.RawMessage{}, nil
	}
	var body listBody
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	for _, field := range []json.RawMessage{body.Content, body.Items, body.List} {
		if items, ok := asArray(field); ok {
			return items, nil
		}
	}
	return []json.RawMessage{}, nil
}

// LoadList loads the list at u. The API may answer with an array or with
// an object wrapping it in content, items or list.
func (l *Loader) LoadList(ctx context.Context, u string, o ListOptions) ([]json.RawMessage, error) {
	key := ListKey(u, o.Params)
	var cached []json.RawMessage
	if l.cached(key, o.CacheOptions, &cached) {
		l.logger.Debug("list data loaded from cache", logging.Pairs{"url": u, "length": len(cached)})
		return cached, nil
	}

	q := url.Values{}
	for k, v := range o.Params {
		q.Set(k, v)
	}
	data, err := l.fetch(ctx, withQuery(u, q), o.CacheOptions)
	var items []json.RawMessage
	if err == nil {
		items, err = listItems(data)
	}
	if err == nil && o.MaxItems > 0 && len(items) > o.MaxItems {
		items = items[:o.MaxItems]
	}
	if err == nil && o.Transform != nil {
		for i := range items {
			if items[i], err = o.Transform(items[i]); err != nil {
				break
			}
		}
	}
	if err != nil {
		l.logger.Error("failed to load list data", logging.Pairs{"url": u, "detail": err})
		return nil, err
	}
	l.store(key, o.CacheOptions, smart.Dynamic, items)
	l.logger.Debug("list data loaded", logging.Pairs{"url": u, "length": len(items)})
	return items, nil
}

// ClearCache removes the cached loads whose key matches the glob pattern.
// An empty pattern removes every cached load.
func (l *Loader) ClearCache(pattern string) (int, error) {
	l.logger.Info("cache clearing requested", logging.Pairs{"pattern": pattern})
	n, err := l.cache.RemoveMatching(pattern)
	if err != nil {
		l.logger.Error("failed to clear cache", logging.Pairs{"pattern": pattern, "detail": err})
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	return n, nil
}
