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

package loader

import (
	"context"

	"github.com/piecework/wmsclient/pkg/observability/logging"

	"golang.org/x/sync/errgroup"
)

// Kind selects the loader a Request is executed with
type Kind string

const (
	KindSingle    Kind = "single"
	KindPaginated Kind = "paginated"
	KindList      Kind = "list"
)

// Request is one load of a batch. Only the options matching Kind are used;
// an empty or unknown Kind loads a single resource.
type Request struct {
	Kind      Kind
	URL       string
	Single    SingleOptions
	Paginated PageOptions
	List      ListOptions
}

// BatchOptions configures LoadBatch
type BatchOptions struct {
	// Sequential runs the requests one at a time in order
	Sequential bool
	// FailFast returns the first error instead of a nil result for each
	// failed request
	FailFast bool
	// Limit, when positive, caps the number of concurrent requests
	Limit int
}

// Execute runs r with the loader selected by its Kind. The result is a
// json.RawMessage, a *Page or a []json.RawMessage.
func (l *Loader) Execute(ctx context.Context, r Request) (any, error) {
	switch r.Kind {
	case KindPaginated:
		return l.LoadPaginated(ctx, r.URL, r.Paginated)
	case KindList:
		return l.LoadList(ctx, r.URL, r.List)
	default:
		return l.LoadSingle(ctx, r.URL, r.Single)
	}
}

func (r *Request) forceCache() {
	r.Single.NoCache = false
	r.Paginated.NoCache = false
	r.List.NoCache = false
}

// LoadBatch executes every request and returns the results in request
// order. Unless o.FailFast is set, a failed request yields a nil result and
// the batch continues.
func (l *Loader) LoadBatch(ctx context.Context, reqs []Request, o BatchOptions) ([]any, error) {
	l.logger.Info("starting batch data loading",
		logging.Pairs{"requestCount": len(reqs), "concurrent": !o.Sequential})
	results := make([]any, len(reqs))
	var err error
	if o.Sequential {
		err = l.sequential(ctx, reqs, o, results)
	} else {
		err = l.concurrent(ctx, reqs, o, results)
	}
	if err != nil {
		l.logger.Error("batch data loading failed", logging.Pairs{"detail": err})
		return nil, err
	}
	var ok int
	for _, r := range results {
		if r != nil {
			ok++
		}
	}
	l.logger.Info("batch data loading completed",
		logging.Pairs{"requestCount": len(reqs), "successCount": ok})
	return results, nil
}

func (l *Loader) sequential(ctx context.Context, reqs []Request, o BatchOptions, results []any) error {
	for i, r := range reqs {
		v, err := l.Execute(ctx, r)
		if err != nil {
			l.logger.Error("sequential request failed", logging.Pairs{"index": i, "url": r.URL, "detail": err})
			if o.FailFast {
				return err
			}
			continue
		}
		results[i] = v
	}
	return nil
}

func (l *Loader) concurrent(ctx context.Context, reqs []Request, o BatchOptions, results []any) error {
	g, gctx := errgroup.WithContext(ctx)
	if o.Limit > 0 {
		g.SetLimit(o.Limit)
	}
	for i, r := range reqs {
		i, r := i, r
		g.Go(func() error {
			v, err := l.Execute(gctx, r)
			if err != nil {
				l.logger.Error("batch request failed", logging.Pairs{"index": i, "url": r.URL, "detail": err})
				if o.FailFast {
					return err
				}
				return nil
			}
			results[i] = v
			return nil
		})
	}
	return g.Wait()
}

// Preload executes every request concurrently with caching enabled so that
// later loads are served from the cache. Failures are logged and skipped;
// the number of successful loads is returned.
func (l *Loader) Preload(ctx context.Context, reqs []Request) int {
	l.logger.Info("starting data preloading", logging.Pairs{"configCount": len(reqs)})
	warm := make([]Request, len(reqs))
	for i, r := range reqs {
		r.forceCache()
		warm[i] = r
	}
	results, _ := l.LoadBatch(ctx, warm, BatchOptions{})
	var n int
	for i, r := range results {
		if r != nil {
			n++
			l.logger.Debug("data preloaded successfully", logging.Pairs{"url": warm[i].URL})
		}
	}
	l.logger.Info("data preloading completed", logging.Pairs{"loaded": n})
	return n
}
