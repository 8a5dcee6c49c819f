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

package netstatus

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
)

// DefaultProbeInterval is the polling interval of a Prober
const DefaultProbeInterval = 15 * time.Second

// Prober is a Source that decides connectivity by polling an HTTP health
// URL. Any response from the server counts as connected.
type Prober struct {
	url      string
	interval time.Duration
	client   *http.Client
	logger   logging.Logger

	mtx       sync.Mutex
	last      string
	hasResult bool
	subs      subscribers
}

var _ Source = &Prober{}

// NewProber returns a Prober for url. An interval <= 0 uses DefaultProbeInterval.
func NewProber(url string, interval time.Duration, client *http.Client,
	logger logging.Logger) *Prober {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = logging.NoopLogger()
	}
	return &Prober{url: url, interval: interval, client: client, logger: logger}
}

// NetworkType issues one probe. An unreachable server reports TypeNone;
// only a canceled context is an error.
func (p *Prober) NetworkType(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return "", err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		p.logger.Debug("network probe failed", logging.Pairs{"url": p.url, "detail": err})
		return TypeNone, nil
	}
	resp.Body.Close()
	return TypeHTTP, nil
}

// Subscribe registers fn for status changes observed by Run
func (p *Prober) Subscribe(fn func(Status)) func() {
	return p.subs.add(fn)
}

// Run probes on the configured interval until ctx is done, notifying
// subscribers whenever connectivity changes
func (p *Prober) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()
	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (p *Prober) poll(ctx context.Context) {
	nt, err := p.NetworkType(ctx)
	if err != nil {
		return
	}
	p.mtx.Lock()
	changed := !p.hasResult || p.last != nt
	p.last, p.hasResult = nt, true
	p.mtx.Unlock()
	if !changed {
		return
	}
	connected := Connected(nt)
	if connected {
		metrics.NetworkOnline.Set(1)
	} else {
		metrics.NetworkOnline.Set(0)
	}
	p.subs.notify(Status{IsConnected: connected, NetworkType: nt})
}
