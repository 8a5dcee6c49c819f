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
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/piecework/wmsclient/cmd/wmsclient/config"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
)

const shutdownTimeout = 5 * time.Second

// runDaemon keeps the token fresh, follows connectivity and replays the
// offline queue until ctx is done or the process is signaled
func (c *client) runDaemon(ctx context.Context, conf *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	stopMonitoring := c.offline.StartNetworkMonitoring(ctx)
	defer stopMonitoring()
	wg.Add(3)
	go func() {
		defer wg.Done()
		c.tokens.MonitorToken(ctx)
	}()
	go func() {
		defer wg.Done()
		c.prober.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		c.cleanupStats(ctx, conf.Cache.StatsCleanupInterval, conf.Cache.StatsMaxAge)
	}()
	c.offline.StartPeriodicSync(ctx, conf.Offline.SyncInterval)

	var srv *http.Server
	errs := make(chan error, 1)
	if conf.Metrics.ListenPort > 0 {
		addr := net.JoinHostPort(conf.Metrics.ListenAddress, strconv.Itoa(conf.Metrics.ListenPort))
		l, err := net.Listen("tcp", addr)
		if err != nil {
			c.logger.Error("metrics listener startup failed", logging.Pairs{"address": addr, "detail": err})
			stop()
			wg.Wait()
			return err
		}
		srv = c.serveMetrics(l, conf, errs)
	}
	c.logger.Info("client daemon started", logging.Pairs{"syncInterval": conf.Offline.SyncInterval})

	var err error
	select {
	case <-ctx.Done():
	case err = <-errs:
		stop()
	}
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		srv.Shutdown(sctx)
		cancel()
	}
	wg.Wait()
	c.logger.Info("client daemon stopped", nil)
	return err
}

// serveMetrics serves /metrics, /config and /status on l. A serve failure
// other than a shutdown is sent to errs.
func (c *client) serveMetrics(l net.Listener, conf *config.Config, errs chan<- error) *http.Server {
	router := http.NewServeMux()
	router.Handle("/metrics", metrics.Handler())
	router.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(conf.String()))
	})
	router.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, c.status(r.Context()))
	})
	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		c.logger.Info("metrics listener starting", logging.Pairs{"address": l.Addr().String()})
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics listener stopped", logging.Pairs{"detail": err})
			errs <- err
		}
	}()
	return srv
}

// cleanupStats drops idle cache access statistics every interval
func (c *client) cleanupStats(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := c.smart.CleanupStats(maxAge); n > 0 {
				c.logger.Info("idle cache statistics removed", logging.Pairs{"removed": n})
			}
		}
	}
}
