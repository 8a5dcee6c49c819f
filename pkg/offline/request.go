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

package offline

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/piecework/wmsclient/pkg/network"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
)

// SnapshotKey returns the snapshot key for a read of url
func SnapshotKey(url string) string {
	return SnapshotKeyPrefix + url
}

// CreateOfflineRequest performs req with offline fallback.
//
// Online, the request goes to the API and a successful read is saved as the
// snapshot for its URL. A failed read falls back to that snapshot when
// enableOffline is set; other failures are returned.
//
// Offline, a read is served from its snapshot or fails with
// ErrNoOfflineData. A mutation is queued and answered with a synthetic
// accepted response when enableOffline is set, or fails with
// ErrNetworkUnavailable.
func (m *Manager) CreateOfflineRequest(ctx context.Context, req network.Request,
	enableOffline bool) (*network.Response, error) {
	method := req.HTTPMethod()
	if m.CheckNetworkStatus(ctx) {
		resp, err := m.client.Do(ctx, req)
		if err == nil {
			if req.IsRead() {
				m.SaveOfflineData(SnapshotKey(req.URL), resp)
			}
			metrics.OfflineRequests.WithLabelValues("online", method, "success").Inc()
			return resp, nil
		}
		if enableOffline && req.IsRead() {
			if resp, ok := m.snapshotResponse(req.URL); ok {
				m.logger.Info("using offline data due to network error",
					logging.Pairs{"url": req.URL, "detail": err})
				metrics.OfflineRequests.WithLabelValues("online", method, "snapshot").Inc()
				return resp, nil
			}
		}
		metrics.OfflineRequests.WithLabelValues("online", method, "error").Inc()
		return nil, err
	}

	if req.IsRead() {
		if resp, ok := m.snapshotResponse(req.URL); ok {
			m.logger.Info("using offline data in offline mode", logging.Pairs{"url": req.URL})
			metrics.OfflineRequests.WithLabelValues("offline", method, "snapshot").Inc()
			return resp, nil
		}
		metrics.OfflineRequests.WithLabelValues("offline", method, "error").Inc()
		return nil, ErrNoOfflineData
	}
	if !enableOffline {
		metrics.OfflineRequests.WithLabelValues("offline", method, "error").Inc()
		return nil, ErrNetworkUnavailable
	}
	op, err := NewOperation(KindAPIRequest, req.Data)
	if err != nil {
		return nil, err
	}
	op.URL, op.Method = req.URL, method
	if _, err := m.SaveOfflineOperation(op); err != nil {
		return nil, err
	}
	m.logger.Info("operation saved for offline sync", logging.Pairs{"url": req.URL, "method": method})
	metrics.OfflineRequests.WithLabelValues("offline", method, "queued").Inc()
	return &network.Response{
		Code:    http.StatusOK,
		Message: QueuedMessage,
		Offline: true,
	}, nil
}

func (m *Manager) snapshotResponse(url string) (*network.Response, bool) {
	data, ok := m.GetOfflineData(SnapshotKey(url), 0)
	if !ok {
		return nil, false
	}
	resp := &network.Response{}
	if err := json.Unmarshal(data, resp); err != nil {
		m.logger.Error("failed to decode offline data", logging.Pairs{"url": url, "detail": err})
		return nil, false
	}
	return resp, true
}
