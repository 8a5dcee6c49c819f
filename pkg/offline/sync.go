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

	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
)

type outcome struct {
	ok  bool
	err error
}

// SyncOfflineData replays the queue against the API in FIFO order. A
// replayed operation leaves the queue; a failed one has its retry count
// incremented and is dropped once it reaches the retry limit. A request
// cut short by ctx does not count as a failed attempt. Operations
// queued while the pass runs are kept for the next pass. The queue is
// persisted once, at the end of the pass.
//
// Concurrent calls share a single pass and its result; the pass runs under
// the context of the caller that started it.
func (m *Manager) SyncOfflineData(ctx context.Context) SyncResult {
	v, _, _ := m.sf.Do("sync", func() (any, error) {
		return m.sync(ctx), nil
	})
	return v.(SyncResult)
}

func (m *Manager) sync(ctx context.Context) SyncResult {
	if !m.CheckNetworkStatus(ctx) {
		m.logger.Warn("cannot sync offline data: no network connection", nil)
		return SyncResult{Skipped: true, Remaining: len(m.Queue())}
	}
	pending := m.Queue()
	if len(pending) == 0 {
		m.logger.Debug("no offline operations to sync", nil)
		return SyncResult{Skipped: true}
	}
	m.logger.Info("starting offline data sync", logging.Pairs{"operations": len(pending)})

	outcomes := make(map[string]outcome, len(pending))
	for _, op := range pending {
		if ctx.Err() != nil {
			break
		}
		req, err := op.Request()
		if err == nil {
			_, err = m.client.Do(ctx, req)
		}
		if err != nil && ctx.Err() != nil {
			// interrupted, not failed: the operation keeps its retry count
			m.logger.Warn("offline data sync interrupted",
				logging.Pairs{"id": op.ID, "type": string(op.Kind), "detail": err})
			break
		}
		outcomes[op.ID] = outcome{ok: err == nil, err: err}
		if err == nil {
			metrics.OfflineSyncOperations.WithLabelValues(string(op.Kind), "success").Inc()
			m.logger.Debug("offline operation synced successfully",
				logging.Pairs{"id": op.ID, "type": string(op.Kind)})
		}
	}

	var res SyncResult
	res.Attempted = len(outcomes)
	m.do(func(st *state) persist {
		kept := make([]Operation, 0, len(st.queue))
		for _, op := range st.queue {
			o, ran := outcomes[op.ID]
			switch {
			case !ran:
				kept = append(kept, op)
			case o.ok:
				res.Succeeded++
			default:
				op.RetryCount++
				if op.RetryCount >= m.opts.MaxRetries {
					res.Dropped++
					metrics.OfflineSyncOperations.WithLabelValues(string(op.Kind), "dropped").Inc()
					m.logger.Error("offline operation failed after max retries",
						logging.Pairs{"id": op.ID, "type": string(op.Kind), "detail": o.err})
					continue
				}
				res.Retrying++
				metrics.OfflineSyncOperations.WithLabelValues(string(op.Kind), "retry").Inc()
				m.logger.Warn("offline operation failed, will retry",
					logging.Pairs{"id": op.ID, "type": string(op.Kind), "retryCount": op.RetryCount,
						"detail": o.err})
				kept = append(kept, op)
			}
		}
		st.queue = kept
		res.Remaining = len(kept)
		return persistQueue
	})

	m.logger.Info("offline data sync completed", logging.Pairs{
		"successful": res.Succeeded,
		"failed":     res.Retrying + res.Dropped,
		"remaining":  res.Remaining,
	})
	if res.Succeeded > 0 && m.notifier != nil {
		m.notifier.SyncCompleted(res.Succeeded)
	}
	return res
}
