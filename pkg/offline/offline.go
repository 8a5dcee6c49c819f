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

// Package offline keeps the client usable while the REST API is unreachable.
// It serves snapshots of earlier reads, queues mutations for later replay,
// and replays the queue when connectivity returns.
//
// The queue and the snapshots are owned by a single goroutine. Every read
// and mutation is a message to it, and persistence to the record store is a
// side effect of applying a message.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/piecework/wmsclient/pkg/appstate"
	"github.com/piecework/wmsclient/pkg/clock"
	"github.com/piecework/wmsclient/pkg/netstatus"
	"github.com/piecework/wmsclient/pkg/network"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
	"github.com/piecework/wmsclient/pkg/offline/options"
	"github.com/piecework/wmsclient/pkg/store"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Record keys used by the manager
const (
	QueueKey = "offline_queue"
	DataKey  = "offline_data"
)

// SnapshotKeyPrefix prefixes the URL of a read to form its snapshot key
const SnapshotKeyPrefix = "api_"

// QueuedMessage is the message of the response returned for a queued mutation
const QueuedMessage = "operation saved, will sync when the network is restored"

var (
	// ErrNoOfflineData is returned for a read made offline with no snapshot available
	ErrNoOfflineData = errors.New("no data available offline")
	// ErrNetworkUnavailable is returned for a mutation made offline with offline mode disabled
	ErrNetworkUnavailable = errors.New("network connection unavailable")
	// ErrClosed is returned by a Manager that has been closed
	ErrClosed = errors.New("offline manager is closed")
)

// RecordStore persists the queue and the snapshots
type RecordStore interface {
	PutRecord(key string, v any) error
	GetRecord(key string, v any) error
	Remove(key string)
}

// Notifier is told when a sync pass replayed at least one operation
type Notifier interface {
	SyncCompleted(succeeded int)
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(succeeded int)

// SyncCompleted calls f(succeeded)
func (f NotifierFunc) SyncCompleted(succeeded int) {
	f(succeeded)
}

// Snapshot is the last successful response to a read. Timestamp is the
// epoch millisecond time it was saved.
type Snapshot struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// QueueStatus summarizes the pending work. Oldest and Newest are the queue
// timestamps of the first and last operation, 0 when the queue is empty.
type QueueStatus struct {
	QueueSize int   `json:"queueSize"`
	DataKeys  int   `json:"dataKeys"`
	Oldest    int64 `json:"oldestOperation,omitempty"`
	Newest    int64 `json:"newestOperation,omitempty"`
}

// SyncResult reports the outcome of a sync pass
type SyncResult struct {
	// Skipped is set when no pass ran because the device was offline or
	// the queue was empty
	Skipped   bool `json:"skipped,omitempty"`
	Attempted int  `json:"attempted"`
	Succeeded int  `json:"succeeded"`
	// Retrying counts failed operations kept for the next pass
	Retrying int `json:"retrying"`
	// Dropped counts operations discarded after their final failed attempt
	Dropped   int `json:"dropped"`
	Remaining int `json:"remaining"`
}

type persist uint8

const (
	persistQueue persist = 1 << iota
	persistData
)

type state struct {
	queue     []Operation
	snapshots map[string]Snapshot
}

type message struct {
	fn    func(*state) persist
	reply chan struct{}
}

// Manager is the offline manager
type Manager struct {
	client  network.Client
	source  netstatus.Source
	records RecordStore
	opts    *options.Options

	clock    clock.Clock
	logger   logging.Logger
	notifier Notifier
	state    appstate.State

	st      state
	inbox   chan message
	done    chan struct{}
	stopped chan struct{}

	ctx       context.Context
	cancel    context.CancelFunc
	sf        singleflight.Group
	closeOnce sync.Once

	bgMtx   sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the Manager's time source
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the Manager's logger
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithNotifier sets the Notifier told about successful sync passes
func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithState mirrors the connection mode into s under appstate.KeyOfflineMode
func WithState(s appstate.State) Option {
	return func(m *Manager) { m.state = s }
}

// New returns a running Manager. The persisted queue and snapshots are
// loaded from records.
func New(client network.Client, source netstatus.Source, records RecordStore,
	o *options.Options, opts ...Option) *Manager {
	if o == nil {
		o = options.New()
	}
	o.Normalize()
	m := &Manager{
		client:  client,
		source:  source,
		records: records,
		opts:    o,
		clock:   clock.System(),
		logger:  logging.NoopLogger(),
		inbox:   make(chan message),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.load()
	go m.run()
	return m
}

func (m *Manager) load() {
	m.st.snapshots = make(map[string]Snapshot)
	if err := m.records.GetRecord(QueueKey, &m.st.queue); err != nil && !errors.Is(err, store.ErrKNF) {
		m.logger.Error("failed to load offline queue", logging.Pairs{"detail": err})
		m.st.queue = nil
	}
	if err := m.records.GetRecord(DataKey, &m.st.snapshots); err != nil && !errors.Is(err, store.ErrKNF) {
		m.logger.Error("failed to load offline data", logging.Pairs{"detail": err})
	}
	if m.st.snapshots == nil {
		m.st.snapshots = make(map[string]Snapshot)
	}
	metrics.OfflineQueueSize.Set(float64(len(m.st.queue)))
}

func (m *Manager) run() {
	defer close(m.stopped)
	for {
		select {
		case msg := <-m.inbox:
			m.persist(msg.fn(&m.st))
			close(msg.reply)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) persist(p persist) {
	if p&persistQueue != 0 {
		var err error
		if len(m.st.queue) == 0 {
			m.records.Remove(QueueKey)
		} else {
			err = m.records.PutRecord(QueueKey, m.st.queue)
		}
		if err != nil {
			m.logger.Error("failed to save offline queue", logging.Pairs{"detail": err})
		}
		metrics.OfflineQueueSize.Set(float64(len(m.st.queue)))
	}
	if p&persistData != 0 {
		var err error
		if len(m.st.snapshots) == 0 {
			m.records.Remove(DataKey)
		} else {
			err = m.records.PutRecord(DataKey, m.st.snapshots)
		}
		if err != nil {
			m.logger.Error("failed to save offline data", logging.Pairs{"detail": err})
		}
	}
}

// do runs fn on the owning goroutine and waits for it to be applied
func (m *Manager) do(fn func(*state) persist) error {
	msg := message{fn: fn, reply: make(chan struct{})}
	select {
	case m.inbox <- msg:
	case <-m.done:
		return ErrClosed
	}
	<-msg.reply
	return nil
}

// Close stops background syncs and the owning goroutine. It is safe to
// call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.bgMtx.Lock()
		m.closing = true
		m.bgMtx.Unlock()
		m.cancel()
		m.wg.Wait()
		close(m.done)
		<-m.stopped
	})
	return nil
}

// CheckNetworkStatus probes connectivity once. A failed probe is reported
// as offline.
func (m *Manager) CheckNetworkStatus(ctx context.Context) bool {
	nt, err := m.source.NetworkType(ctx)
	if err != nil {
		m.logger.Warn("failed to get network type, assuming offline", logging.Pairs{"detail": err})
		return false
	}
	online := netstatus.Connected(nt)
	m.logger.Debug("network status checked", logging.Pairs{"networkType": nt, "isOnline": online})
	return online
}

// StartNetworkMonitoring subscribes to connectivity changes. A transition
// to connected starts a sync pass in the background; a disconnect is only
// logged. The subscription ends when ctx is done or the returned function
// is called.
func (m *Manager) StartNetworkMonitoring(ctx context.Context) func() {
	unsubscribe := m.source.Subscribe(func(s netstatus.Status) {
		m.logger.Info("network status changed",
			logging.Pairs{"isConnected": s.IsConnected, "networkType": s.NetworkType})
		if m.state != nil {
			m.state.Set(appstate.KeyOfflineMode, !s.IsConnected)
		}
		if !s.IsConnected {
			m.logger.Warn("network disconnected, entering offline mode", nil)
			return
		}
		m.logger.Info("network connected, syncing offline data", nil)
		m.syncInBackground()
	})
	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			close(stop)
		})
	}
	go func() {
		select {
		case <-ctx.Done():
		case <-m.ctx.Done():
		case <-stop:
		}
		cancel()
	}()
	return cancel
}

// goBackground runs fn in a goroutine that Close waits for. It reports
// false once the Manager is closing.
func (m *Manager) goBackground(fn func()) bool {
	m.bgMtx.Lock()
	defer m.bgMtx.Unlock()
	if m.closing {
		return false
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn()
	}()
	return true
}

func (m *Manager) syncInBackground() {
	m.goBackground(func() { m.SyncOfflineData(m.ctx) })
}

// StartPeriodicSync runs a sync pass every interval until ctx is done.
// It returns immediately when interval <= 0.
func (m *Manager) StartPeriodicSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.goBackground(func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.ctx.Done():
				return
			case <-t.C:
				m.SyncOfflineData(m.ctx)
			}
		}
	})
}

// SaveOfflineOperation queues op with a new id, the current time and a zero
// retry count, evicting the oldest operation when the queue is full. The
// queued operation is returned.
func (m *Manager) SaveOfflineOperation(op Operation) (Operation, error) {
	op.ID = uuid.NewString()
	op.Timestamp = clock.UnixMilli(m.clock)
	op.RetryCount = 0
	var size, evicted int
	err := m.do(func(st *state) persist {
		st.queue = append(st.queue, op)
		for len(st.queue) > m.opts.MaxQueueSize {
			st.queue[0] = Operation{}
			st.queue = st.queue[1:]
			evicted++
		}
		size = len(st.queue)
		return persistQueue
	})
	if err != nil {
		m.logger.Error("failed to save offline operation",
			logging.Pairs{"operationType": string(op.Kind), "detail": err})
		return op, err
	}
	if evicted > 0 {
		metrics.OfflineQueueEvictions.Add(float64(evicted))
		m.logger.Warn("offline queue size exceeded, removing oldest operation",
			logging.Pairs{"evicted": evicted})
	}
	m.logger.Info("offline operation saved",
		logging.Pairs{"operationType": string(op.Kind), "queueSize": size})
	return op, nil
}

// SaveOfflineData stores data as the snapshot for key
func (m *Manager) SaveOfflineData(key string, data any) {
	b, err := json.Marshal(data)
	if err != nil {
		m.logger.Error("failed to save offline data", logging.Pairs{"key": key, "detail": err})
		return
	}
	snap := Snapshot{Data: b, Timestamp: clock.UnixMilli(m.clock)}
	err = m.do(func(st *state) persist {
		st.snapshots[key] = snap
		return persistData
	})
	if err != nil {
		m.logger.Error("failed to save offline data", logging.Pairs{"key": key, "detail": err})
		return
	}
	m.logger.Debug("offline data saved", logging.Pairs{"key": key, "dataSize": len(b)})
}

// GetOfflineData returns the snapshot for key if it is younger than maxAge.
// A snapshot whose age has reached maxAge is purged. A maxAge <= 0 uses the
// configured default.
func (m *Manager) GetOfflineData(key string, maxAge time.Duration) (json.RawMessage, bool) {
	if maxAge <= 0 {
		maxAge = m.opts.SnapshotMaxAge
	}
	now := clock.UnixMilli(m.clock)
	var data json.RawMessage
	var found, expired bool
	var age int64
	err := m.do(func(st *state) persist {
		snap, ok := st.snapshots[key]
		if !ok {
			return 0
		}
		age = now - snap.Timestamp
		if age >= maxAge.Milliseconds() {
			expired = true
			delete(st.snapshots, key)
			return persistData
		}
		found, data = true, snap.Data
		return 0
	})
	if err != nil {
		m.logger.Error("failed to get offline data", logging.Pairs{"key": key, "detail": err})
		return nil, false
	}
	if expired {
		m.logger.Debug("offline data expired", logging.Pairs{"key": key, "age": age})
		return nil, false
	}
	if found {
		m.logger.Debug("offline data retrieved", logging.Pairs{"key": key, "age": age})
	}
	return data, found
}

// QueueStatus summarizes the queue and the snapshots
func (m *Manager) QueueStatus() QueueStatus {
	var qs QueueStatus
	m.do(func(st *state) persist {
		qs.QueueSize = len(st.queue)
		qs.DataKeys = len(st.snapshots)
		if n := len(st.queue); n > 0 {
			qs.Oldest = st.queue[0].Timestamp
			qs.Newest = st.queue[n-1].Timestamp
		}
		return 0
	})
	return qs
}

// Queue returns a copy of the queued operations in replay order
func (m *Manager) Queue() []Operation {
	var q []Operation
	m.do(func(st *state) persist {
		q = append([]Operation(nil), st.queue...)
		return 0
	})
	return q
}

// ClearOfflineQueue discards every queued operation
func (m *Manager) ClearOfflineQueue() {
	err := m.do(func(st *state) persist {
		st.queue = nil
		return persistQueue
	})
	if err != nil {
		m.logger.Error("failed to clear offline queue", logging.Pairs{"detail": err})
		return
	}
	m.logger.Info("offline queue cleared", nil)
}

// ClearOfflineData discards every snapshot
func (m *Manager) ClearOfflineData() {
	err := m.do(func(st *state) persist {
		st.snapshots = make(map[string]Snapshot)
		return persistData
	})
	if err != nil {
		m.logger.Error("failed to clear offline data", logging.Pairs{"detail": err})
		return
	}
	m.logger.Info("offline data cleared", nil)
}
