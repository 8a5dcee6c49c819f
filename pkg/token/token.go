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

// Package token keeps the API access token fresh. Tokens are refreshed a
// configurable buffer before they expire, and concurrent callers share a
// single in-flight refresh.
//
// Claims are decoded without verifying the signature. The decoded expiry
// only schedules refreshes; the server remains the authority on whether a
// token is valid.
package token

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/piecework/wmsclient/pkg/appstate"
	"github.com/piecework/wmsclient/pkg/clock"
	"github.com/piecework/wmsclient/pkg/network"
	"github.com/piecework/wmsclient/pkg/observability/logging"
	"github.com/piecework/wmsclient/pkg/observability/metrics"
	"github.com/piecework/wmsclient/pkg/store"
	"github.com/piecework/wmsclient/pkg/token/options"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// Record keys of the stored token pair
const (
	TokenKey        = "token"
	RefreshTokenKey = "refresh_token"
)

var (
	// ErrNoRefreshToken is returned when a refresh is needed but no refresh token is stored
	ErrNoRefreshToken = errors.New("no refresh token available")
	// ErrInvalidResponse is returned when the refresh endpoint answers without a new token
	ErrInvalidResponse = errors.New("invalid token refresh response")
)

// RecordStore persists the token pair
type RecordStore interface {
	PutRecord(key string, v any) error
	GetRecord(key string, v any) error
	Remove(key string)
}

// Info is a read-only diagnostic view of the stored tokens
type Info struct {
	HasToken        bool          `json:"hasToken"`
	HasRefreshToken bool          `json:"hasRefreshToken"`
	IsExpired       bool          `json:"isExpired"`
	IsNearExpiry    bool          `json:"isNearExpiry"`
	ExpiryTime      *time.Time    `json:"expiryTime,omitempty"`
	Username        string        `json:"username,omitempty"`
	Roles           []string      `json:"roles,omitempty"`
	Claims          jwt.MapClaims `json:"claims,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// Manager is the token manager
type Manager struct {
	client  network.Client
	records RecordStore
	opts    *options.Options

	clock            clock.Clock
	logger           logging.Logger
	state            appstate.State
	onSessionExpired func()

	sf  singleflight.Group
	mtx sync.Mutex
}

var _ network.TokenSource = &Manager{}

// Option configures a Manager
type Option func(*Manager)

// WithClock sets the time source used for expiry checks
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the Manager's logger
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithState mirrors the token and login state into s
func WithState(s appstate.State) Option {
	return func(m *Manager) { m.state = s }
}

// WithSessionExpiredHandler sets fn to be called when the refresh token is
// rejected and the session has ended
func WithSessionExpiredHandler(fn func()) Option {
	return func(m *Manager) { m.onSessionExpired = fn }
}

// New returns a Manager that refreshes tokens through client. The client
// must not itself ask the Manager for a token.
func New(client network.Client, records RecordStore, o *options.Options, opts ...Option) *Manager {
	if o == nil {
		o = options.New()
	}
	o.Normalize()
	m := &Manager{
		client:  client,
		records: records,
		opts:    o,
		clock:   clock.System(),
		logger:  logging.NoopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func parseClaims(tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// NearExpiry reports whether tokenString expires within buffer of now. A
// malformed token is near expiry; a token with no expiry claim is not.
func NearExpiry(tokenString string, buffer time.Duration, now time.Time) bool {
	if tokenString == "" {
		return true
	}
	claims, err := parseClaims(tokenString)
	if err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	if exp == nil {
		return false
	}
	return exp.Time.Sub(now) < buffer
}

// Expired reports whether tokenString expired before now, at second
// granularity. A malformed token is expired; a token with no expiry claim
// is not.
func Expired(tokenString string, now time.Time) bool {
	if tokenString == "" {
		return true
	}
	claims, err := parseClaims(tokenString)
	if err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true
	}
	return exp != nil && exp.Unix() < now.Unix()
}

// IsTokenNearExpiry is NearExpiry at the Manager's current time. A buffer
// <= 0 uses the configured refresh buffer.
func (m *Manager) IsTokenNearExpiry(tokenString string, buffer time.Duration) bool {
	if buffer <= 0 {
		buffer = m.opts.RefreshBuffer
	}
	near := NearExpiry(tokenString, buffer, m.clock.Now())
	m.logger.Debug("token expiry check", logging.Pairs{"bufferTime": buffer, "needsRefresh": near})
	return near
}

// IsTokenExpired is Expired at the Manager's current time
func (m *Manager) IsTokenExpired(tokenString string) bool {
	return Expired(tokenString, m.clock.Now())
}

func (m *Manager) load(key string) string {
	var s string
	if err := m.records.GetRecord(key, &s); err != nil {
		if !errors.Is(err, store.ErrKNF) {
			m.logger.Error("failed to load token", logging.Pairs{"key": key, "detail": err})
		}
		return ""
	}
	return s
}

// Token returns the stored access token, or an empty string
func (m *Manager) Token() string {
	return m.load(TokenKey)
}

// RefreshToken returns the stored refresh token, or an empty string
func (m *Manager) RefreshToken() string {
	return m.load(RefreshTokenKey)
}

func (m *Manager) setState(key string, value any) {
	if m.state != nil {
		m.state.Set(key, value)
	}
}

func (m *Manager) storeTokens(tokenString, refreshToken string) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.records.PutRecord(TokenKey, tokenString); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := m.records.PutRecord(RefreshTokenKey, refreshToken); err != nil {
			return err
		}
	}
	m.setState(appstate.KeyToken, tokenString)
	return nil
}

// SaveTokens stores the token pair and marks the session as logged in. An
// empty refreshToken keeps the stored one.
func (m *Manager) SaveTokens(tokenString, refreshToken string) {
	if err := m.storeTokens(tokenString, refreshToken); err != nil {
		m.logger.Error("failed to save tokens", logging.Pairs{"detail": err})
		return
	}
	m.setState(appstate.KeyIsLoggedIn, true)
	m.logger.Info("tokens saved successfully", nil)
}

// ClearTokens removes the token pair and marks the session as logged out
func (m *Manager) ClearTokens() {
	m.mtx.Lock()
	m.records.Remove(TokenKey)
	m.records.Remove(RefreshTokenKey)
	m.mtx.Unlock()
	m.setState(appstate.KeyToken, "")
	m.setState(appstate.KeyIsLoggedIn, false)
	m.logger.Info("all tokens cleared", nil)
}

// RefreshTokenIfNeeded refreshes the access token when it is near expiry.
// It returns false when no token is stored or the refresh failed, and true
// when the token was already valid or was refreshed. Concurrent calls share
// one refresh request; a caller whose ctx ends first stops waiting and gets
// false while the refresh continues for the others.
func (m *Manager) RefreshTokenIfNeeded(ctx context.Context) bool {
	tokenString := m.Token()
	if tokenString == "" {
		m.logger.Debug("no token found, skipping refresh", nil)
		return false
	}
	if !m.IsTokenNearExpiry(tokenString, 0) {
		m.logger.Debug("token not near expiry, skipping refresh", nil)
		return true
	}
	return m.refresh(ctx)
}

// ManualRefresh refreshes the access token regardless of its expiry,
// sharing a refresh already in flight
func (m *Manager) ManualRefresh(ctx context.Context) bool {
	m.logger.Info("manual token refresh requested", nil)
	return m.refresh(ctx)
}

func (m *Manager) refresh(ctx context.Context) bool {
	ch := m.sf.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.RefreshTimeout)
		defer cancel()
		return nil, m.performRefresh(rctx)
	})
	select {
	case res := <-ch:
		if res.Shared {
			m.logger.Debug("shared an in-flight token refresh", nil)
		}
		return res.Err == nil
	case <-ctx.Done():
		m.logger.Warn("stopped waiting for token refresh", logging.Pairs{"detail": ctx.Err()})
		return false
	}
}

// PerformTokenRefresh posts the stored refresh token to the refresh
// endpoint and stores the returned tokens. A rejected refresh token ends
// the session: the tokens are cleared and the session expired handler is
// called. It does not coordinate with concurrent refreshes; use
// RefreshTokenIfNeeded for that.
func (m *Manager) PerformTokenRefresh(ctx context.Context) bool {
	return m.performRefresh(ctx) == nil
}

func (m *Manager) performRefresh(ctx context.Context) error {
	refreshToken := m.RefreshToken()
	if refreshToken == "" {
		m.logger.Warn("no refresh token available", nil)
		metrics.TokenRefreshes.WithLabelValues("no_refresh_token").Inc()
		return ErrNoRefreshToken
	}
	m.logger.Info("starting token refresh", nil)
	resp, err := m.client.Do(ctx, network.Request{
		URL:    m.opts.RefreshPath,
		Method: http.MethodPost,
		Data:   refreshRequest{RefreshToken: refreshToken},
	})
	if err != nil {
		m.logger.Error("token refresh request failed", logging.Pairs{"detail": err})
		if !network.IsUnauthorized(err) {
			metrics.TokenRefreshes.WithLabelValues("error").Inc()
			return err
		}
		metrics.TokenRefreshes.WithLabelValues("unauthorized").Inc()
		m.logger.Warn("refresh token expired, clearing all tokens", nil)
		m.ClearTokens()
		if m.onSessionExpired != nil {
			m.onSessionExpired()
		}
		return err
	}
	var body refreshResponse
	if resp.Code != http.StatusOK || resp.Decode(&body) != nil || body.Token == "" {
		m.logger.Error("token refresh failed: invalid response",
			logging.Pairs{"code": resp.Code, "message": resp.Message})
		metrics.TokenRefreshes.WithLabelValues("invalid").Inc()
		return ErrInvalidResponse
	}
	if err := m.storeTokens(body.Token, body.RefreshToken); err != nil {
		m.logger.Error("failed to save refreshed token", logging.Pairs{"detail": err})
		metrics.TokenRefreshes.WithLabelValues("error").Inc()
		return err
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	m.logger.Info("token refreshed successfully", nil)
	return nil
}

// GetValidToken returns a token that is not expired, refreshing it first
// when needed
func (m *Manager) GetValidToken(ctx context.Context) (string, bool) {
	if !m.RefreshTokenIfNeeded(ctx) {
		return "", false
	}
	tokenString := m.Token()
	if m.IsTokenExpired(tokenString) {
		m.logger.Warn("token still expired after refresh attempt", nil)
		return "", false
	}
	return tokenString, true
}

// StartTokenMonitoring runs MonitorToken in a new goroutine
func (m *Manager) StartTokenMonitoring(ctx context.Context) {
	go m.MonitorToken(ctx)
}

// MonitorToken checks the token immediately and then every monitor
// interval, returning when ctx is done
func (m *Manager) MonitorToken(ctx context.Context) {
	interval := m.opts.MonitorInterval
	m.logger.Info("token monitoring started", logging.Pairs{"checkInterval": interval})
	m.RefreshTokenIfNeeded(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Debug("token monitoring stopped", nil)
			return
		case <-t.C:
			m.RefreshTokenIfNeeded(ctx)
		}
	}
}

// TokenInfo describes the stored tokens
func (m *Manager) TokenInfo() Info {
	tokenString := m.Token()
	info := Info{HasRefreshToken: m.RefreshToken() != ""}
	if tokenString == "" {
		info.IsExpired = true
		info.IsNearExpiry = true
		return info
	}
	info.HasToken = true
	info.IsExpired = m.IsTokenExpired(tokenString)
	info.IsNearExpiry = m.IsTokenNearExpiry(tokenString, 0)
	claims, err := parseClaims(tokenString)
	if err != nil {
		return info
	}
	info.Claims = claims
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiryTime = &t
	}
	if name, ok := claims["username"].(string); ok && name != "" {
		info.Username = name
	} else if sub, err := claims.GetSubject(); err == nil {
		info.Username = sub
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				info.Roles = append(info.Roles, s)
			}
		}
	}
	return info
}
