// Package oauth owns the bot's user token pair: validation, refresh, persistence,
// and proactive background renewal. The Manager is the single writer; everything
// else reads a snapshot through AccessToken for each outbound call.
package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// ValidateFunc checks an access token against the provider's introspection endpoint.
type ValidateFunc func(ctx context.Context, accessToken string) error

// RefreshFunc performs provider-specific refresh and returns (access, refresh, expiry).
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, error)

// PersistFunc writes the new token pair to durable storage. Persistence is
// best-effort: a failure here is logged but does not fail the refresh.
type PersistFunc func(access, refresh string) error

// Manager holds the current access/refresh token pair.
type Manager struct {
	validate ValidateFunc
	refresh  RefreshFunc
	persist  PersistFunc

	mu           sync.RWMutex
	access       string
	refreshToken string
	expiresAt    time.Time
}

// NewManager seeds the manager with the token pair loaded from configuration.
// The real expiry is unknown until the first refresh; assume one hour.
func NewManager(access, refresh string, validate ValidateFunc, refreshFn RefreshFunc, persist PersistFunc) *Manager {
	return &Manager{
		validate:     validate,
		refresh:      refreshFn,
		persist:      persist,
		access:       access,
		refreshToken: refresh,
		expiresAt:    time.Now().Add(time.Hour),
	}
}

// AccessToken returns a snapshot of the most recently validated or refreshed access token.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access
}

// Validate checks the current access token and falls back to Refresh when the
// provider rejects it. A valid token performs zero refresh calls.
func (m *Manager) Validate(ctx context.Context) error {
	m.mu.RLock()
	tok := m.access
	m.mu.RUnlock()
	if err := m.validate(ctx, tok); err != nil {
		slog.Warn("access token rejected; refreshing", slog.Any("err", err))
		return m.Refresh(ctx)
	}
	slog.Info("access token valid")
	return nil
}

// Refresh exchanges the refresh token for a new pair, updates the in-memory
// credentials atomically, and persists them. A refresh failure leaves the old
// pair in place and is unrecoverable for the caller: no further API call can
// succeed without valid credentials.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	access, refresh, expiry, err := m.refresh(ctx, m.refreshToken)
	if err != nil {
		return fmt.Errorf("token refresh: %w", err)
	}
	m.access = access
	m.refreshToken = refresh
	m.expiresAt = expiry
	if m.persist != nil {
		if perr := m.persist(access, refresh); perr != nil {
			slog.Warn("token persist failed", slog.Any("err", perr))
		} else {
			slog.Info("token refreshed and persisted")
		}
	} else {
		slog.Info("token refreshed")
	}
	return nil
}

func (m *Manager) timeToExpiry() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Until(m.expiresAt)
}

// StartAutoRefresh launches a goroutine that periodically checks the token expiry
// and refreshes when remaining lifetime falls within window. A failed refresh is
// reported through onFatal and the goroutine exits; the process cannot keep
// running with dead credentials.
func (m *Manager) StartAutoRefresh(ctx context.Context, interval, window time.Duration, onFatal func(error)) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	go func() {
		for {
			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			if m.timeToExpiry() > window {
				continue
			}
			rctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := m.Refresh(rctx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Error("proactive token refresh failed", slog.Any("err", err))
				if onFatal != nil {
					onFatal(err)
				}
				return
			}
		}
	}()
}
