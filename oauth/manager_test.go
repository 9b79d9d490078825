package oauth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestValidateSkipsRefreshWhenValid(t *testing.T) {
	var refreshCalls int32
	m := NewManager("good-access", "good-refresh",
		func(ctx context.Context, token string) error {
			if token != "good-access" {
				t.Errorf("validate called with token %q, want good-access", token)
			}
			return nil
		},
		func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
			atomic.AddInt32(&refreshCalls, 1)
			return "", "", time.Time{}, errors.New("should not be called")
		},
		nil,
	)

	if err := m.Validate(context.Background()); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}
	if n := atomic.LoadInt32(&refreshCalls); n != 0 {
		t.Errorf("refresh called %d times for a valid token, want 0", n)
	}
	if m.AccessToken() != "good-access" {
		t.Errorf("AccessToken() = %q, want good-access", m.AccessToken())
	}
}

func TestValidateFallsBackToRefresh(t *testing.T) {
	var persisted [2]string
	m := NewManager("stale-access", "old-refresh",
		func(ctx context.Context, token string) error { return errors.New("401 Unauthorized") },
		func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
			if refreshToken != "old-refresh" {
				t.Errorf("refresh called with %q, want old-refresh", refreshToken)
			}
			return "new-access", "new-refresh", time.Now().Add(4 * time.Hour), nil
		},
		func(access, refresh string) error {
			persisted = [2]string{access, refresh}
			return nil
		},
	)

	if err := m.Validate(context.Background()); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}
	if m.AccessToken() != "new-access" {
		t.Errorf("AccessToken() = %q, want new-access", m.AccessToken())
	}
	if persisted != [2]string{"new-access", "new-refresh"} {
		t.Errorf("persisted = %v, want [new-access new-refresh]", persisted)
	}
}

func TestRefreshFailureKeepsOldPair(t *testing.T) {
	m := NewManager("old-access", "old-refresh",
		func(ctx context.Context, token string) error { return nil },
		func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
			return "", "", time.Time{}, errors.New("invalid refresh token")
		},
		nil,
	)

	if err := m.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error, got nil")
	}
	if m.AccessToken() != "old-access" {
		t.Errorf("AccessToken() = %q after failed refresh, want old-access", m.AccessToken())
	}
}

func TestRefreshSurvivesPersistFailure(t *testing.T) {
	m := NewManager("old-access", "old-refresh",
		func(ctx context.Context, token string) error { return nil },
		func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
			return "new-access", "new-refresh", time.Now().Add(time.Hour), nil
		},
		func(access, refresh string) error { return errors.New("disk full") },
	)

	// Persistence is best-effort; the in-memory pair still rotates.
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() unexpected error = %v", err)
	}
	if m.AccessToken() != "new-access" {
		t.Errorf("AccessToken() = %q, want new-access", m.AccessToken())
	}
}

func TestAutoRefreshOutsideWindow(t *testing.T) {
	var refreshCalls int32
	m := NewManager("a", "r",
		func(ctx context.Context, token string) error { return nil },
		func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
			atomic.AddInt32(&refreshCalls, 1)
			return "a2", "r2", time.Now().Add(time.Hour), nil
		},
		nil,
	)
	// Seeded expiry is one hour out; a 30m window must not trigger anything.
	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	m.StartAutoRefresh(ctx, 20*time.Millisecond, 30*time.Minute, nil)
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&refreshCalls); n != 0 {
		t.Errorf("refresh called %d times outside window, want 0", n)
	}
}

func TestAutoRefreshWithinWindow(t *testing.T) {
	var refreshCalls int32
	m := NewManager("a", "r",
		func(ctx context.Context, token string) error { return nil },
		func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
			atomic.AddInt32(&refreshCalls, 1)
			return "a2", "r2", time.Now().Add(time.Hour), nil
		},
		nil,
	)
	m.mu.Lock()
	m.expiresAt = time.Now().Add(time.Minute)
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartAutoRefresh(ctx, 20*time.Millisecond, 15*time.Minute, nil)

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&refreshCalls) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if atomic.LoadInt32(&refreshCalls) == 0 {
		t.Error("refresh never called for token expiring within window")
	}
	if m.AccessToken() != "a2" {
		t.Errorf("AccessToken() = %q, want a2", m.AccessToken())
	}
}

func TestAutoRefreshFatalOnFailure(t *testing.T) {
	fatal := make(chan error, 1)
	m := NewManager("a", "r",
		func(ctx context.Context, token string) error { return nil },
		func(ctx context.Context, refreshToken string) (string, string, time.Time, error) {
			return "", "", time.Time{}, errors.New("refresh rejected")
		},
		nil,
	)
	m.mu.Lock()
	m.expiresAt = time.Now()
	m.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartAutoRefresh(ctx, 20*time.Millisecond, 15*time.Minute, func(err error) { fatal <- err })

	select {
	case err := <-fatal:
		if err == nil {
			t.Error("onFatal called with nil error")
		}
	case <-time.After(2 * time.Second):
		t.Error("onFatal never called for failed refresh")
	}
}
