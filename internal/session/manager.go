// Package session owns the device session token: acquisition via device
// login, persistence, and invalidation on authorization failure. Device
// login failure is never fatal; the kiosk has no operator, so bootstrap is
// the one place an unbounded retry loop is allowed.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/backend"
)

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateExpired         State = "expired"
)

const loginPath = "auth/login/device"

type loginResponse struct {
	Token string `json:"token"`
}

type Manager struct {
	client *backend.Client
	store  TokenStore
	retry  time.Duration

	mu    sync.Mutex
	state State
}

func NewManager(client *backend.Client, store TokenStore, retry time.Duration) *Manager {
	return &Manager{
		client: client,
		store:  store,
		retry:  retry,
		state:  StateUnauthenticated,
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// CurrentToken reads the stored token. Implements backend.TokenSource.
func (m *Manager) CurrentToken(ctx context.Context) (string, bool) {
	token, err := m.store.Get(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read session token")
		return "", false
	}
	return token, token != ""
}

// Bootstrap makes a single attempt to establish a session. A token already
// in the store counts as success.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if token, ok := m.CurrentToken(ctx); ok && token != "" {
		m.setState(StateAuthenticated)
		return nil
	}

	m.setState(StateAuthenticating)
	var resp loginResponse
	if err := m.client.GetJSON(ctx, loginPath, &resp); err != nil {
		m.setState(StateUnauthenticated)
		return fmt.Errorf("device login: %w", err)
	}
	if resp.Token == "" {
		m.setState(StateUnauthenticated)
		return fmt.Errorf("device login: empty token in response")
	}

	if err := m.store.Set(ctx, resp.Token); err != nil {
		m.setState(StateUnauthenticated)
		return fmt.Errorf("persist session token: %w", err)
	}
	m.setState(StateAuthenticated)
	log.Info().Msg("device session established")
	return nil
}

// BootstrapLoop retries Bootstrap on a fixed interval until it succeeds or
// ctx is cancelled.
func (m *Manager) BootstrapLoop(ctx context.Context) error {
	for {
		err := m.Bootstrap(ctx)
		if err == nil {
			return nil
		}
		log.Error().Err(err).Dur("retry_in", m.retry).Msg("bootstrap failed, will retry")

		timer := time.NewTimer(m.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Invalidate clears the stored token after an authorization failure.
func (m *Manager) Invalidate(ctx context.Context) {
	if err := m.store.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("failed to clear session token")
	}
	m.setState(StateExpired)
	log.Info().Msg("session invalidated")
}
