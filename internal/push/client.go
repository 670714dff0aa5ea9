// Package push maintains the long-lived server-push channel. The channel is
// a notification trigger only, never a data source: every recognized event
// collapses to "go re-fetch the whole playlist", which costs one extra round
// trip but cannot produce ordering or partial-update bugs.
package push

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/backend"
	"github.com/nimbus-retail/kioskd/internal/session"
)

const (
	eventsPath = "events"
	// probePath is a bodyless authenticated ping used to classify a dropped
	// connection as session expiry vs. generic network failure. Cheaper than
	// pulling the full playlist snapshot just to inspect the status code.
	probePath = "auth/session"
)

// Inbound events become typed commands consumed by one dispatch point,
// instead of handler callbacks mutating scattered state.
type command int

const (
	cmdIgnore command = iota
	cmdPing
	cmdRefetch
)

func commandFor(event string) command {
	switch event {
	case "ping":
		return cmdPing
	case "dto:updated", "playlist:generated":
		return cmdRefetch
	default:
		return cmdIgnore
	}
}

// Refresher runs a full playlist fetch-and-publish cycle.
type Refresher func(ctx context.Context)

type Client struct {
	backend *backend.Client
	session *session.Manager
	httpc   *http.Client // no timeout: the stream is long-lived
	backoff time.Duration
	refresh Refresher
}

func New(b *backend.Client, s *session.Manager, backoff time.Duration, refresh Refresher) *Client {
	return &Client{
		backend: b,
		session: s,
		httpc:   &http.Client{},
		backoff: backoff,
		refresh: refresh,
	}
}

// Run keeps the push channel alive until ctx is cancelled. On a connection
// error it classifies the failure: an expired session triggers immediate
// invalidate + re-bootstrap + reconnect, anything else waits out the fixed
// backoff first.
func (c *Client) Run(ctx context.Context) {
	for {
		err := c.stream(ctx)
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Msg("push channel closed")

		if backend.IsAuthError(err) || c.sessionExpired(ctx) {
			log.Info().Msg("session expired, re-bootstrapping before reconnect")
			c.session.Invalidate(ctx)
			if err := c.session.BootstrapLoop(ctx); err != nil {
				return
			}
			continue
		}

		log.Info().Dur("backoff", c.backoff).Msg("scheduling push channel reconnect")
		timer := time.NewTimer(c.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// sessionExpired probes the backend with the current credentials.
func (c *Client) sessionExpired(ctx context.Context) bool {
	return backend.IsAuthError(c.backend.Get(ctx, probePath))
}

// stream opens the event source and consumes it until it breaks. The opened
// connection immediately triggers a full fetch, self-healing against events
// missed while disconnected.
func (c *Client) stream(ctx context.Context) error {
	streamURL := c.backend.URL(eventsPath)
	if token, ok := c.session.CurrentToken(ctx); ok {
		streamURL += "?token=" + url.QueryEscape(token)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("connect push channel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &backend.HTTPError{Status: resp.StatusCode, StatusText: http.StatusText(resp.StatusCode)}
	}

	log.Info().Msg("push channel connected")
	c.refresh(ctx)

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	event := ""
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			c.dispatch(ctx, event)
			event = ""
		case strings.HasPrefix(line, ":"):
			// comment / keepalive padding
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			// payload is ignored by contract; events only signal "re-fetch"
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read push channel: %w", err)
	}
	return io.ErrUnexpectedEOF
}

func (c *Client) dispatch(ctx context.Context, event string) {
	switch commandFor(event) {
	case cmdPing:
		log.Debug().Msg("push channel keepalive")
	case cmdRefetch:
		log.Info().Str("event", event).Msg("change notification received")
		c.refresh(ctx)
	}
}
