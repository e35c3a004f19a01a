package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/area"
)

const (
	minPollInterval = 50 * time.Millisecond
	maxPollInterval = 5 * time.Minute
	fetchTimeout    = 10 * time.Second
)

// FetchFunc returns the authoritative list of the owner's areas.
type FetchFunc func(ctx context.Context) ([]area.SearchArea, error)

// Poller periodically replaces a Replica with a full re-fetch. It stops when
// its context is cancelled.
type Poller struct {
	replica  *Replica
	fetch    FetchFunc
	interval time.Duration
	// OnRefresh, if set, runs after each successful refresh.
	OnRefresh func(*Replica)
}

// NewPoller clamps interval to a sane range
func NewPoller(replica *Replica, fetch FetchFunc, interval time.Duration) *Poller {
	if interval < minPollInterval {
		interval = minPollInterval
	}
	if interval > maxPollInterval {
		interval = maxPollInterval
	}
	return &Poller{replica: replica, fetch: fetch, interval: interval}
}

// Interval returns the effective polling interval
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run polls immediately and then every interval. It returns ctx.Err().
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Refresh(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Refresh performs one re-fetch. Failures keep the current view, as do
// areas pushed while the fetch was in flight.
func (p *Poller) Refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	since := p.replica.Version()
	areas, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("Area poll failed")
		}
		return false
	}
	p.replica.ReplaceSince(areas, since)
	if p.OnRefresh != nil {
		p.OnRefresh(p.replica)
	}
	return true
}

// HTTPFetcher reads GET {baseURL}/api/v1/areas with a bearer token.
func HTTPFetcher(client *http.Client, baseURL, token string) FetchFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) ([]area.SearchArea, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/areas", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("list areas: status %d", resp.StatusCode)
		}

		var body struct {
			Data Snapshot `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode areas: %w", err)
		}
		return body.Data.Items, nil
	}
}
