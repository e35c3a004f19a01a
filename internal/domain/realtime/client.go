package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Client keeps a Replica in sync with the server: websocket events for
// latency, a Poller for correctness. Reconnects after dropped connections.
type Client struct {
	WSURL    string
	Header   http.Header
	Replica  *Replica
	Poller   *Poller
	// OnChange runs after a pushed frame or a poll changed the replica.
	// Calls never overlap.
	OnChange func(*Replica)

	dialer   *websocket.Dialer
	changeMu sync.Mutex
}

// NewClient creates a client; poller may be nil to rely on snapshots only.
func NewClient(wsURL string, header http.Header, replica *Replica, poller *Poller) *Client {
	return &Client{
		WSURL:   wsURL,
		Header:  header,
		Replica: replica,
		Poller:  poller,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run blocks until ctx is cancelled. The poller goroutine exits with it.
func (c *Client) Run(ctx context.Context) error {
	if c.Poller != nil {
		if c.Poller.OnRefresh == nil {
			c.Poller.OnRefresh = func(*Replica) { c.changed() }
		}
		go c.Poller.Run(ctx)
	}

	backoff := time.Second
	for {
		err := c.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Dur("retry_in", backoff).Msg("Realtime connection lost")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Client) listen(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.WSURL, c.Header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.Replica.Apply(frame); err != nil {
			log.Debug().Err(err).Msg("Ignoring bad realtime frame")
			continue
		}
		c.changed()
	}
}

func (c *Client) changed() {
	if c.OnChange == nil {
		return
	}
	c.changeMu.Lock()
	defer c.changeMu.Unlock()
	c.OnChange(c.Replica)
}
