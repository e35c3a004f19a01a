package database

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// NewNATS connects to a NATS server. Returns nil when natsURL is empty.
func NewNATS(natsURL string) (*nats.Conn, error) {
	if natsURL == "" {
		log.Warn().Msg("NATS URL not configured, running without NATS")
		return nil, nil
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("buzzhunt-api"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Msg("Connected to NATS")
	return nc, nil
}

// CloseNATS drains pending messages and closes the connection.
func CloseNATS(nc *nats.Conn) {
	if nc == nil {
		return
	}
	if err := nc.Drain(); err != nil {
		log.Error().Err(err).Msg("Error draining NATS connection")
	}
}
