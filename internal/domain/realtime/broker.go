package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Broker carries owner events between instances. Each owner has its own
// channel; Subscribe receives all of them.
type Broker interface {
	Publish(ctx context.Context, ownerID uuid.UUID, payload []byte) error
	// Subscribe blocks, calling deliver for every message, until ctx is done.
	Subscribe(ctx context.Context, deliver func(ownerID uuid.UUID, payload []byte)) error
}

const (
	redisChannelPrefix = "realtime:owner:"
	natsSubjectPrefix  = "buzzhunt.owner."
)

// RedisBroker uses Redis Pub/Sub.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, ownerID uuid.UUID, payload []byte) error {
	return b.client.Publish(ctx, redisChannelPrefix+ownerID.String(), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, deliver func(uuid.UUID, []byte)) error {
	pubsub := b.client.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			ownerID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, redisChannelPrefix))
			if err != nil {
				continue
			}
			deliver(ownerID, []byte(msg.Payload))
		}
	}
}

// NATSBroker uses core NATS subjects.
type NATSBroker struct {
	conn *nats.Conn
}

func NewNATSBroker(conn *nats.Conn) *NATSBroker {
	return &NATSBroker{conn: conn}
}

func (b *NATSBroker) Publish(_ context.Context, ownerID uuid.UUID, payload []byte) error {
	return b.conn.Publish(natsSubjectPrefix+ownerID.String(), payload)
}

func (b *NATSBroker) Subscribe(ctx context.Context, deliver func(uuid.UUID, []byte)) error {
	sub, err := b.conn.Subscribe(natsSubjectPrefix+"*", func(msg *nats.Msg) {
		ownerID, err := uuid.Parse(strings.TrimPrefix(msg.Subject, natsSubjectPrefix))
		if err != nil {
			return
		}
		deliver(ownerID, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	<-ctx.Done()
	if err := sub.Unsubscribe(); err != nil {
		log.Warn().Err(err).Msg("NATS unsubscribe failed")
	}
	return nil
}
