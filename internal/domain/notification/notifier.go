package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notifier delivers events to an owner.
type Notifier interface {
	Notify(ctx context.Context, ownerID uuid.UUID, event Event) error
}

// LogNotifier writes events to the application log.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, ownerID uuid.UUID, event Event) error {
	log.Info().
		Str("owner_id", ownerID.String()).
		Str("category", string(event.Category)).
		Str("title", event.Title).
		Msg("notification")
	return nil
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, ownerID uuid.UUID, event Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ownerID, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
