package area

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/credit"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/cycle"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/keylock"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/metrics"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/retry"
)

// Publisher fans a committed area out to the owner's live sessions.
type Publisher interface {
	PublishAreaCreated(ctx context.Context, ownerID uuid.UUID, a *SearchArea) error
}

// Config holds the game parameters of area generation.
type Config struct {
	Prize Point
	// BuzzCost is charged per generated area; zero makes Buzz free.
	BuzzCost int
	Retry    retry.Policy
}

// Service generates and lists search areas.
type Service struct {
	repo      Repository
	credits   credit.Service
	publisher Publisher
	clock     cycle.Clock
	locks     *keylock.Locker
	cfg       Config
}

// NewService creates the area service. credits may be nil when BuzzCost is 0,
// publisher may be nil to disable fan-out.
func NewService(repo Repository, credits credit.Service, publisher Publisher, clock cycle.Clock, cfg Config) *Service {
	if clock == nil {
		clock = cycle.SystemClock{}
	}
	return &Service{
		repo:      repo,
		credits:   credits,
		publisher: publisher,
		clock:     clock,
		locks:     keylock.New(),
		cfg:       cfg,
	}
}

// GenerateArea issues the next search area of the current week for owner.
// The generation index is the number of areas the owner already has this week.
func (s *Service) GenerateArea(ctx context.Context, ownerID uuid.UUID) (*SearchArea, error) {
	unlock, err := s.locks.Lock(ctx, ownerID.String())
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.clock.Now().UTC()
	weekID := cycle.WeekID(now)
	areaID := uuid.New()

	charged := false
	if s.cfg.BuzzCost > 0 && s.credits != nil {
		err := s.credits.Deduct(ctx, ownerID, s.cfg.BuzzCost, credit.TransactionMeta{
			RelatedEntityType: "search_area",
			RelatedEntityID:   areaID,
			Description:       "buzz",
		})
		if err != nil {
			return nil, err
		}
		charged = true
	}

	var created *SearchArea
	err = retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
		count, err := s.repo.CountByWeek(ctx, ownerID, weekID)
		if err != nil {
			return err
		}
		radius, err := NextRadius(count)
		if err != nil {
			return retry.Permanent(err)
		}

		center := Center(s.cfg.Prize, ownerID, weekID, count, radius)
		a := &SearchArea{
			ID:              areaID,
			OwnerID:         ownerID,
			CenterLat:       center.Lat,
			CenterLng:       center.Lng,
			RadiusKm:        radius,
			WeekID:          weekID,
			GenerationIndex: count,
			CreatedAt:       now,
		}
		if err := s.repo.Insert(ctx, a); err != nil {
			// The insert may have committed before the error surfaced.
			if stored, getErr := s.repo.GetByID(ctx, areaID); getErr == nil && stored != nil {
				log.Warn().Err(err).Str("area_id", areaID.String()).Msg("area insert reported an error but the row is stored")
				created = stored
				return nil
			}
			if errors.Is(err, ErrGenerationTaken) {
				log.Warn().
					Str("owner_id", ownerID.String()).
					Int("generation_index", count).
					Msg("generation index taken by another writer, recounting")
			}
			return err
		}
		created = a
		return nil
	})
	if err != nil {
		if charged {
			refundErr := s.credits.Refund(context.Background(), ownerID, s.cfg.BuzzCost, credit.TransactionMeta{
				RelatedEntityType: "search_area",
				RelatedEntityID:   areaID,
				Description:       "buzz refund: area not stored",
			})
			if refundErr != nil {
				log.Error().Err(refundErr).Str("owner_id", ownerID.String()).Msg("buzz refund failed")
			}
		}
		log.Error().Err(err).Str("owner_id", ownerID.String()).Int("week_id", weekID).Msg("failed to generate search area")
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailure, err)
	}

	metrics.AreasGeneratedTotal.Inc()
	metrics.AreaRadiusKm.Observe(created.RadiusKm)

	if s.publisher != nil {
		event := *created
		go func() {
			if err := s.publisher.PublishAreaCreated(context.Background(), ownerID, &event); err != nil {
				log.Warn().Err(err).Str("area_id", event.ID.String()).Msg("failed to publish area event")
			}
		}()
	}

	return created, nil
}

// ListAreas returns every area of owner, oldest first. Clients use it to
// reconcile after reconnecting or on each poll.
func (s *Service) ListAreas(ctx context.Context, ownerID uuid.UUID) ([]SearchArea, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

// CurrentWeekConsistency reports drift between the chained radius of the
// owner's latest area this week and the authoritative formula.
func (s *Service) CurrentWeekConsistency(ctx context.Context, ownerID uuid.UUID) (*Consistency, error) {
	weekID := cycle.WeekID(s.clock.Now())
	last, err := s.repo.LastByWeek(ctx, ownerID, weekID)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}

	c, err := CheckConsistency(last.GenerationIndex)
	if err != nil {
		return nil, err
	}
	if last.RadiusKm != c.Authoritative {
		log.Warn().
			Str("owner_id", ownerID.String()).
			Float64("stored_km", last.RadiusKm).
			Float64("authoritative_km", c.Authoritative).
			Msg("stored radius differs from formula")
	}
	return &c, nil
}
