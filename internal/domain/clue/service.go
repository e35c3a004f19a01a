package clue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/buzzhunt/buzzhunt-api/internal/domain/credit"
	"github.com/buzzhunt/buzzhunt-api/internal/domain/notification"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/keylock"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/metrics"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/retry"
)

const relatedEntityUnlock = "clue_unlock"

// Service unlocks clues against the credit ledger.
type Service struct {
	repo     Repository
	credits  credit.Service
	notifier notification.Notifier
	locks    *keylock.Locker
	policy   retry.Policy
	now      func() time.Time
}

// NewService creates the unlock service. notifier may be nil.
func NewService(repo Repository, credits credit.Service, notifier notification.Notifier, policy retry.Policy) *Service {
	return &Service{
		repo:     repo,
		credits:  credits,
		notifier: notifier,
		locks:    keylock.New(),
		policy:   policy,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Unlock reveals a clue to owner. A clue the owner already has is returned
// with zero cost. Any failure after the debit is refunded before the error
// reaches the caller.
func (s *Service) Unlock(ctx context.Context, ownerID, clueID uuid.UUID) (*UnlockResult, error) {
	release, err := s.locks.Lock(ctx, ownerID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	state := s.step(ownerID, clueID, StateRequested)

	c, err := s.repo.GetClue(ctx, clueID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetUnlock(ctx, ownerID, clueID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.noCharge(ctx, ownerID, c, existing)
	}

	cost := c.Tier.Cost()
	unlock := &ClueUnlock{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		ClueID:     clueID,
		CostPaid:   cost,
		UnlockedAt: s.now(),
	}
	meta := credit.TransactionMeta{
		RelatedEntityType: relatedEntityUnlock,
		RelatedEntityID:   unlock.ID,
		Description:       fmt.Sprintf("unlock %s clue", c.Tier),
	}

	// The ledger checks the balance and debits it in one conditional update.
	state = s.step(ownerID, clueID, StateBalanceChecked)
	if err := s.credits.Deduct(ctx, ownerID, cost, meta); err != nil {
		if errors.Is(err, credit.ErrInsufficientCredits) {
			s.finish(ownerID, clueID, StateInsufficientFunds)
		}
		return nil, err
	}
	state = s.step(ownerID, clueID, StateDeducted)

	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		err := s.repo.InsertUnlock(ctx, unlock)
		if err != nil {
			// a lost acknowledgement leaves our own row behind
			if stored, getErr := s.repo.GetUnlock(ctx, ownerID, clueID); getErr == nil && stored != nil && stored.ID == unlock.ID {
				log.Warn().Err(err).Str("unlock_id", unlock.ID.String()).Msg("unlock insert reported an error but the row is stored")
				return nil
			}
		}
		if errors.Is(err, ErrAlreadyUnlocked) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		state = s.step(ownerID, clueID, StateInsertFailed)
		refundErr := s.credits.Refund(context.Background(), ownerID, cost, credit.TransactionMeta{
			RelatedEntityType: relatedEntityUnlock,
			RelatedEntityID:   unlock.ID,
			Description:       "refund: unlock not recorded",
		})
		if refundErr != nil {
			log.Error().Err(refundErr).
				Str("owner_id", ownerID.String()).
				Str("clue_id", clueID.String()).
				Int("cost", cost).
				Msg("refund after failed unlock insert did not apply")
		} else {
			state = StateRefunded
		}

		if errors.Is(err, ErrAlreadyUnlocked) {
			// another instance recorded the same pair between our read and insert
			existing, getErr := s.repo.GetUnlock(context.Background(), ownerID, clueID)
			if getErr == nil && existing != nil && refundErr == nil {
				return s.noCharge(ctx, ownerID, c, existing)
			}
		}

		s.finish(ownerID, clueID, state)
		return nil, fmt.Errorf("%w: %v", ErrStorageWriteFailure, err)
	}
	s.step(ownerID, clueID, StateRecorded)

	s.notify(ownerID, c)
	state = StateComplete
	s.finish(ownerID, clueID, state)

	balance, err := s.credits.GetBalance(ctx, ownerID)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("balance read after unlock failed")
	}

	return &UnlockResult{
		Clue:    c,
		Unlock:  unlock,
		Cost:    cost,
		State:   state,
		Balance: balance,
	}, nil
}

// ListUnlocked returns the owner's unlocked clues, oldest first.
func (s *Service) ListUnlocked(ctx context.Context, ownerID uuid.UUID) ([]UnlockedClue, error) {
	return s.repo.ListUnlocked(ctx, ownerID)
}

// UnlockedTexts returns the bodies of the owner's unlocked clues.
func (s *Service) UnlockedTexts(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	items, err := s.repo.ListUnlocked(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(items))
	for _, it := range items {
		texts = append(texts, it.Body)
	}
	return texts, nil
}

func (s *Service) noCharge(ctx context.Context, ownerID uuid.UUID, c *Clue, existing *ClueUnlock) (*UnlockResult, error) {
	s.finish(ownerID, c.ID, StateCompleteNoCharge)

	balance, err := s.credits.GetBalance(ctx, ownerID)
	if err != nil {
		log.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("balance read after unlock failed")
	}

	return &UnlockResult{
		Clue:            c,
		Unlock:          existing,
		Cost:            0,
		State:           StateCompleteNoCharge,
		AlreadyUnlocked: true,
		Balance:         balance,
	}, nil
}

func (s *Service) step(ownerID, clueID uuid.UUID, state State) State {
	log.Debug().
		Str("owner_id", ownerID.String()).
		Str("clue_id", clueID.String()).
		Str("state", string(state)).
		Msg("clue unlock")
	return state
}

// finish records a terminal state.
func (s *Service) finish(ownerID, clueID uuid.UUID, state State) {
	metrics.UnlocksTotal.WithLabelValues(string(state)).Inc()
	s.step(ownerID, clueID, state)
}

func (s *Service) notify(ownerID uuid.UUID, c *Clue) {
	if s.notifier == nil {
		return
	}

	event := notification.Event{
		Title:    "Clue unlocked",
		Body:     c.Body,
		Category: notification.CategoryClue,
	}

	go func() {
		// Use background context to avoid cancellation
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.notifier.Notify(bgCtx, ownerID, event); err != nil {
			log.Warn().Err(err).Str("owner_id", ownerID.String()).Msg("unlock notification failed")
		}
	}()
}
