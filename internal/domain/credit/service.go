package credit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/keylock"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/metrics"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/retry"
)

// service implements the Service interface
type service struct {
	repo   Repository
	locks  *keylock.Locker
	policy retry.Policy
}

// NewService creates a ledger backed by db
func NewService(db *sqlx.DB, policy retry.Policy) Service {
	return NewServiceWithRepository(NewRepository(db), policy)
}

// NewServiceWithRepository is used by tests and by callers that share a repository.
func NewServiceWithRepository(repo Repository, policy retry.Policy) Service {
	return &service{
		repo:   repo,
		locks:  keylock.New(),
		policy: policy,
	}
}

// Deduct atomically deducts credits from an owner.
// Deductions are not retried: the caller compensates on any later failure.
func (s *service) Deduct(ctx context.Context, ownerID uuid.UUID, amount int, meta TransactionMeta) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	unlock, err := s.locks.Lock(ctx, ownerID.String())
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.repo.Deduct(ctx, ownerID.String(), amount, toTxMeta(meta)); err != nil {
		return err
	}

	metrics.CreditsSpentTotal.Add(float64(amount))
	return nil
}

// Refund gives credits back after a failed operation. It runs detached from
// the caller's cancellation and retries transient storage failures.
func (s *service) Refund(ctx context.Context, ownerID uuid.UUID, amount int, meta TransactionMeta) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx = context.WithoutCancel(ctx)
	unlock, err := s.locks.Lock(ctx, ownerID.String())
	if err != nil {
		return err
	}
	defer unlock()

	txMeta := toTxMeta(meta)
	err = retry.Do(ctx, s.policy, func(ctx context.Context) error {
		err := s.repo.Add(ctx, ownerID.String(), amount, TxTypeRefund, txMeta)
		if err != nil && !errors.Is(err, ErrInternal) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		metrics.RefundsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).
			Str("owner_id", ownerID.String()).
			Int("amount", amount).
			Str("related_entity_id", meta.RelatedEntityID.String()).
			Msg("credit refund failed")
		return err
	}

	metrics.RefundsTotal.WithLabelValues("applied").Inc()
	return nil
}

// Grant tops up an owner
func (s *service) Grant(ctx context.Context, ownerID uuid.UUID, amount int, meta TransactionMeta) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	unlock, err := s.locks.Lock(ctx, ownerID.String())
	if err != nil {
		return err
	}
	defer unlock()

	return s.repo.Add(ctx, ownerID.String(), amount, TxTypeAdminGrant, toTxMeta(meta))
}

// GetBalance returns the current credit balance for an owner
func (s *service) GetBalance(ctx context.Context, ownerID uuid.UUID) (int, error) {
	return s.repo.GetBalance(ctx, ownerID.String())
}

// ListTransactions returns paginated transaction history for an owner
func (s *service) ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]CreditTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.ListTransactions(ctx, ownerID.String(), Pagination{Limit: limit, Offset: offset})
}

func toTxMeta(meta TransactionMeta) TxMeta {
	txMeta := TxMeta{
		Description: meta.Description,
	}

	if meta.RelatedEntityType != "" {
		entityType := meta.RelatedEntityType
		txMeta.RelatedEntityType = &entityType
	}

	if meta.RelatedEntityID != uuid.Nil {
		entityIDStr := meta.RelatedEntityID.String()
		txMeta.RelatedEntityID = &entityIDStr
	}

	return txMeta
}
