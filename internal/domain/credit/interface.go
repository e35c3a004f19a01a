package credit

import (
	"context"

	"github.com/google/uuid"
)

// TransactionMeta contains metadata for credit transactions
type TransactionMeta struct {
	RelatedEntityType string
	RelatedEntityID   uuid.UUID
	Description       string
}

// Service is the credit ledger. Every balance mutation goes through it.
type Service interface {
	// Deduct atomically deducts credits from an owner.
	// Returns ErrInsufficientCredits and leaves the balance untouched if it cannot cover amount.
	Deduct(ctx context.Context, ownerID uuid.UUID, amount int, meta TransactionMeta) error

	// Refund atomically gives credits back as compensation for a failed operation.
	// A refund for the same related entity is applied at most once.
	Refund(ctx context.Context, ownerID uuid.UUID, amount int, meta TransactionMeta) error

	// Grant tops up an owner (admin or seed credits).
	Grant(ctx context.Context, ownerID uuid.UUID, amount int, meta TransactionMeta) error

	// GetBalance returns the current credit balance for an owner
	GetBalance(ctx context.Context, ownerID uuid.UUID) (int, error)

	// ListTransactions returns paginated ledger history for an owner
	ListTransactions(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]CreditTransaction, error)
}
