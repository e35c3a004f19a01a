package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

type Repository interface {
	Deduct(ctx context.Context, ownerID string, amount int, meta TxMeta) error
	Add(ctx context.Context, ownerID string, amount int, txType TxType, meta TxMeta) error
	GetBalance(ctx context.Context, ownerID string) (int, error)
	ListTransactions(ctx context.Context, ownerID string, pagination Pagination) ([]CreditTransaction, error)
}

// CreditRepository provides credit ledger and balance operations.
type CreditRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) *CreditRepository {
	return &CreditRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Deduct subtracts amount only if the balance covers it. The balance check and
// the debit are one conditional UPDATE, so concurrent callers cannot overdraw.
func (r *CreditRepository) Deduct(ctx context.Context, ownerID string, amount int, meta TxMeta) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	now := r.now()
	result, err := tx.ExecContext(ctx2, `
		UPDATE credit_balances
		SET balance = balance - $2, updated_at = $3
		WHERE owner_id = $1 AND balance >= $2
	`, ownerID, amount, now)
	if err != nil {
		return fmt.Errorf("%w: update balance", ErrInternal)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected", ErrInternal)
	}
	if rows == 0 {
		return ErrInsufficientCredits
	}

	if err := r.insertLedger(ctx2, tx, ownerID, -amount, TxTypeDeduction, meta, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

// Add credits the owner, creating the balance row on first use. A refund that
// names a related entity is written at most once; a repeat is a no-op.
func (r *CreditRepository) Add(ctx context.Context, ownerID string, amount int, txType TxType, meta TxMeta) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx2, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx", ErrInternal)
	}
	defer tx.Rollback()

	if txType == TxTypeRefund && meta.RelatedEntityType != nil && meta.RelatedEntityID != nil {
		var existing int
		err := tx.GetContext(ctx2, &existing, `
			SELECT COUNT(*) FROM credit_transactions
			WHERE tx_type = $1 AND related_entity_type = $2 AND related_entity_id = $3
		`, string(TxTypeRefund), *meta.RelatedEntityType, *meta.RelatedEntityID)
		if err != nil {
			return fmt.Errorf("%w: check refund", ErrInternal)
		}
		if existing > 0 {
			return nil
		}
	}

	now := r.now()
	_, err = tx.ExecContext(ctx2, `
		INSERT INTO credit_balances (owner_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE
		SET balance = credit_balances.balance + EXCLUDED.balance, updated_at = EXCLUDED.updated_at
	`, ownerID, amount, now)
	if err != nil {
		return fmt.Errorf("%w: update balance", ErrInternal)
	}

	if err := r.insertLedger(ctx2, tx, ownerID, amount, txType, meta, now); err != nil {
		if txType == TxTypeRefund && errors.Is(err, errDuplicateRefund) {
			// Another instance refunded the same entity first.
			return nil
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit tx", ErrInternal)
	}

	return nil
}

func (r *CreditRepository) GetBalance(ctx context.Context, ownerID string) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var balance int
	err := r.db.GetContext(ctx2, &balance, `SELECT balance FROM credit_balances WHERE owner_id = $1`, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get balance", ErrInternal)
	}

	return balance, nil
}

func (r *CreditRepository) ListTransactions(ctx context.Context, ownerID string, pagination Pagination) ([]CreditTransaction, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 20
	}

	transactions := make([]CreditTransaction, 0)
	err := r.db.SelectContext(ctx2, &transactions, `
		SELECT id, owner_id, amount_delta, tx_type, related_entity_type, related_entity_id, description, created_at
		FROM credit_transactions
		WHERE owner_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`, ownerID, limit, pagination.Offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions", ErrInternal)
	}

	return transactions, nil
}

var errDuplicateRefund = errors.New("refund already recorded")

func (r *CreditRepository) insertLedger(ctx context.Context, tx *sqlx.Tx, ownerID string, amountDelta int, txType TxType, meta TxMeta, at time.Time) error {
	switch txType {
	case TxTypeDeduction, TxTypeRefund, TxTypeAdminGrant:
	default:
		return fmt.Errorf("%w: unknown tx type %q", ErrInternal, txType)
	}

	if strings.TrimSpace(meta.Description) == "" {
		meta.Description = "credit balance adjustment"
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (
			id, owner_id, amount_delta, tx_type, related_entity_type, related_entity_id, description, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, uuid.NewString(), ownerID, amountDelta, string(txType), meta.RelatedEntityType, meta.RelatedEntityID, meta.Description, at)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return errDuplicateRefund
		}
		return fmt.Errorf("%w: insert transaction", ErrInternal)
	}

	return nil
}
