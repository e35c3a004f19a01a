package clue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/database"
)

const queryTimeout = 3 * time.Second

// Repository is the store port for clues and unlock records.
type Repository interface {
	GetClue(ctx context.Context, id uuid.UUID) (*Clue, error)
	InsertClue(ctx context.Context, c *Clue) error
	GetUnlock(ctx context.Context, ownerID, clueID uuid.UUID) (*ClueUnlock, error)
	InsertUnlock(ctx context.Context, u *ClueUnlock) error
	ListUnlocked(ctx context.Context, ownerID uuid.UUID) ([]UnlockedClue, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates a new clue repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetClue(ctx context.Context, id uuid.UUID) (*Clue, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Clue
	err := r.db.GetContext(ctx2, &c, `SELECT id, tier, body, week_id, created_at FROM clues WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClueNotFound
		}
		return nil, fmt.Errorf("%w: get clue", ErrInternal)
	}
	return &c, nil
}

func (r *repository) InsertClue(ctx context.Context, c *Clue) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO clues (id, tier, body, week_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, string(c.Tier), c.Body, c.WeekID, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: insert clue", ErrInternal)
	}
	return nil
}

// GetUnlock returns nil, nil when the owner has not unlocked the clue.
func (r *repository) GetUnlock(ctx context.Context, ownerID, clueID uuid.UUID) (*ClueUnlock, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u ClueUnlock
	err := r.db.GetContext(ctx2, &u, `
		SELECT id, owner_id, clue_id, cost_paid, unlocked_at
		FROM clue_unlocks
		WHERE owner_id = $1 AND clue_id = $2
	`, ownerID, clueID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get unlock", ErrInternal)
	}
	return &u, nil
}

func (r *repository) InsertUnlock(ctx context.Context, u *ClueUnlock) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO clue_unlocks (id, owner_id, clue_id, cost_paid, unlocked_at)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.OwnerID, u.ClueID, u.CostPaid, u.UnlockedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrAlreadyUnlocked
		}
		return fmt.Errorf("%w: insert unlock", ErrInternal)
	}
	return nil
}

func (r *repository) ListUnlocked(ctx context.Context, ownerID uuid.UUID) ([]UnlockedClue, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	items := make([]UnlockedClue, 0)
	err := r.db.SelectContext(ctx2, &items, `
		SELECT u.id, u.owner_id, u.clue_id, u.cost_paid, u.unlocked_at, c.tier, c.body
		FROM clue_unlocks u
		JOIN clues c ON c.id = u.clue_id
		WHERE u.owner_id = $1
		ORDER BY u.unlocked_at, u.id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list unlocked", ErrInternal)
	}
	return items, nil
}
