package area

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

// Repository is the store port for search areas.
type Repository interface {
	Insert(ctx context.Context, a *SearchArea) error
	GetByID(ctx context.Context, id uuid.UUID) (*SearchArea, error)
	CountByWeek(ctx context.Context, ownerID uuid.UUID, weekID int) (int, error)
	LastByWeek(ctx context.Context, ownerID uuid.UUID, weekID int) (*SearchArea, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]SearchArea, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates a new search area repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, a *SearchArea) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO search_areas (id, owner_id, center_lat, center_lng, radius_km, week_id, generation_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.OwnerID, a.CenterLat, a.CenterLng, a.RadiusKm, a.WeekID, a.GenerationIndex, a.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrGenerationTaken
		}
		return fmt.Errorf("%w: insert area", ErrInternal)
	}
	return nil
}

// GetByID returns nil, nil when no area has the id.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*SearchArea, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a SearchArea
	err := r.db.GetContext(ctx2, &a, `
		SELECT id, owner_id, center_lat, center_lng, radius_km, week_id, generation_index, created_at
		FROM search_areas
		WHERE id = $1
	`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get area", ErrInternal)
	}
	return &a, nil
}

func (r *repository) CountByWeek(ctx context.Context, ownerID uuid.UUID, weekID int) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx2, &count, `
		SELECT COUNT(*) FROM search_areas WHERE owner_id = $1 AND week_id = $2
	`, ownerID, weekID)
	if err != nil {
		return 0, fmt.Errorf("%w: count areas", ErrInternal)
	}
	return count, nil
}

func (r *repository) LastByWeek(ctx context.Context, ownerID uuid.UUID, weekID int) (*SearchArea, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var a SearchArea
	err := r.db.GetContext(ctx2, &a, `
		SELECT id, owner_id, center_lat, center_lng, radius_km, week_id, generation_index, created_at
		FROM search_areas
		WHERE owner_id = $1 AND week_id = $2
		ORDER BY generation_index DESC
		LIMIT 1
	`, ownerID, weekID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: last area", ErrInternal)
	}
	return &a, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]SearchArea, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	areas := make([]SearchArea, 0)
	err := r.db.SelectContext(ctx2, &areas, `
		SELECT id, owner_id, center_lat, center_lng, radius_km, week_id, generation_index, created_at
		FROM search_areas
		WHERE owner_id = $1
		ORDER BY week_id, generation_index
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%w: list areas", ErrInternal)
	}
	return areas, nil
}
