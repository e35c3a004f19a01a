package area

import (
	"time"

	"github.com/google/uuid"
)

// SearchArea is one circle issued by a Buzz action. Rows are never updated.
type SearchArea struct {
	ID              uuid.UUID `db:"id" json:"id"`
	OwnerID         uuid.UUID `db:"owner_id" json:"owner_id"`
	CenterLat       float64   `db:"center_lat" json:"center_lat"`
	CenterLng       float64   `db:"center_lng" json:"center_lng"`
	RadiusKm        float64   `db:"radius_km" json:"radius_km"`
	WeekID          int       `db:"week_id" json:"week_id"`
	GenerationIndex int       `db:"generation_index" json:"generation_index"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lng float64
}
