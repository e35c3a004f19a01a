package area

import (
	"errors"

	"github.com/shopspring/decimal"
)

const (
	BaseRadiusKm    = 100.00
	ReductionFactor = 0.95
	MinRadiusKm     = 0.50
)

// ErrInvalidGeneration is returned for a negative generation count.
var ErrInvalidGeneration = errors.New("generation count must not be negative")

// Past this many generations the radius is pinned at MinRadiusKm.
const floorGeneration = 128

var (
	baseRadius = decimal.NewFromFloat(BaseRadiusKm)
	factor     = decimal.RequireFromString("0.95")
	minRadius  = decimal.NewFromFloat(MinRadiusKm)
)

// NextRadius returns the radius of the area issued after generationCount
// earlier areas in the same week. It is the only authoritative formula.
func NextRadius(generationCount int) (float64, error) {
	if generationCount < 0 {
		return 0, ErrInvalidGeneration
	}
	if generationCount > floorGeneration {
		generationCount = floorGeneration
	}

	r := baseRadius
	for i := 0; i < generationCount; i++ {
		r = r.Mul(factor)
	}
	return clamp(r), nil
}

// NextRadiusFromPrevious shrinks an already issued radius by one step.
// Rounding happens at every step, so after enough steps it can drift from
// NextRadius; use CheckConsistency to observe that.
func NextRadiusFromPrevious(previous float64) float64 {
	return clamp(decimal.NewFromFloat(previous).Mul(factor))
}

func clamp(r decimal.Decimal) float64 {
	r = r.Round(2)
	if r.LessThan(minRadius) {
		r = minRadius
	}
	return r.InexactFloat64()
}

// Consistency compares the two radius paths for one generation.
type Consistency struct {
	Generation    int     `json:"generation"`
	Authoritative float64 `json:"authoritative_km"`
	Chained       float64 `json:"chained_km"`
	DriftKm       float64 `json:"drift_km"`
}

// Consistent reports whether both paths produced the same radius.
func (c Consistency) Consistent() bool {
	return c.DriftKm == 0
}

// CheckConsistency walks the previous-radius path from BaseRadiusKm and
// reports how far it ends up from NextRadius.
func CheckConsistency(generationCount int) (Consistency, error) {
	authoritative, err := NextRadius(generationCount)
	if err != nil {
		return Consistency{}, err
	}

	chained := BaseRadiusKm
	for i := 0; i < generationCount && i < floorGeneration; i++ {
		chained = NextRadiusFromPrevious(chained)
	}

	drift := decimal.NewFromFloat(chained).Sub(decimal.NewFromFloat(authoritative)).Abs()
	return Consistency{
		Generation:    generationCount,
		Authoritative: authoritative,
		Chained:       chained,
		DriftKm:       drift.Round(2).InexactFloat64(),
	}, nil
}
