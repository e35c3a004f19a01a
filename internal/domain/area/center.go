package area

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"
)

const kmPerDegreeLat = 111.32

// Center places the circle for one generation so that prize is always
// inside it: the offset from prize is at most half the radius. The result
// depends only on its inputs, so every instance computes the same center.
func Center(prize Point, ownerID uuid.UUID, weekID, generation int, radiusKm float64) Point {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", ownerID, weekID, generation)))
	u1 := float64(binary.BigEndian.Uint64(sum[0:8])) / math.MaxUint64
	u2 := float64(binary.BigEndian.Uint64(sum[8:16])) / math.MaxUint64

	distance := u1 * 0.5 * radiusKm
	bearing := u2 * 2 * math.Pi

	dLat := distance * math.Cos(bearing) / kmPerDegreeLat
	cosLat := math.Cos(prize.Lat * math.Pi / 180)
	if cosLat < 1e-6 {
		cosLat = 1e-6
	}
	dLng := distance * math.Sin(bearing) / (kmPerDegreeLat * cosLat)

	return Point{
		Lat: round6(prize.Lat + dLat),
		Lng: round6(prize.Lng + dLng),
	}
}

// DistanceKm is the haversine distance between two points.
func DistanceKm(a, b Point) float64 {
	const earthRadiusKm = 6371.0
	toRad := math.Pi / 180
	dLat := (b.Lat - a.Lat) * toRad
	dLng := (b.Lng - a.Lng) * toRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*toRad)*math.Cos(b.Lat*toRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
