// Package tile maps geographic bounds onto a fixed rectangular degree
// grid. Tiles are half-open [west,east) x [south,north) so a point
// belongs to exactly one tile per axis.
package tile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/openfuelmap/fuelgrid/internal/model"
)

// EarthRadiusKm is the fixed radius used for great-circle distances.
const EarthRadiusKm = 6371.0

type Coord struct {
	X int
	Y int
}

// Key is the canonical "x,y" form used as a cache key.
func (c Coord) Key() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

func ParseKey(key string) (Coord, error) {
	parts := strings.Split(key, ",")
	if len(parts) != 2 {
		return Coord{}, fmt.Errorf("tile key %q: want x,y", key)
	}
	x, err := strconv.Atoi(parts[0])
	if err != nil {
		return Coord{}, fmt.Errorf("tile key %q: %w", key, err)
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return Coord{}, fmt.Errorf("tile key %q: %w", key, err)
	}
	return Coord{X: x, Y: y}, nil
}

// TilesForBounds returns every tile overlapping b at the given tile
// size, in deterministic row-major order with no duplicates. A bounds
// edge exactly on a grid line includes the tile it opens into, not the
// one it closes.
func TilesForBounds(b model.BBox, size float64) []Coord {
	minX := int(math.Floor(b.West / size))
	maxX := int(math.Floor(b.East / size))
	minY := int(math.Floor(b.South / size))
	maxY := int(math.Floor(b.North / size))

	out := make([]Coord, 0, (maxX-minX+1)*(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			out = append(out, Coord{X: x, Y: y})
		}
	}
	return out
}

// BoundsForTile is the exact inverse of the floor mapping.
func BoundsForTile(c Coord, size float64) model.BBox {
	return model.BBox{
		West:  float64(c.X) * size,
		East:  float64(c.X+1) * size,
		South: float64(c.Y) * size,
		North: float64(c.Y+1) * size,
	}
}

// OptimalDivisor picks a tile-size divisor from the bounds area so the
// tile count stays roughly constant across zoom levels (larger area,
// coarser tiles).
func OptimalDivisor(b model.BBox) int {
	area := b.Area()
	switch {
	case area > 10:
		return 1
	case area > 1:
		return 2
	case area > 0.1:
		return 4
	default:
		return 8
	}
}

// Contains reports whether the point lies in b. Tile storage uses the
// half-open convention; the direct query filter is inclusive on all
// edges. The asymmetry is deliberate and both behaviors are pinned by
// tests.
func Contains(b model.BBox, lon, lat float64, halfOpen bool) bool {
	if halfOpen {
		return lon >= b.West && lon < b.East && lat >= b.South && lat < b.North
	}
	return lon >= b.West && lon <= b.East && lat >= b.South && lat <= b.North
}

// Distance returns the great-circle distance in kilometers between two
// points, via the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}
