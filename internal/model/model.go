// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// BBox is a geographic viewport in decimal degrees, west < east and
// south < north.
type BBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// Envelope is the fixed operational rectangle covering the served
// territory (United Kingdom plus coastal margin). Every bounds is
// clamped to it before use.
var Envelope = BBox{West: -8.65, South: 49.8, East: 1.8, North: 60.9}

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.West, b.South, b.East, b.North)
}

func (b BBox) Valid() bool {
	for _, v := range []float64{b.West, b.South, b.East, b.North} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.West < b.East && b.South < b.North
}

func (b BBox) Area() float64 {
	return (b.East - b.West) * (b.North - b.South)
}

// Clamp restricts b to the envelope e. The result may be degenerate
// (zero width or height) when b lies entirely outside e.
func (b BBox) Clamp(e BBox) BBox {
	out := b
	if out.West < e.West {
		out.West = e.West
	}
	if out.East > e.East {
		out.East = e.East
	}
	if out.South < e.South {
		out.South = e.South
	}
	if out.North > e.North {
		out.North = e.North
	}
	return out
}

// ParseBBoxParam parses a "west,south,east,north" query value. Malformed
// input (wrong count, non-numeric, inverted axes) yields nil, meaning
// "no bounds": the caller falls back to full-dataset behavior.
func ParseBBoxParam(raw string) *BBox {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		vals[i] = f
	}
	bb := BBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	if !bb.Valid() {
		return nil
	}
	bb = bb.Clamp(Envelope)
	if !bb.Valid() {
		return nil
	}
	return &bb
}

// Station is a single fuel site as produced by the ingestion
// collaborator. Records are treated as immutable once stored; the cache
// layer holds copies and never mutates them.
type Station struct {
	SiteID    string             `json:"site_id" validate:"required"`
	Brand     string             `json:"brand"`
	Address   string             `json:"address"`
	Postcode  string             `json:"postcode"`
	Lon       float64            `json:"lon" validate:"min=-180,max=180"`
	Lat       float64            `json:"lat" validate:"min=-90,max=90"`
	Prices    map[string]float64 `json:"prices"`
	Updated   time.Time          `json:"updated"`
	BestPrice bool               `json:"best_price,omitempty"`
}

// MinPrice returns the lowest price across fuel types, or +Inf when the
// station carries no usable price.
func (s Station) MinPrice() float64 {
	minP := math.Inf(1)
	for _, p := range s.Prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		if p < minP {
			minP = p
		}
	}
	return minP
}

// DedupKey identifies a station for cross-tile deduplication: adjoining
// tiles are filtered independently and may both report a boundary
// station.
func (s Station) DedupKey() string {
	return fmt.Sprintf("%.6f:%.6f:%s", s.Lon, s.Lat, s.Brand)
}

// DeviceProfile bounds how many stations a client can render.
type DeviceProfile struct {
	IsMobile    bool
	IsLowEnd    bool
	MaxStations int
}
