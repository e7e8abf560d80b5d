package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// FeatureCollection is the GeoJSON shape exchanged with the ingestion
// collaborator and the HTTP layer.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [lon, lat]
}

var validate = validator.New()

// FromFeatureCollection converts an ingested GeoJSON collection to
// station records. Features with missing geometry or failing validation
// are dropped rather than carried through; unknown properties are
// discarded by construction.
func FromFeatureCollection(fc FeatureCollection) []Station {
	out := make([]Station, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry.Type != "Point" || len(f.Geometry.Coordinates) != 2 {
			continue
		}
		s := Station{
			Lon:    f.Geometry.Coordinates[0],
			Lat:    f.Geometry.Coordinates[1],
			Prices: map[string]float64{},
		}
		if v, ok := f.Properties["site_id"]; ok {
			s.SiteID = asString(v)
		}
		if v, ok := f.Properties["brand"]; ok {
			s.Brand = asString(v)
		}
		if v, ok := f.Properties["address"]; ok {
			s.Address = asString(v)
		}
		if v, ok := f.Properties["postcode"]; ok {
			s.Postcode = asString(v)
		}
		if v, ok := f.Properties["best_price"]; ok {
			b, _ := v.(bool)
			s.BestPrice = b
		}
		if v, ok := f.Properties["updated"]; ok {
			if ts, err := time.Parse(time.RFC3339, asString(v)); err == nil {
				s.Updated = ts
			}
		}
		if v, ok := f.Properties["prices"]; ok {
			if m, ok := v.(map[string]any); ok {
				for fuel, raw := range m {
					if p, ok := asFloat(raw); ok {
						s.Prices[fuel] = p
					}
				}
			}
		}
		if err := validate.Struct(s); err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}

// siteEntry is the raw per-brand/per-site feed form.
type siteEntry struct {
	SiteID   string             `json:"site_id"`
	Address  string             `json:"address"`
	Postcode string             `json:"postcode"`
	Location struct {
		Longitude float64 `json:"longitude"`
		Latitude  float64 `json:"latitude"`
	} `json:"location"`
	Prices  map[string]float64 `json:"prices"`
	Updated string             `json:"last_updated"`
}

// FromSiteMap converts the raw brand-keyed site map produced by feed
// parsers into station records.
func FromSiteMap(raw []byte) ([]Station, error) {
	var byBrand map[string][]siteEntry
	if err := json.Unmarshal(raw, &byBrand); err != nil {
		return nil, fmt.Errorf("decode site map: %w", err)
	}
	var out []Station
	for brand, sites := range byBrand {
		for _, e := range sites {
			s := Station{
				SiteID:   e.SiteID,
				Brand:    brand,
				Address:  e.Address,
				Postcode: strings.ToUpper(strings.TrimSpace(e.Postcode)),
				Lon:      e.Location.Longitude,
				Lat:      e.Location.Latitude,
				Prices:   e.Prices,
			}
			if s.Prices == nil {
				s.Prices = map[string]float64{}
			}
			if ts, err := time.Parse(time.RFC3339, e.Updated); err == nil {
				s.Updated = ts
			}
			if err := validate.Struct(s); err != nil {
				continue
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// ToFeatureCollection renders stations back to the GeoJSON shape served
// to map clients.
func ToFeatureCollection(stations []Station) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(stations))}
	for _, s := range stations {
		props := map[string]any{
			"site_id":  s.SiteID,
			"brand":    s.Brand,
			"address":  s.Address,
			"postcode": s.Postcode,
			"prices":   s.Prices,
		}
		if s.BestPrice {
			props["best_price"] = true
		}
		if !s.Updated.IsZero() {
			props["updated"] = s.Updated.Format(time.RFC3339)
		}
		fc.Features = append(fc.Features, Feature{
			Type:       "Feature",
			Geometry:   Geometry{Type: "Point", Coordinates: []float64{s.Lon, s.Lat}},
			Properties: props,
		})
	}
	return fc
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		return fmt.Sprintf("%v", t)
	default:
		return ""
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
