package model

import (
	"testing"
	"time"
)

func pointFeature(siteID string, lon, lat float64, prices map[string]any) Feature {
	return Feature{
		Type:     "Feature",
		Geometry: Geometry{Type: "Point", Coordinates: []float64{lon, lat}},
		Properties: map[string]any{
			"site_id": siteID,
			"brand":   "shell",
			"prices":  prices,
		},
	}
}

func TestFromFeatureCollection(t *testing.T) {
	fc := FeatureCollection{
		Type: "FeatureCollection",
		Features: []Feature{
			pointFeature("a", -0.13, 51.51, map[string]any{"unleaded": 142.9}),
			// non-point geometry dropped
			{Type: "Feature", Geometry: Geometry{Type: "LineString"}, Properties: map[string]any{"site_id": "line"}},
			// missing site_id fails validation
			{Type: "Feature", Geometry: Geometry{Type: "Point", Coordinates: []float64{0, 51}}, Properties: map[string]any{}},
			// out-of-range longitude fails validation
			pointFeature("far", 999, 51.5, nil),
		},
	}
	got := FromFeatureCollection(fc)
	if len(got) != 1 {
		t.Fatalf("got %d stations, want 1", len(got))
	}
	s := got[0]
	if s.SiteID != "a" || s.Brand != "shell" || s.Prices["unleaded"] != 142.9 {
		t.Fatalf("station = %+v", s)
	}
}

func TestFeatureCollectionRoundTrip(t *testing.T) {
	in := []Station{{
		SiteID:    "a",
		Brand:     "shell",
		Address:   "1 High St",
		Postcode:  "SW1A 1AA",
		Lon:       -0.13,
		Lat:       51.51,
		Prices:    map[string]float64{"unleaded": 142.9},
		Updated:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		BestPrice: true,
	}}
	out := FromFeatureCollection(ToFeatureCollection(in))
	if len(out) != 1 {
		t.Fatalf("got %d stations", len(out))
	}
	got := out[0]
	if got.SiteID != in[0].SiteID || got.Brand != in[0].Brand || got.Postcode != in[0].Postcode {
		t.Fatalf("round trip lost identity: %+v", got)
	}
	if got.Lon != in[0].Lon || got.Lat != in[0].Lat || got.Prices["unleaded"] != 142.9 {
		t.Fatalf("round trip lost data: %+v", got)
	}
	if !got.BestPrice || !got.Updated.Equal(in[0].Updated) {
		t.Fatalf("round trip lost flags: %+v", got)
	}
}

func TestFromSiteMap(t *testing.T) {
	raw := []byte(`{
		"shell": [
			{"site_id": "s1", "address": "1 High St", "postcode": " sw1a 1aa ",
			 "location": {"longitude": -0.13, "latitude": 51.51},
			 "prices": {"B7": 149.9}, "last_updated": "2026-08-01T12:00:00Z"},
			{"site_id": "", "location": {"longitude": 0, "latitude": 51}}
		],
		"bp": [
			{"site_id": "b1", "location": {"longitude": -1.55, "latitude": 53.8}}
		]
	}`)
	got, err := FromSiteMap(raw)
	if err != nil {
		t.Fatalf("FromSiteMap: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d stations, want 2 (blank site_id dropped)", len(got))
	}
	byID := map[string]Station{}
	for _, s := range got {
		byID[s.SiteID] = s
	}
	s1 := byID["s1"]
	if s1.Brand != "shell" || s1.Postcode != "SW1A 1AA" || s1.Prices["B7"] != 149.9 {
		t.Fatalf("s1 = %+v", s1)
	}
	if byID["b1"].Prices == nil {
		t.Fatal("missing prices must decode to an empty map")
	}

	if _, err := FromSiteMap([]byte("not json")); err == nil {
		t.Fatal("garbage input must error")
	}
}
