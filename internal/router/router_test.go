package router

import (
	"math"
	"net/http/httptest"
	"testing"
)

func TestParseStationsRequestFullQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/stations?bbox=-0.5,51.3,0.3,51.7&center=-0.1,51.5&fuel=Diesel", nil)
	r.Header.Set("Sec-CH-UA-Mobile", "?1")

	req, warn := ParseStationsRequest(r)
	if warn != "" {
		t.Fatalf("unexpected warning %q", warn)
	}
	if req.Bounds == nil {
		t.Fatal("bounds missing")
	}
	if req.Bounds.West != -0.5 || req.Bounds.North != 51.7 {
		t.Fatalf("bounds = %+v", *req.Bounds)
	}
	if req.Center == nil || req.Center.Lon != -0.1 || req.Center.Lat != 51.5 {
		t.Fatalf("center = %+v", req.Center)
	}
	if req.Fuel != "diesel" {
		t.Fatalf("fuel = %q, want lowercased", req.Fuel)
	}
	if !req.Device.IsMobile {
		t.Fatal("client hint ignored")
	}
}

func TestParseStationsRequestMalformedBBoxDegrades(t *testing.T) {
	r := httptest.NewRequest("GET", "/stations?bbox=1,2,3", nil)
	req, warn := ParseStationsRequest(r)
	if req.Bounds != nil {
		t.Fatal("malformed bbox must yield nil bounds")
	}
	if warn == "" {
		t.Fatal("dropped bbox should warn")
	}
	if req.Center != nil {
		t.Fatal("no bounds means no derived center")
	}
}

func TestParseStationsRequestCenterDefaultsToMidpoint(t *testing.T) {
	r := httptest.NewRequest("GET", "/stations?bbox=-1.0,51.0,0.0,52.0", nil)
	req, _ := ParseStationsRequest(r)
	if req.Center == nil {
		t.Fatal("center should default to the viewport midpoint")
	}
	if math.Abs(req.Center.Lon+0.5) > 1e-9 || math.Abs(req.Center.Lat-51.5) > 1e-9 {
		t.Fatalf("center = %+v", *req.Center)
	}
}

func TestParseCenter(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"-0.1,51.5", true},
		{" 0.2 , 53.1 ", true},
		{"", false},
		{"1", false},
		{"a,b", false},
		{"200,51", false},
		{"0,95", false},
		{"NaN,51", false},
	}
	for _, tc := range cases {
		got := parseCenter(tc.raw)
		if (got != nil) != tc.ok {
			t.Errorf("parseCenter(%q) = %v, want ok=%v", tc.raw, got, tc.ok)
		}
	}
}

func TestParseClassifyRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/thresholds?fuel=unleaded&price=1.459", nil)
	fuel, price, ok, err := ParseClassifyRequest(r)
	if err != nil || !ok {
		t.Fatalf("want classify request, got ok=%v err=%v", ok, err)
	}
	if fuel != "unleaded" || price != 1.459 {
		t.Fatalf("got %q %v", fuel, price)
	}

	r = httptest.NewRequest("GET", "/thresholds", nil)
	if _, _, ok, err := ParseClassifyRequest(r); ok || err != nil {
		t.Fatalf("bare request: ok=%v err=%v", ok, err)
	}

	r = httptest.NewRequest("GET", "/thresholds?fuel=unleaded", nil)
	if _, _, _, err := ParseClassifyRequest(r); err == nil {
		t.Fatal("fuel without price must error")
	}

	r = httptest.NewRequest("GET", "/thresholds?fuel=unleaded&price=abc", nil)
	if _, _, _, err := ParseClassifyRequest(r); err == nil {
		t.Fatal("unparseable price must error")
	}
}
