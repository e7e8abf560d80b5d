package model

import (
	"math"
	"testing"
)

func TestParseBBoxParam(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want *BBox
	}{
		{"valid", "-0.5,51.3,0.3,51.7", &BBox{West: -0.5, South: 51.3, East: 0.3, North: 51.7}},
		{"spaces", " -0.5 , 51.3 , 0.3 , 51.7 ", &BBox{West: -0.5, South: 51.3, East: 0.3, North: 51.7}},
		{"empty", "", nil},
		{"three parts", "1,2,3", nil},
		{"five parts", "1,2,3,4,5", nil},
		{"non numeric", "a,b,c,d", nil},
		{"nan", "NaN,51,0.3,52", nil},
		{"inverted lon", "0.3,51.3,-0.5,51.7", nil},
		{"inverted lat", "-0.5,51.7,0.3,51.3", nil},
		{"outside envelope", "-30,10,-20,20", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseBBoxParam(tc.raw)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
			if got != nil && *got != *tc.want {
				t.Fatalf("got %+v, want %+v", *got, *tc.want)
			}
		})
	}
}

func TestParseBBoxParamClampsToEnvelope(t *testing.T) {
	got := ParseBBoxParam("-20,40,10,70")
	if got == nil {
		t.Fatal("overlapping bbox should survive clamping")
	}
	if *got != Envelope {
		t.Fatalf("got %+v, want the envelope %+v", *got, Envelope)
	}
}

func TestBBoxValid(t *testing.T) {
	if !(BBox{West: -1, South: 50, East: 1, North: 52}).Valid() {
		t.Fatal("well-formed bbox rejected")
	}
	if (BBox{West: 1, South: 50, East: 1, North: 52}).Valid() {
		t.Fatal("zero-width bbox accepted")
	}
	if (BBox{West: math.NaN(), South: 50, East: 1, North: 52}).Valid() {
		t.Fatal("NaN bbox accepted")
	}
}

func TestStationMinPrice(t *testing.T) {
	s := Station{Prices: map[string]float64{"unleaded": 142.9, "diesel": 149.9}}
	if got := s.MinPrice(); got != 142.9 {
		t.Fatalf("min price = %v", got)
	}

	empty := Station{}
	if !math.IsInf(empty.MinPrice(), 1) {
		t.Fatal("no prices should report +Inf")
	}

	junk := Station{Prices: map[string]float64{"unleaded": math.NaN(), "diesel": math.Inf(1)}}
	if !math.IsInf(junk.MinPrice(), 1) {
		t.Fatal("non-finite prices must not win")
	}
}

func TestStationDedupKey(t *testing.T) {
	a := Station{Lon: -0.131, Lat: 51.512, Brand: "shell", SiteID: "a"}
	b := Station{Lon: -0.131, Lat: 51.512, Brand: "shell", SiteID: "b"}
	if a.DedupKey() != b.DedupKey() {
		t.Fatal("same location and brand must collide")
	}
	c := Station{Lon: -0.131, Lat: 51.512, Brand: "bp"}
	if a.DedupKey() == c.DedupKey() {
		t.Fatal("different brands must not collide")
	}
}
